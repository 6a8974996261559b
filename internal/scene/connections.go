package scene

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/canvas-state/internal/model"
)

// Card geometry used to anchor connection paths.
const (
	CardWidth       = 240
	promptPortTop   = 48
	promptPortStep  = 28
	textPortTop     = 24
	chainPortTop    = 56
	minCurveControl = 50
)

var ErrDetachedPort = errors.New("port is not attached")

// ParsePixels reads a CSS pixel offset the way parseInt does: the leading
// integer is used and anything unparseable yields 0.
func ParsePixels(v string) int {
	v = strings.TrimSpace(v)
	i := 0
	if i < len(v) && (v[i] == '-' || v[i] == '+') {
		i++
	}
	start := i
	for i < len(v) && v[i] >= '0' && v[i] <= '9' {
		i++
	}
	if i == start {
		return 0
	}
	n := 0
	for _, ch := range v[start:i] {
		n = n*10 + int(ch-'0')
		if n > math.MaxInt32 {
			return 0
		}
	}
	if v[0] == '-' {
		n = -n
	}
	return n
}

// Connect links two attached ports with a new connection id.
func (s *Scene) Connect(start, end *Port) (*Connection, error) {
	if !s.Attached(start) || !s.Attached(end) {
		return nil, ErrDetachedPort
	}
	x1, y1 := s.Anchor(start)
	x2, y2 := s.Anchor(end)
	c := &Connection{
		ID:    ulid.Make().String(),
		Start: start,
		End:   end,
		Path:  s.ComputePath(x1, y1, x2, y2),
	}

	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()

	s.notify(Change{Kind: "connected"})
	return c, nil
}

// Connections returns the live connections in creation order.
func (s *Scene) Connections() []*Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Connection(nil), s.conns...)
}

// ClearConnections removes every connection together with the derived indices
// and the connected state of all ports.
func (s *Scene) ClearConnections() {
	s.mu.Lock()
	s.conns = nil
	s.portConns = map[string]string{}
	s.chains = map[string]string{}
	for _, c := range s.prompts {
		for _, p := range c.Ports {
			p.Connected, p.Marker = false, ""
		}
	}
	for _, c := range s.texts {
		for _, p := range []*Port{c.TextPort, c.ChainPort} {
			p.Connected, p.Marker = false, ""
		}
	}
	s.mu.Unlock()

	s.notify(Change{Kind: "connections-cleared"})
}

// BindPort records which connection occupies an index key.
func (s *Scene) BindPort(key, connID string) {
	s.mu.Lock()
	s.portConns[key] = connID
	s.mu.Unlock()
}

// PortConnection returns the connection bound to an index key.
func (s *Scene) PortConnection(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.portConns[key]
	return id, ok
}

// LinkChain records that text card from feeds into text card to.
func (s *Scene) LinkChain(from, to string) {
	s.mu.Lock()
	s.chains[from] = to
	s.mu.Unlock()
}

// ChainLink returns the card linked after from.
func (s *Scene) ChainLink(from string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	to, ok := s.chains[from]
	return to, ok
}

// ReplaceConnections swaps the whole connection set.
func (s *Scene) ReplaceConnections(conns []*Connection) {
	s.mu.Lock()
	s.conns = append([]*Connection(nil), conns...)
	s.mu.Unlock()

	s.notify(Change{Kind: "connections-replaced"})
}

// Anchor returns the canvas coordinates of a port's center.
func (s *Scene) Anchor(p *Port) (float64, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anchorLocked(p)
}

func (s *Scene) anchorLocked(p *Port) (float64, float64) {
	switch p.Role {
	case model.PortPrompt:
		if c := s.promptLocked(p.CardID); c != nil {
			return float64(ParsePixels(c.Left)),
				float64(ParsePixels(c.Top) + promptPortTop + promptPortStep*(p.Index-1))
		}
	case model.PortText, model.PortChain:
		if c := s.textLocked(p.CardID); c != nil {
			top := textPortTop
			if p.Role == model.PortChain {
				top = chainPortTop
			}
			return float64(ParsePixels(c.Left) + CardWidth), float64(ParsePixels(c.Top) + top)
		}
	}
	return 0, 0
}

// ComputePath renders a horizontal cubic curve between two points as SVG path data.
func (s *Scene) ComputePath(x1, y1, x2, y2 float64) string {
	ctrl := math.Max(math.Abs(x2-x1)/2, minCurveControl)
	return fmt.Sprintf("M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f",
		x1, y1, x1+ctrl, y1, x2-ctrl, y2, x2, y2)
}

// RefreshAllPaths recomputes the path of every connection from current card positions.
func (s *Scene) RefreshAllPaths() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		x1, y1 := s.anchorLocked(c.Start)
		x2, y2 := s.anchorLocked(c.End)
		c.Path = s.ComputePath(x1, y1, x2, y2)
	}
}
