package restore

import (
	"strconv"
	"strings"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/scene"
)

const promptPortSep = "_port_"

// PortIndex is the read model the resolver queries.
type PortIndex interface {
	PromptPorts() []*scene.Port
	PortFor(role model.PortType, cardID string) *scene.Port
	PortsByRole(role model.PortType) []*scene.Port
}

// Resolver maps snapshot port ids back to live ports. Build one per batch.
type Resolver struct {
	ports   PortIndex
	ordered []*scene.Port
	byID    map[string]*scene.Port
}

// NewResolver indexes the live prompt ports.
func NewResolver(ports PortIndex) *Resolver {
	ordered := ports.PromptPorts()
	byID := make(map[string]*scene.Port, len(ordered))
	for _, p := range ordered {
		byID[p.ID] = p
	}
	return &Resolver{ports: ports, ordered: ordered, byID: byID}
}

// Resolve returns the live port for a snapshot reference, or nil.
//
// A prompt port id that is not found falls back to any port of the same card,
// the last one in scene order winning. This is a loose match: when a card's
// placeholder count changed between save and restore the connection may land
// on a different placeholder than the one it was saved against.
func (r *Resolver) Resolve(portID string, portType model.PortType) *scene.Port {
	switch portType {
	case model.PortPrompt:
		if p, ok := r.byID[portID]; ok {
			return p
		}
		i := strings.Index(portID, promptPortSep)
		if i < 0 {
			return nil
		}
		prefix := portID[:i] + promptPortSep
		var match *scene.Port
		for _, p := range r.ordered {
			if strings.HasPrefix(p.ID, prefix) {
				match = p
			}
		}
		return match

	case model.PortText, model.PortChain:
		if p := r.ports.PortFor(portType, portID); p != nil {
			return p
		}
		for _, p := range r.ports.PortsByRole(portType) {
			if p.Key() == portID {
				return p
			}
		}
	}
	return nil
}

// promptIndex returns the 0-based placeholder index encoded in a prompt port id.
func promptIndex(p *scene.Port) int {
	if p.Index > 0 {
		return p.Index - 1
	}
	i := strings.LastIndex(p.ID, promptPortSep)
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(p.ID[i+len(promptPortSep):])
	if err != nil {
		return -1
	}
	return n - 1
}
