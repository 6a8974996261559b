package restore

import (
	"github.com/rs/zerolog"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/scene"
)

// ConnectionRegistry owns the live connection set and its derived indices.
type ConnectionRegistry interface {
	ClearConnections()
	Anchor(p *scene.Port) (float64, float64)
	ComputePath(x1, y1, x2, y2 float64) string
	MarkConnected(p *scene.Port, marker string)
	BindPort(key, connID string)
	LinkChain(from, to string)
	PromptCardOf(p *scene.Port) *scene.PromptCard
	TextCardOf(p *scene.Port) *scene.TextCard
	CombinedContent(card *scene.TextCard) string
	BindPlaceholder(card *scene.PromptCard, index int, content string)
	ReplaceConnections(conns []*scene.Connection)
	RefreshAllPaths()
}

// ConnectionResult is the outcome of restoring one connection.
type ConnectionResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// Connections re-creates live connections. Cards must already be restored.
type Connections struct {
	Registry ConnectionRegistry
	Ports    PortIndex
	Log      zerolog.Logger
}

type feed struct {
	prompt *scene.PromptCard
	index  int
	text   *scene.TextCard
}

// Restore replaces the live connection set with the snapshot connections.
// Results are returned in input order.
func (c *Connections) Restore(snaps []model.Connection) []ConnectionResult {
	c.Registry.ClearConnections()

	resolver := NewResolver(c.Ports)
	results := make([]ConnectionResult, 0, len(snaps))
	built := make([]*scene.Connection, 0, len(snaps))
	var feeds []feed

	for _, snap := range snaps {
		conn, f, err := c.restoreOne(resolver, snap)
		if err != nil {
			c.Log.Warn().Err(err).Str("connection_id", snap.ID).Msg("connection not restored")
			results = append(results, ConnectionResult{ID: snap.ID, Error: err.Error(), Err: err})
			continue
		}
		built = append(built, conn)
		if f != nil {
			feeds = append(feeds, *f)
		}
		results = append(results, ConnectionResult{ID: snap.ID, Success: true})
	}

	// Chain links are complete only once the whole batch is wired, so placeholder
	// content is pushed after the loop.
	for _, f := range feeds {
		c.Registry.BindPlaceholder(f.prompt, f.index, c.Registry.CombinedContent(f.text))
	}

	c.Registry.ReplaceConnections(built)
	c.Registry.RefreshAllPaths()
	return results
}

func (c *Connections) restoreOne(r *Resolver, snap model.Connection) (*scene.Connection, *feed, error) {
	start := r.Resolve(snap.StartPortID, snap.StartPortType)
	if start == nil {
		return nil, nil, &EndpointError{Side: "start", PortID: snap.StartPortID}
	}
	end := r.Resolve(snap.EndPortID, snap.EndPortType)
	if end == nil {
		return nil, nil, &EndpointError{Side: "end", PortID: snap.EndPortID}
	}

	reg := c.Registry
	x1, y1 := reg.Anchor(start)
	x2, y2 := reg.Anchor(end)
	conn := &scene.Connection{
		ID:    snap.ID,
		Start: start,
		End:   end,
		Path:  reg.ComputePath(x1, y1, x2, y2),
	}

	endMarker := ""
	if end.Role == model.PortText {
		switch start.Role {
		case model.PortPrompt:
			endMarker = scene.MarkerPromptConnected
		case model.PortChain:
			endMarker = scene.MarkerChainConnected
		}
	}
	reg.MarkConnected(start, "")
	reg.MarkConnected(end, endMarker)

	// A text port holds at most one prompt-fed and one chain-fed connection.
	if end.Role == model.PortText {
		kind := model.PortPrompt
		if start.Role == model.PortChain {
			kind = model.PortChain
		}
		reg.BindPort(end.Key()+"_"+string(kind), snap.ID)
	} else {
		reg.BindPort(end.Key(), snap.ID)
	}
	reg.BindPort(start.Key(), snap.ID)

	if start.Role == model.PortChain || end.Role == model.PortChain {
		from, to := reg.TextCardOf(start), reg.TextCardOf(end)
		if from != nil && to != nil {
			reg.LinkChain(from.ID, to.ID)
		}
		return conn, nil, nil
	}

	promptPort, textPort := end, start
	if start.Role == model.PortPrompt {
		promptPort = start
	}
	if start.Role != model.PortText {
		textPort = end
	}
	prompt, text := reg.PromptCardOf(promptPort), reg.TextCardOf(textPort)
	if prompt == nil || text == nil {
		return conn, nil, nil
	}
	idx := promptIndex(promptPort)
	if idx < 0 {
		return conn, nil, nil
	}
	return conn, &feed{prompt: prompt, index: idx, text: text}, nil
}
