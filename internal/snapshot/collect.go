package snapshot

import (
	"time"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/scene"
)

// CardSource enumerates live cards in scene order.
type CardSource interface {
	PromptCards() []scene.PromptCard
	TextCards() []scene.TextCard
}

// ConnectionSource enumerates live connections.
type ConnectionSource interface {
	Connections() []*scene.Connection
	Attached(p *scene.Port) bool
}

// Source is everything a save needs to read.
type Source interface {
	CardSource
	ConnectionSource
}

// Collect reads the whole live scene into a document.
func Collect(src Source, at time.Time) *model.Document {
	return Encode(at, CollectPromptCards(src), CollectTextCards(src), CollectConnections(src))
}

// CollectPromptCards snapshots every live prompt card.
func CollectPromptCards(src CardSource) []model.PromptCard {
	cards := src.PromptCards()
	out := make([]model.PromptCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, model.PromptCard{
			ID:           c.ID,
			Title:        c.Title,
			Prompt:       c.Body,
			Position:     position(c.Left, c.Top),
			Placeholders: model.Descriptors(c.Placeholders...),
			Connections:  model.Descriptors(c.Bindings...),
		})
	}
	return out
}

// CollectTextCards snapshots every live text card.
func CollectTextCards(src CardSource) []model.TextCard {
	cards := src.TextCards()
	out := make([]model.TextCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, model.TextCard{
			ID:       c.ID,
			Content:  c.Content,
			Position: position(c.Left, c.Top),
		})
	}
	return out
}

// CollectConnections snapshots live connections, silently skipping those with
// a missing or detached endpoint.
func CollectConnections(src ConnectionSource) []model.Connection {
	conns := src.Connections()
	out := make([]model.Connection, 0, len(conns))
	for _, c := range conns {
		if c == nil || c.Start == nil || c.End == nil {
			continue
		}
		if !src.Attached(c.Start) || !src.Attached(c.End) {
			continue
		}
		startID, endID := c.Start.Key(), c.End.Key()
		if startID == "" || endID == "" {
			continue
		}
		out = append(out, model.Connection{
			ID:            c.ID,
			StartPortID:   startID,
			EndPortID:     endID,
			StartPortType: Classify(c.Start),
			EndPortType:   Classify(c.End),
		})
	}
	return out
}

// Classify returns the port type marker of a live port.
func Classify(p *scene.Port) model.PortType {
	switch p.Role {
	case model.PortPrompt, model.PortText, model.PortChain:
		return p.Role
	}
	return model.PortUnknown
}

func position(left, top string) model.Position {
	return model.Position{Left: scene.ParsePixels(left), Top: scene.ParsePixels(top)}
}
