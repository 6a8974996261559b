// Package model defines the snapshot data types persisted for an editor canvas.
package model

import "encoding/json"

// DocumentVersion is the version written by the current encoder.
const DocumentVersion = 1

// PortType classifies a connection endpoint.
type PortType string

const (
	PortPrompt  PortType = "prompt"
	PortText    PortType = "text"
	PortChain   PortType = "chain"
	PortUnknown PortType = "unknown"
)

// ValidPortTypes are the port types a snapshot may carry.
var ValidPortTypes = map[PortType]bool{
	PortPrompt:  true,
	PortText:    true,
	PortChain:   true,
	PortUnknown: true,
}

// Normalize maps unrecognised port types to PortUnknown.
func (t PortType) Normalize() PortType {
	if ValidPortTypes[t] {
		return t
	}
	return PortUnknown
}

// Position is a card's on-canvas pixel offset.
type Position struct {
	Left int `json:"left"`
	Top  int `json:"top"`
}

// UnmarshalJSON accepts fractional offsets and truncates them toward zero.
func (p *Position) UnmarshalJSON(b []byte) error {
	var raw struct {
		Left float64 `json:"left"`
		Top  float64 `json:"top"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Left, p.Top = int(raw.Left), int(raw.Top)
	return nil
}

// PromptCard is the snapshot of a prompt card.
type PromptCard struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Prompt   string   `json:"prompt"`
	Position Position `json:"position"`
	// Placeholders are opaque descriptors, one per placeholder, in order.
	// Placeholder i owns port {id}_port_{i+1}; only the count is read.
	Placeholders []json.RawMessage `json:"placeholders"`
	// Connections caches the content bound to each placeholder. Informational only.
	Connections []json.RawMessage `json:"connections"`
}

// Descriptors encodes each value as a JSON string descriptor.
func Descriptors(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		b, _ := json.Marshal(v)
		out = append(out, b)
	}
	return out
}

// TextCard is the snapshot of a text card.
type TextCard struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Position Position `json:"position"`
}

// Connection is the snapshot of a link between two ports.
type Connection struct {
	ID            string   `json:"id"`
	StartPortID   string   `json:"startPortId"`
	EndPortID     string   `json:"endPortId"`
	StartPortType PortType `json:"startPortType"`
	EndPortType   PortType `json:"endPortType"`
}

// Document is the full persisted editor state.
type Document struct {
	Version     int          `json:"version,omitempty"`
	PromptCards []PromptCard `json:"promptCards"`
	TextCards   []TextCard   `json:"textCards"`
	Connections []Connection `json:"connections"`
	SavedAt     string       `json:"savedAt"`
}

// ErrorRecord is the diagnostic written when the primary save fails.
type ErrorRecord struct {
	SavedAt string `json:"savedAt"`
	Error   string `json:"error"`
}
