// Package snapshot converts live editor state to and from the persisted document.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/rcliao/canvas-state/internal/model"
)

// ErrMalformed is returned by DecodeStrict when the payload is not a document.
var ErrMalformed = errors.New("malformed snapshot")

// Encode assembles a document. Nil collections become empty.
func Encode(at time.Time, prompts []model.PromptCard, texts []model.TextCard, conns []model.Connection) *model.Document {
	doc := &model.Document{
		Version:     model.DocumentVersion,
		PromptCards: prompts,
		TextCards:   texts,
		Connections: conns,
		SavedAt:     at.UTC().Format(time.RFC3339Nano),
	}
	normalize(doc)
	return doc
}

// Marshal renders a document as JSON.
func Marshal(doc *model.Document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return b, nil
}

// Decode parses a stored document, returning nil when it is malformed.
func Decode(raw []byte) *model.Document {
	doc, err := DecodeStrict(raw)
	if err != nil {
		return nil
	}
	return doc
}

// DecodeStrict parses a stored document. Missing or null collections decode
// as empty; a collection present with any other shape is malformed.
func DecodeStrict(raw []byte) (*model.Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	doc := &model.Document{}
	if err := decodeArray(top, "promptCards", &doc.PromptCards); err != nil {
		return nil, err
	}
	if err := decodeArray(top, "textCards", &doc.TextCards); err != nil {
		return nil, err
	}
	if err := decodeArray(top, "connections", &doc.Connections); err != nil {
		return nil, err
	}

	// Older documents carry lastSaved instead of savedAt.
	for _, name := range []string{"savedAt", "lastSaved"} {
		if v, ok := top[name]; ok && json.Unmarshal(v, &doc.SavedAt) == nil && doc.SavedAt != "" {
			break
		}
	}
	// A version that is not an integer reads as 0, like a missing one.
	if v, ok := top["version"]; ok && json.Unmarshal(v, &doc.Version) != nil {
		doc.Version = 0
	}

	normalize(doc)
	return doc, nil
}

func decodeArray[T any](top map[string]json.RawMessage, name string, dst *[]T) error {
	raw, ok := top[name]
	trimmed := bytes.TrimSpace(raw)
	if !ok || bytes.Equal(trimmed, []byte("null")) {
		*dst = []T{}
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("%w: %s is not an array", ErrMalformed, name)
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if *dst == nil {
		*dst = []T{}
	}
	return nil
}

// MarshalCBOR renders a document in CBOR form for binary export.
func MarshalCBOR(doc *model.Document) ([]byte, error) {
	b, err := cbor.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal cbor snapshot: %w", err)
	}
	return b, nil
}

// UnmarshalCBOR parses a CBOR export.
func UnmarshalCBOR(raw []byte) (*model.Document, error) {
	var doc model.Document
	if err := cbor.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	normalize(&doc)
	return &doc, nil
}

func normalize(doc *model.Document) {
	if doc.PromptCards == nil {
		doc.PromptCards = []model.PromptCard{}
	}
	if doc.TextCards == nil {
		doc.TextCards = []model.TextCard{}
	}
	if doc.Connections == nil {
		doc.Connections = []model.Connection{}
	}
	for i := range doc.PromptCards {
		if doc.PromptCards[i].Placeholders == nil {
			doc.PromptCards[i].Placeholders = []json.RawMessage{}
		}
		if doc.PromptCards[i].Connections == nil {
			doc.PromptCards[i].Connections = []json.RawMessage{}
		}
	}
	for i := range doc.Connections {
		c := &doc.Connections[i]
		c.StartPortType = c.StartPortType.Normalize()
		c.EndPortType = c.EndPortType.Normalize()
	}
}
