// Package scene holds the live editor state: prompt cards, text cards, their
// ports and the connections between them.
//
// The scene is an id-indexed arena. Handles (*PromptCard, *TextCard, *Port,
// *Connection) stay valid only while their card is attached; removing a card
// detaches its ports and drops every connection touching them.
package scene

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rcliao/canvas-state/internal/model"
)

var (
	ErrEmptyID       = errors.New("card id is required")
	ErrDuplicateCard = errors.New("card already exists")
	ErrUnknownCard   = errors.New("unknown card")
)

// Port state markers written when a connection is attached.
const (
	MarkerPromptConnected = "prompt-connected"
	MarkerChainConnected  = "chain-connected"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// ParsePlaceholders returns the placeholder tokens of a prompt body in order.
func ParsePlaceholders(body string) []string {
	matches := placeholderRe.FindAllStringSubmatch(body, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// PromptPortID is the derived id of the 1-based n-th port of a prompt card.
func PromptPortID(cardID string, n int) string {
	return fmt.Sprintf("%s_port_%d", cardID, n)
}

// Port is an attachment point on a card.
type Port struct {
	// ID is set for prompt ports only; text and chain ports are keyed by CardID.
	ID     string
	CardID string
	Role   model.PortType
	// Index is the 1-based placeholder index of a prompt port.
	Index int

	Connected bool
	Marker    string

	attached bool
}

// Key returns the id a connection snapshot uses for this port.
func (p *Port) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.CardID
}

// PromptCard is a live prompt card.
type PromptCard struct {
	ID           string
	Title        string
	Body         string
	Placeholders []string
	Bindings     []string
	// Left and Top are CSS pixel offsets such as "120px"; empty when never placed.
	Left, Top string
	Ports     []*Port
}

// TextCard is a live text card.
type TextCard struct {
	ID        string
	Content   string
	Left, Top string
	TextPort  *Port
	ChainPort *Port
}

// Connection is a live link between two ports.
type Connection struct {
	ID    string
	Start *Port
	End   *Port
	Path  string
}

// Change describes a mutation of the scene.
type Change struct {
	Kind   string
	CardID string
}

// Scene is the live editor state. All methods are safe for concurrent use.
type Scene struct {
	mu sync.RWMutex

	prompts []*PromptCard
	texts   []*TextCard
	conns   []*Connection

	portConns map[string]string
	chains    map[string]string

	observers []func(Change)
	newID     func() string
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{
		portConns: map[string]string{},
		chains:    map[string]string{},
		newID:     uuid.NewString,
	}
}

// Subscribe registers fn to be called after every mutation.
func (s *Scene) Subscribe(fn func(Change)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Scene) notify(c Change) {
	s.mu.RLock()
	obs := append([]func(Change){}, s.observers...)
	s.mu.RUnlock()
	for _, fn := range obs {
		fn(c)
	}
}

// AddCard creates a prompt card with one port per placeholder in body.
func (s *Scene) AddCard(title, body, id string) (*PromptCard, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	s.mu.Lock()
	if s.promptLocked(id) != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("prompt card %q: %w", id, ErrDuplicateCard)
	}

	placeholders := ParsePlaceholders(body)
	card := &PromptCard{
		ID:           id,
		Title:        title,
		Body:         body,
		Placeholders: placeholders,
		Bindings:     make([]string, len(placeholders)),
	}
	for i := range placeholders {
		card.Ports = append(card.Ports, &Port{
			ID:       PromptPortID(id, i+1),
			CardID:   id,
			Role:     model.PortPrompt,
			Index:    i + 1,
			attached: true,
		})
	}
	s.prompts = append(s.prompts, card)
	s.mu.Unlock()

	s.notify(Change{Kind: "prompt-added", CardID: id})
	return card, nil
}

// CreateTextCard creates a text card with a fresh id and its text and chain ports.
func (s *Scene) CreateTextCard(content string) (*TextCard, error) {
	id := s.newID()

	s.mu.Lock()
	card := &TextCard{
		ID:        id,
		Content:   content,
		TextPort:  &Port{CardID: id, Role: model.PortText, attached: true},
		ChainPort: &Port{CardID: id, Role: model.PortChain, attached: true},
	}
	s.texts = append(s.texts, card)
	s.mu.Unlock()

	s.notify(Change{Kind: "text-added", CardID: id})
	return card, nil
}

// RenameTextCard re-keys a text card and its ports.
func (s *Scene) RenameTextCard(card *TextCard, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	if card.ID == id {
		s.mu.Unlock()
		return nil
	}
	if s.textLocked(id) != nil {
		s.mu.Unlock()
		return fmt.Errorf("text card %q: %w", id, ErrDuplicateCard)
	}
	card.ID = id
	card.TextPort.CardID = id
	card.ChainPort.CardID = id
	s.mu.Unlock()

	s.notify(Change{Kind: "text-renamed", CardID: id})
	return nil
}

// MoveCard sets a card's pixel offset. kind is "prompt" or "text".
func (s *Scene) MoveCard(kind, id string, left, top int) error {
	s.mu.Lock()
	var l, t *string
	switch kind {
	case "prompt":
		if c := s.promptLocked(id); c != nil {
			l, t = &c.Left, &c.Top
		}
	case "text":
		if c := s.textLocked(id); c != nil {
			l, t = &c.Left, &c.Top
		}
	}
	if l == nil {
		s.mu.Unlock()
		return fmt.Errorf("move %s card %q: %w", kind, id, ErrUnknownCard)
	}
	*l = fmt.Sprintf("%dpx", left)
	*t = fmt.Sprintf("%dpx", top)
	s.mu.Unlock()

	s.notify(Change{Kind: "moved", CardID: id})
	return nil
}

// SetTextContent replaces a text card's content.
func (s *Scene) SetTextContent(id, content string) error {
	s.mu.Lock()
	c := s.textLocked(id)
	if c == nil {
		s.mu.Unlock()
		return fmt.Errorf("text card %q: %w", id, ErrUnknownCard)
	}
	c.Content = content
	s.mu.Unlock()

	s.notify(Change{Kind: "text-edited", CardID: id})
	return nil
}

// BindPlaceholder stores content for the 0-based placeholder index of a prompt card.
func (s *Scene) BindPlaceholder(card *PromptCard, index int, content string) {
	s.mu.Lock()
	if index >= 0 && index < len(card.Bindings) {
		card.Bindings[index] = content
	}
	s.mu.Unlock()
}

// RemovePromptCard removes a prompt card, detaching its ports.
func (s *Scene) RemovePromptCard(id string) error {
	s.mu.Lock()
	idx := -1
	for i, c := range s.prompts {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("prompt card %q: %w", id, ErrUnknownCard)
	}
	s.detachPromptLocked(s.prompts[idx])
	s.prompts = append(s.prompts[:idx], s.prompts[idx+1:]...)
	s.pruneConnectionsLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: "prompt-removed", CardID: id})
	return nil
}

// RemoveTextCard removes a text card, detaching its ports.
func (s *Scene) RemoveTextCard(id string) error {
	s.mu.Lock()
	idx := -1
	for i, c := range s.texts {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("text card %q: %w", id, ErrUnknownCard)
	}
	s.detachTextLocked(s.texts[idx])
	s.texts = append(s.texts[:idx], s.texts[idx+1:]...)
	s.pruneConnectionsLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: "text-removed", CardID: id})
	return nil
}

// ClearPromptCards destroys every prompt card.
func (s *Scene) ClearPromptCards() {
	s.mu.Lock()
	for _, c := range s.prompts {
		s.detachPromptLocked(c)
	}
	s.prompts = nil
	s.pruneConnectionsLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: "prompts-cleared"})
}

// ClearTextCards destroys every text card.
func (s *Scene) ClearTextCards() {
	s.mu.Lock()
	for _, c := range s.texts {
		s.detachTextLocked(c)
	}
	s.texts = nil
	s.pruneConnectionsLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: "texts-cleared"})
}

func (s *Scene) detachPromptLocked(c *PromptCard) {
	for _, p := range c.Ports {
		p.attached = false
	}
}

func (s *Scene) detachTextLocked(c *TextCard) {
	c.TextPort.attached = false
	c.ChainPort.attached = false
}

// pruneConnectionsLocked drops connections with a detached endpoint.
func (s *Scene) pruneConnectionsLocked() {
	kept := s.conns[:0]
	for _, c := range s.conns {
		if c.Start != nil && c.End != nil && c.Start.attached && c.End.attached {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(s.conns); i++ {
		s.conns[i] = nil
	}
	s.conns = kept
}

// PromptCards returns copies of the prompt cards in scene order.
func (s *Scene) PromptCards() []PromptCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PromptCard, 0, len(s.prompts))
	for _, c := range s.prompts {
		cp := *c
		cp.Placeholders = append([]string(nil), c.Placeholders...)
		cp.Bindings = append([]string(nil), c.Bindings...)
		cp.Ports = append([]*Port(nil), c.Ports...)
		out = append(out, cp)
	}
	return out
}

// TextCards returns copies of the text cards in scene order.
func (s *Scene) TextCards() []TextCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TextCard, 0, len(s.texts))
	for _, c := range s.texts {
		out = append(out, *c)
	}
	return out
}

// PromptCard returns the prompt card with the given id, or nil.
func (s *Scene) PromptCard(id string) *PromptCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.promptLocked(id)
}

// TextCard returns the text card with the given id, or nil.
func (s *Scene) TextCard(id string) *TextCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.textLocked(id)
}

func (s *Scene) promptLocked(id string) *PromptCard {
	for _, c := range s.prompts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Scene) textLocked(id string) *TextCard {
	for _, c := range s.texts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// PromptPorts returns every attached prompt port in scene order.
func (s *Scene) PromptPorts() []*Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Port
	for _, c := range s.prompts {
		out = append(out, c.Ports...)
	}
	return out
}

// PortByID returns the prompt port with the given id, or nil.
func (s *Scene) PortByID(id string) *Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.prompts {
		for _, p := range c.Ports {
			if p.ID == id {
				return p
			}
		}
	}
	return nil
}

// PortsByRole returns the text or chain ports of every text card in scene order.
func (s *Scene) PortsByRole(role model.PortType) []*Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Port
	for _, c := range s.texts {
		switch role {
		case model.PortText:
			out = append(out, c.TextPort)
		case model.PortChain:
			out = append(out, c.ChainPort)
		}
	}
	return out
}

// PortFor returns the text or chain port owned by the given text card, or nil.
func (s *Scene) PortFor(role model.PortType, cardID string) *Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.textLocked(cardID)
	if c == nil {
		return nil
	}
	switch role {
	case model.PortText:
		return c.TextPort
	case model.PortChain:
		return c.ChainPort
	}
	return nil
}

// Attached reports whether p still belongs to a live card.
func (s *Scene) Attached(p *Port) bool {
	if p == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return p.attached
}

// MarkConnected flags a port as connected with an optional state marker.
func (s *Scene) MarkConnected(p *Port, marker string) {
	s.mu.Lock()
	p.Connected = true
	if marker != "" {
		p.Marker = marker
	}
	s.mu.Unlock()
}

// PromptCardOf returns the prompt card owning p, or nil.
func (s *Scene) PromptCardOf(p *Port) *PromptCard {
	if p == nil || p.Role != model.PortPrompt {
		return nil
	}
	return s.PromptCard(p.CardID)
}

// TextCardOf returns the text card owning p, or nil.
func (s *Scene) TextCardOf(p *Port) *TextCard {
	if p == nil || (p.Role != model.PortText && p.Role != model.PortChain) {
		return nil
	}
	return s.TextCard(p.CardID)
}

// CombinedContent returns the card's content followed by the content of every
// card reachable through chain links, separated by blank lines.
func (s *Scene) CombinedContent(card *TextCard) string {
	if card == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	parts := []string{card.Content}
	seen := map[string]bool{card.ID: true}
	cur := card.ID
	for {
		next, ok := s.chains[cur]
		if !ok || seen[next] {
			break
		}
		seen[next] = true
		c := s.textLocked(next)
		if c == nil {
			break
		}
		parts = append(parts, c.Content)
		cur = next
	}
	return strings.Join(parts, "\n\n")
}
