package restore

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/scene"
)

// PromptRegistry creates and destroys live prompt cards.
type PromptRegistry interface {
	ClearPromptCards()
	AddCard(title, body, id string) (*scene.PromptCard, error)
	MoveCard(kind, id string, left, top int) error
	PortByID(id string) *scene.Port
}

// TextRegistry creates and destroys live text cards.
type TextRegistry interface {
	ClearTextCards()
	CreateTextCard(content string) (*scene.TextCard, error)
	RenameTextCard(card *scene.TextCard, id string) error
	RemoveTextCard(id string) error
	MoveCard(kind, id string, left, top int) error
}

// PortStatus tells whether an expected prompt port exists after creation.
type PortStatus struct {
	PortID  string `json:"portId"`
	Created bool   `json:"created"`
}

// CardResult is the outcome of restoring one card.
type CardResult struct {
	CardID string       `json:"cardId"`
	Ports  []PortStatus `json:"ports,omitempty"`
	Error  string       `json:"error,omitempty"`
	Err    error        `json:"-"`
}

// Report is the outcome of a card restore.
type Report struct {
	Prompts []CardResult `json:"prompts"`
	Texts   []CardResult `json:"texts"`
}

// Failed returns the cards that could not be instantiated.
func (r Report) Failed() []CardResult {
	var out []CardResult
	for _, c := range append(append([]CardResult{}, r.Prompts...), r.Texts...) {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// AllPortsCreated reports whether every restored prompt card got all its ports.
func (r Report) AllPortsCreated() bool {
	for _, c := range r.Prompts {
		for _, p := range c.Ports {
			if !p.Created {
				return false
			}
		}
	}
	return true
}

// Cards restores prompt and text cards with full replacement.
type Cards struct {
	Prompts PromptRegistry
	Texts   TextRegistry
	Log     zerolog.Logger
}

// Restore destroys every live card, then instantiates the snapshot cards.
// A nil registry leaves that card kind untouched.
func (c *Cards) Restore(prompts []model.PromptCard, texts []model.TextCard) Report {
	if c.Prompts != nil {
		c.Prompts.ClearPromptCards()
	}
	if c.Texts != nil {
		c.Texts.ClearTextCards()
	}

	var rep Report
	if c.Prompts != nil {
		rep.Prompts = make([]CardResult, 0, len(prompts))
		for _, snap := range prompts {
			rep.Prompts = append(rep.Prompts, c.restorePrompt(snap))
		}
	}
	if c.Texts != nil {
		rep.Texts = make([]CardResult, 0, len(texts))
		for _, snap := range texts {
			rep.Texts = append(rep.Texts, c.restoreText(snap))
		}
	}
	return rep
}

func (c *Cards) restorePrompt(snap model.PromptCard) CardResult {
	res := CardResult{CardID: snap.ID}

	if _, err := c.Prompts.AddCard(snap.Title, snap.Prompt, snap.ID); err != nil {
		return c.fail(res, fmt.Errorf("add prompt card: %w", err))
	}
	if err := c.Prompts.MoveCard("prompt", snap.ID, snap.Position.Left, snap.Position.Top); err != nil {
		return c.fail(res, fmt.Errorf("place prompt card: %w", err))
	}

	res.Ports = make([]PortStatus, 0, len(snap.Placeholders))
	for i := range snap.Placeholders {
		id := scene.PromptPortID(snap.ID, i+1)
		res.Ports = append(res.Ports, PortStatus{PortID: id, Created: c.Prompts.PortByID(id) != nil})
	}
	return res
}

func (c *Cards) restoreText(snap model.TextCard) CardResult {
	res := CardResult{CardID: snap.ID}

	card, err := c.Texts.CreateTextCard(snap.Content)
	if err != nil {
		return c.fail(res, fmt.Errorf("create text card: %w", err))
	}
	if err := c.Texts.RenameTextCard(card, snap.ID); err != nil {
		c.Texts.RemoveTextCard(card.ID)
		return c.fail(res, fmt.Errorf("assign text card id: %w", err))
	}
	if err := c.Texts.MoveCard("text", snap.ID, snap.Position.Left, snap.Position.Top); err != nil {
		return c.fail(res, fmt.Errorf("place text card: %w", err))
	}
	return res
}

func (c *Cards) fail(res CardResult, err error) CardResult {
	c.Log.Warn().Err(err).Str("card_id", res.CardID).Msg("card not restored")
	res.Err = err
	res.Error = err.Error()
	return res
}
