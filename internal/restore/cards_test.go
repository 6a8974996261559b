package restore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/scene"
)

// flakyPrompts fails to add one specific card.
type flakyPrompts struct {
	*scene.Scene
	failID string
}

func (f flakyPrompts) AddCard(title, body, id string) (*scene.PromptCard, error) {
	if id == f.failID {
		return nil, errors.New("render failed")
	}
	return f.Scene.AddCard(title, body, id)
}

func newCards(s *scene.Scene) *Cards {
	return &Cards{Prompts: s, Texts: s, Log: zerolog.Nop()}
}

func TestRestoreCardsReplacesExisting(t *testing.T) {
	s := scene.New()
	s.AddCard("old", "{{x}}", "old")
	s.CreateTextCard("stale")

	rep := newCards(s).Restore(
		[]model.PromptCard{{ID: "p1", Title: "New", Prompt: "A {{a}} B {{b}}",
			Position: model.Position{Left: 5, Top: 6}, Placeholders: model.Descriptors("a", "b")}},
		[]model.TextCard{{ID: "t1", Content: "hello", Position: model.Position{Left: 7, Top: 8}}},
	)

	require.Len(t, s.PromptCards(), 1)
	require.Len(t, s.TextCards(), 1)
	assert.Nil(t, s.PromptCard("old"))

	p := s.PromptCard("p1")
	assert.Equal(t, "New", p.Title)
	assert.Equal(t, "5px", p.Left)
	assert.Equal(t, "6px", p.Top)

	txt := s.TextCard("t1")
	require.NotNil(t, txt)
	assert.Equal(t, "hello", txt.Content)
	assert.Equal(t, "t1", txt.TextPort.CardID)
	assert.Equal(t, "8px", txt.Top)

	assert.Empty(t, rep.Failed())
	assert.True(t, rep.AllPortsCreated())
	assert.Equal(t, []PortStatus{{"p1_port_1", true}, {"p1_port_2", true}}, rep.Prompts[0].Ports)
}

func TestRestoreCardsReportsMissingPorts(t *testing.T) {
	s := scene.New()
	rep := newCards(s).Restore(
		[]model.PromptCard{{ID: "p1", Prompt: "only {{one}}", Placeholders: model.Descriptors("one", "two")}},
		nil,
	)

	assert.False(t, rep.AllPortsCreated())
	assert.Equal(t, []PortStatus{{"p1_port_1", true}, {"p1_port_2", false}}, rep.Prompts[0].Ports)
}

func TestRestoreCardsIsolatesFailures(t *testing.T) {
	s := scene.New()
	c := &Cards{Prompts: flakyPrompts{Scene: s, failID: "p3"}, Texts: s, Log: zerolog.Nop()}

	var prompts []model.PromptCard
	for i := 1; i <= 5; i++ {
		prompts = append(prompts, model.PromptCard{ID: fmt.Sprintf("p%d", i), Prompt: "{{x}}", Placeholders: model.Descriptors("x")})
	}
	rep := c.Restore(prompts, []model.TextCard{{ID: "t1"}, {ID: "t1"}})

	assert.Len(t, s.PromptCards(), 4)
	failed := rep.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "p3", failed[0].CardID)
	assert.Contains(t, failed[0].Error, "render failed")

	assert.Equal(t, "t1", failed[1].CardID)
	assert.ErrorIs(t, failed[1].Err, scene.ErrDuplicateCard)
	assert.Len(t, s.TextCards(), 1, "duplicate text card is discarded")
}

func TestRestoreCardsNilRegistrySkipsKind(t *testing.T) {
	s := scene.New()
	s.CreateTextCard("keep")

	rep := (&Cards{Prompts: s, Log: zerolog.Nop()}).Restore(
		[]model.PromptCard{{ID: "p1"}},
		[]model.TextCard{{ID: "t1"}},
	)

	assert.Len(t, rep.Prompts, 1)
	assert.Empty(t, rep.Texts)
	assert.Len(t, s.TextCards(), 1)
}
