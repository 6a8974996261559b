package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/canvas-state/internal/model"
)

func TestParsePlaceholders(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"none", "plain prompt", []string{}},
		{"one", "Summarize {{text}}", []string{"text"}},
		{"trimmed", "A {{ first }} and {{second}}", []string{"first", "second"}},
		{"empty name", "x {{}} y", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePlaceholders(tt.body))
		})
	}
}

func TestParsePixels(t *testing.T) {
	tests := map[string]int{
		"":       0,
		"120px":  120,
		"12.7px": 12,
		"-30px":  -30,
		"px":     0,
		" 8px ":  8,
		"abc":    0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePixels(in), "ParsePixels(%q)", in)
	}
}

func TestAddCardDerivesPorts(t *testing.T) {
	s := New()
	card, err := s.AddCard("Polish", "Rewrite {{a}} using {{b}}", "p1")
	require.NoError(t, err)

	require.Len(t, card.Ports, 2)
	assert.Equal(t, "p1_port_1", card.Ports[0].ID)
	assert.Equal(t, "p1_port_2", card.Ports[1].ID)
	assert.Equal(t, model.PortPrompt, card.Ports[1].Role)
	assert.Same(t, card.Ports[0], s.PortByID("p1_port_1"))
	assert.Len(t, card.Bindings, 2)
}

func TestAddCardRejectsDuplicateAndEmpty(t *testing.T) {
	s := New()
	_, err := s.AddCard("a", "", "p1")
	require.NoError(t, err)

	_, err = s.AddCard("b", "", "p1")
	assert.ErrorIs(t, err, ErrDuplicateCard)

	_, err = s.AddCard("c", "", "")
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestRenameTextCard(t *testing.T) {
	s := New()
	card, err := s.CreateTextCard("hello")
	require.NoError(t, err)
	assert.NotEmpty(t, card.ID)

	require.NoError(t, s.RenameTextCard(card, "t1"))
	assert.Equal(t, "t1", card.TextPort.CardID)
	assert.Equal(t, "t1", card.ChainPort.Key())
	assert.Same(t, card.TextPort, s.PortFor(model.PortText, "t1"))
	assert.Same(t, card.ChainPort, s.PortFor(model.PortChain, "t1"))

	other, _ := s.CreateTextCard("x")
	assert.ErrorIs(t, s.RenameTextCard(other, "t1"), ErrDuplicateCard)
}

func TestRemovingCardInvalidatesConnections(t *testing.T) {
	s := New()
	p, _ := s.AddCard("P", "{{x}}", "p1")
	txt, _ := s.CreateTextCard("body")

	_, err := s.Connect(txt.TextPort, p.Ports[0])
	require.NoError(t, err)
	require.Len(t, s.Connections(), 1)

	require.NoError(t, s.RemoveTextCard(txt.ID))
	assert.False(t, s.Attached(txt.TextPort))
	assert.Empty(t, s.Connections())

	_, err = s.Connect(txt.TextPort, p.Ports[0])
	assert.ErrorIs(t, err, ErrDetachedPort)
}

func TestCombinedContentFollowsChain(t *testing.T) {
	s := New()
	a, _ := s.CreateTextCard("one")
	b, _ := s.CreateTextCard("two")
	c, _ := s.CreateTextCard("three")

	s.LinkChain(a.ID, b.ID)
	s.LinkChain(b.ID, c.ID)
	s.LinkChain(c.ID, a.ID)

	assert.Equal(t, "one\n\ntwo\n\nthree", s.CombinedContent(a))
	assert.Equal(t, "three\n\none\n\ntwo", s.CombinedContent(c))
}

func TestMoveCardAndPaths(t *testing.T) {
	s := New()
	p, _ := s.AddCard("P", "{{x}}", "p1")
	txt, _ := s.CreateTextCard("body")

	require.NoError(t, s.MoveCard("text", txt.ID, 10, 20))
	require.NoError(t, s.MoveCard("prompt", "p1", 400, 100))
	assert.ErrorIs(t, s.MoveCard("prompt", "missing", 0, 0), ErrUnknownCard)

	conn, err := s.Connect(txt.TextPort, p.Ports[0])
	require.NoError(t, err)
	assert.Equal(t, "M 250.0 44.0 C 325.0 44.0, 325.0 148.0, 400.0 148.0", conn.Path)

	require.NoError(t, s.MoveCard("prompt", "p1", 450, 100))
	s.RefreshAllPaths()
	assert.Contains(t, s.Connections()[0].Path, "450.0 148.0")
}

func TestClearConnectionsResetsPorts(t *testing.T) {
	s := New()
	p, _ := s.AddCard("P", "{{x}}", "p1")
	txt, _ := s.CreateTextCard("body")

	s.MarkConnected(txt.TextPort, MarkerPromptConnected)
	s.MarkConnected(p.Ports[0], "")
	s.BindPort("p1_port_1", "c1")
	s.LinkChain(txt.ID, "other")

	s.ClearConnections()

	assert.False(t, txt.TextPort.Connected)
	assert.Empty(t, txt.TextPort.Marker)
	assert.False(t, p.Ports[0].Connected)
	_, ok := s.PortConnection("p1_port_1")
	assert.False(t, ok)
	_, ok = s.ChainLink(txt.ID)
	assert.False(t, ok)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s := New()
	var kinds []string
	s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	s.AddCard("P", "", "p1")
	s.ClearPromptCards()

	assert.Equal(t, []string{"prompt-added", "prompts-cleared"}, kinds)
}

func TestSetTextContent(t *testing.T) {
	s := New()
	a, _ := s.CreateTextCard("draft")
	b, _ := s.CreateTextCard("tail")
	s.LinkChain(a.ID, b.ID)

	var edited []string
	s.Subscribe(func(c Change) {
		if c.Kind == "text-edited" {
			edited = append(edited, c.CardID)
		}
	})

	require.NoError(t, s.SetTextContent(a.ID, "final"))
	assert.Equal(t, "final", s.TextCard(a.ID).Content)
	assert.Equal(t, "final\n\ntail", s.CombinedContent(a))
	assert.Equal(t, []string{a.ID}, edited)

	assert.ErrorIs(t, s.SetTextContent("missing", "x"), ErrUnknownCard)
	assert.Len(t, edited, 1)
}
