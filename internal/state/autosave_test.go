package state

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/scene"
	"github.com/rcliao/canvas-state/internal/snapshot"
)

func TestAutosaveOnSceneChange(t *testing.T) {
	st := &countingStore{Store: newTestStore(t)}
	s := scene.New()
	m := newManager(st, s)
	a := NewAutosaver(m, AutosaveOptions{Logger: zerolog.Nop()})
	a.Observe(s)

	_, err := s.AddCard("P", "{{x}}", "p1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), st.puts.Load())

	doc, err := m.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.PromptCards, 1)
	assert.Equal(t, "p1", doc.PromptCards[0].ID)
}

func TestAutosaveOnTextEdit(t *testing.T) {
	st := &countingStore{Store: newTestStore(t)}
	s := scene.New()
	txt, err := s.CreateTextCard("draft")
	require.NoError(t, err)

	m := newManager(st, s)
	a := NewAutosaver(m, AutosaveOptions{Logger: zerolog.Nop()})
	a.Observe(s)

	require.NoError(t, s.SetTextContent(txt.ID, "final"))
	assert.Equal(t, int32(1), st.puts.Load())

	doc, err := m.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.TextCards, 1)
	assert.Equal(t, "final", doc.TextCards[0].Content)
}

func TestAutosaveSuppressedDuringRestore(t *testing.T) {
	st := &countingStore{Store: newTestStore(t)}
	s := scene.New()
	m := newManager(st, s)
	a := NewAutosaver(m, AutosaveOptions{Logger: zerolog.Nop()})
	a.Observe(s)

	doc := snapshot.Collect(buildScene(t), fixedNow())
	_, err := m.Restore(context.Background(), doc)
	require.NoError(t, err)
	assert.Zero(t, st.puts.Load(), "no save may capture a half-rebuilt scene")

	a.Trigger("blur")
	assert.Equal(t, int32(1), st.puts.Load())
}

func TestAutosaveDebounceCoalesces(t *testing.T) {
	st := &countingStore{Store: newTestStore(t)}
	s := scene.New()
	m := newManager(st, s)
	a := NewAutosaver(m, AutosaveOptions{Debounce: 20 * time.Millisecond, Logger: zerolog.Nop()})
	a.Observe(s)
	t.Cleanup(a.Stop)

	s.AddCard("P", "", "p1")
	s.MoveCard("prompt", "p1", 1, 1)
	s.MoveCard("prompt", "p1", 2, 2)
	a.Trigger("mouseup")

	require.Eventually(t, func() bool { return st.puts.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), st.puts.Load())

	doc, _ := m.Load(context.Background())
	assert.Equal(t, model.Position{Left: 2, Top: 2}, doc.PromptCards[0].Position)
}

func TestAutosaveInitialSave(t *testing.T) {
	st := &countingStore{Store: newTestStore(t)}
	m := newManager(st, scene.New())
	a := NewAutosaver(m, AutosaveOptions{InitialDelay: 10 * time.Millisecond, Logger: zerolog.Nop()})

	a.Start(context.Background())
	t.Cleanup(a.Stop)

	require.Eventually(t, func() bool { return st.puts.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAutosaveStopDropsTriggers(t *testing.T) {
	st := &countingStore{Store: newTestStore(t)}
	m := newManager(st, scene.New())
	a := NewAutosaver(m, AutosaveOptions{Logger: zerolog.Nop()})

	a.Stop()
	a.Trigger("blur")
	assert.Zero(t, st.puts.Load())
}
