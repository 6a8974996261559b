package state

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rcliao/canvas-state/internal/scene"
)

// AutosaveOptions configures an Autosaver.
type AutosaveOptions struct {
	// Debounce delays a save after the last trigger. Zero saves synchronously.
	Debounce time.Duration
	// InitialDelay is the wait before the first save after Start.
	InitialDelay time.Duration
	Logger       zerolog.Logger
}

// Autosaver saves the scene after mutations, coalescing bursts of triggers
// from a single gesture into one write.
type Autosaver struct {
	m    *Manager
	opts AutosaveOptions
	log  zerolog.Logger

	group singleflight.Group

	mu      sync.Mutex
	ctx     context.Context
	timer   *time.Timer
	initial *time.Timer
	stopped bool
}

// NewAutosaver returns an Autosaver for m.
func NewAutosaver(m *Manager, opts AutosaveOptions) *Autosaver {
	return &Autosaver{
		m:    m,
		opts: opts,
		log:  opts.Logger.With().Str("component", "autosave").Logger(),
		ctx:  context.Background(),
	}
}

// Observe triggers a save on every scene change.
func (a *Autosaver) Observe(s *scene.Scene) {
	s.Subscribe(func(c scene.Change) { a.Trigger(c.Kind) })
}

// Start schedules the initial save. Saves use ctx until Stop.
func (a *Autosaver) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
	a.stopped = false
	a.initial = time.AfterFunc(a.opts.InitialDelay, func() { a.Trigger("initial") })
}

// Stop cancels pending saves.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
	}
	if a.initial != nil {
		a.initial.Stop()
	}
}

// Trigger requests a save. Triggers while a restore is in flight are dropped.
func (a *Autosaver) Trigger(reason string) {
	if a.m.Restoring() {
		a.log.Debug().Str("reason", reason).Msg("trigger suppressed during restore")
		return
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	ctx := a.ctx
	if a.opts.Debounce <= 0 {
		a.mu.Unlock()
		a.Flush(ctx)
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.opts.Debounce, func() { a.Flush(ctx) })
	a.mu.Unlock()
}

// Flush saves now. Concurrent flushes share one write.
func (a *Autosaver) Flush(ctx context.Context) error {
	_, err, _ := a.group.Do("save", func() (interface{}, error) {
		return nil, a.m.Save(ctx)
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("autosave failed")
	}
	return err
}
