// Package state saves the live editor scene to the blob store and restores it.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/canvas-state/internal/model"
	"github.com/rcliao/canvas-state/internal/restore"
	"github.com/rcliao/canvas-state/internal/scene"
	"github.com/rcliao/canvas-state/internal/snapshot"
	"github.com/rcliao/canvas-state/internal/store"
)

// DefaultKey is the store key the document is written under.
const DefaultKey = "canvas_state"

// ErrorSuffix is appended to the document key for the diagnostic record.
const ErrorSuffix = "_error"

var (
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrMissingCollaborator = errors.New("missing collaborator")
)

// Phase is the restore state machine position.
type Phase int

const (
	Idle Phase = iota
	Restoring
	Committed
	Failed
)

func (p Phase) String() string {
	switch p {
	case Restoring:
		return "restoring"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	}
	return "idle"
}

// Collaborators are the live registries a save or restore works against.
type Collaborators struct {
	Prompts     restore.PromptRegistry
	Texts       restore.TextRegistry
	Connections restore.ConnectionRegistry
	Ports       restore.PortIndex
	Source      snapshot.Source
}

// SceneCollaborators wires every collaborator to one scene.
func SceneCollaborators(s *scene.Scene) Collaborators {
	return Collaborators{Prompts: s, Texts: s, Connections: s, Ports: s, Source: s}
}

func (c Collaborators) missing() []string {
	var out []string
	if c.Prompts == nil {
		out = append(out, "prompt cards")
	}
	if c.Texts == nil {
		out = append(out, "text cards")
	}
	if c.Connections == nil {
		out = append(out, "connections")
	}
	if c.Ports == nil {
		out = append(out, "ports")
	}
	return out
}

// Outcome is the result of a restore.
type Outcome struct {
	Cards       restore.Report             `json:"cards"`
	Connections []restore.ConnectionResult `json:"connections"`
}

// Options configures a Manager.
type Options struct {
	Key    string
	Logger zerolog.Logger
	Now    func() time.Time
	Gate   *Gate
}

// Manager saves and restores the editor scene.
type Manager struct {
	store  store.Store
	collab Collaborators
	key    string
	gate   *Gate
	log    zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	phase Phase

	// rw is held exclusively by Restore and shared by Save.
	rw sync.RWMutex
}

// NewManager returns a manager writing under opts.Key (DefaultKey when empty).
func NewManager(st store.Store, collab Collaborators, opts Options) *Manager {
	m := &Manager{
		store:  st,
		collab: collab,
		key:    opts.Key,
		gate:   opts.Gate,
		log:    opts.Logger.With().Str("component", "state").Logger(),
		now:    opts.Now,
	}
	if m.key == "" {
		m.key = DefaultKey
	}
	if m.gate == nil {
		m.gate = &Gate{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Key returns the document key.
func (m *Manager) Key() string { return m.key }

// ErrorKey returns the diagnostic record key.
func (m *Manager) ErrorKey() string { return m.key + ErrorSuffix }

// Restoring reports whether a restore holds the save gate.
func (m *Manager) Restoring() bool { return m.gate.Held() }

// Phase returns the state of the most recent restore.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Manager) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

// Save collects the live scene and writes it. It is a no-op while a restore
// is in flight; a save already collecting finishes before a restore starts.
// On write failure a diagnostic record is written best-effort.
func (m *Manager) Save(ctx context.Context) error {
	if m.gate.Held() {
		m.log.Debug().Msg("save skipped during restore")
		return nil
	}
	m.rw.RLock()
	defer m.rw.RUnlock()
	if m.gate.Held() {
		m.log.Debug().Msg("save skipped during restore")
		return nil
	}
	if m.collab.Source == nil {
		return fmt.Errorf("save: %w: scene source", ErrMissingCollaborator)
	}

	doc := snapshot.Collect(m.collab.Source, m.now())
	b, err := snapshot.Marshal(doc)
	if err == nil {
		_, err = m.store.Put(ctx, store.PutParams{Key: m.key, Value: string(b)})
	}
	if err != nil {
		m.log.Error().Err(err).Str("key", m.key).Msg("save failed")
		m.recordError(ctx, err)
		return fmt.Errorf("save: %w: %v", ErrStorageUnavailable, err)
	}

	m.log.Debug().
		Int("prompt_cards", len(doc.PromptCards)).
		Int("text_cards", len(doc.TextCards)).
		Int("connections", len(doc.Connections)).
		Msg("saved")
	return nil
}

func (m *Manager) recordError(ctx context.Context, cause error) {
	rec := model.ErrorRecord{
		SavedAt: m.now().UTC().Format(time.RFC3339Nano),
		Error:   cause.Error(),
	}
	b, err := json.Marshal(rec)
	if err == nil {
		_, err = m.store.Put(ctx, store.PutParams{Key: m.ErrorKey(), Value: string(b)})
	}
	if err != nil {
		m.log.Debug().Err(err).Msg("diagnostic record not written")
	}
}

// LastError returns the diagnostic record of the last failed save, or nil.
func (m *Manager) LastError(ctx context.Context) (*model.ErrorRecord, error) {
	blob, err := m.store.Get(ctx, m.ErrorKey())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	var rec model.ErrorRecord
	if err := json.Unmarshal([]byte(blob.Value), &rec); err != nil {
		return nil, fmt.Errorf("parse error record: %w", err)
	}
	return &rec, nil
}

// Load reads the stored document. Nothing stored or a malformed payload
// yields (nil, nil).
func (m *Manager) Load(ctx context.Context) (*model.Document, error) {
	blob, err := m.store.Get(ctx, m.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		m.log.Error().Err(err).Str("key", m.key).Msg("load failed")
		return nil, fmt.Errorf("load: %w: %v", ErrStorageUnavailable, err)
	}

	doc, err := snapshot.DecodeStrict([]byte(blob.Value))
	if err != nil {
		m.log.Warn().Err(err).Str("key", m.key).Msg("stored snapshot ignored")
		return nil, nil
	}
	return doc, nil
}

// Restore rebuilds the scene from doc. Cards are restored before connections.
// The save gate is held for the whole operation.
func (m *Manager) Restore(ctx context.Context, doc *model.Document) (out *Outcome, err error) {
	release := m.gate.Acquire()
	defer release()
	m.rw.Lock()
	defer m.rw.Unlock()

	m.setPhase(Restoring)
	defer func() {
		if err != nil {
			m.setPhase(Failed)
			return
		}
		m.setPhase(Committed)
	}()

	if missing := m.collab.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("restore: %w: %v", ErrMissingCollaborator, missing)
	}
	if doc == nil {
		doc = &model.Document{}
	}

	log := m.log.With().Str("saved_at", doc.SavedAt).Logger()

	cards := &restore.Cards{Prompts: m.collab.Prompts, Texts: m.collab.Texts, Log: log}
	rep := cards.Restore(doc.PromptCards, doc.TextCards)
	if !rep.AllPortsCreated() {
		log.Warn().Msg("some prompt ports were not created")
	}

	conns := &restore.Connections{Registry: m.collab.Connections, Ports: m.collab.Ports, Log: log}
	results := conns.Restore(doc.Connections)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	log.Info().
		Int("prompt_cards", len(rep.Prompts)).
		Int("text_cards", len(rep.Texts)).
		Int("failed_cards", len(rep.Failed())).
		Int("connections", len(results)).
		Int("failed_connections", failed).
		Msg("restored")

	return &Outcome{Cards: rep, Connections: results}, nil
}

// RestoreData loads the stored document and restores it. It returns
// (nil, nil) when there is nothing to restore.
func (m *Manager) RestoreData(ctx context.Context) (*Outcome, error) {
	if missing := m.collab.missing(); len(missing) > 0 {
		m.setPhase(Failed)
		return nil, fmt.Errorf("restore: %w: %v", ErrMissingCollaborator, missing)
	}

	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return m.Restore(ctx, doc)
}
