package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"), opts...)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	blob, err := s.Put(ctx, PutParams{Key: "canvas", Value: `{"promptCards":[]}`})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if blob.RevisionID == "" {
		t.Error("expected non-empty revision ID")
	}

	got, err := s.Get(ctx, "canvas")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Value != `{"promptCards":[]}` {
		t.Errorf("unexpected value %q", got.Value)
	}
	if got.RevisionID != blob.RevisionID {
		t.Errorf("expected revision %s, got %s", blob.RevisionID, got.RevisionID)
	}
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Key: "k", Value: "v1"})
	s.Put(ctx, PutParams{Key: "k", Value: "v2"})

	got, _ := s.Get(ctx, "k")
	if got.Value != "v2" {
		t.Errorf("expected 'v2', got %q", got.Value)
	}

	hist, err := s.History(ctx, "k", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(hist))
	}
	if hist[0].ID != got.RevisionID {
		t.Error("expected newest revision first")
	}
}

func TestPutRequiresKey(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Put(context.Background(), PutParams{Value: "x"}); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRevisionPruning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithKeep(3))

	for i := 0; i < 6; i++ {
		if _, err := s.Put(ctx, PutParams{Key: "k", Value: fmt.Sprintf("v%d", i)}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	hist, _ := s.History(ctx, "k", 100)
	if len(hist) != 3 {
		t.Fatalf("expected 3 retained revisions, got %d", len(hist))
	}

	oldest, err := s.Revision(ctx, hist[2].ID)
	if err != nil {
		t.Fatalf("revision: %v", err)
	}
	if oldest.Value != "v3" {
		t.Errorf("expected oldest retained 'v3', got %q", oldest.Value)
	}
}

func TestRevisionMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Revision(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRm(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Key: "k", Value: "data"})
	if err := s.Rm(ctx, "k"); err != nil {
		t.Fatalf("rm: %v", err)
	}

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after rm, got %v", err)
	}
	hist, _ := s.History(ctx, "k", 0)
	if len(hist) != 0 {
		t.Errorf("expected history removed, got %d", len(hist))
	}

	if err := s.Rm(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second rm, got %v", err)
	}
}

func TestKeysAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Key: "b", Value: "12345"})
	s.Put(ctx, PutParams{Key: "a", Value: "1"})
	s.Put(ctx, PutParams{Key: "a", Value: "12"})

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("unexpected keys %v", keys)
	}

	st, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalKeys != 2 || st.TotalRevisions != 3 {
		t.Errorf("expected 2 keys / 3 revisions, got %d / %d", st.TotalKeys, st.TotalRevisions)
	}
	if st.Keys[0].Key != "a" || st.Keys[0].Revisions != 2 || st.Keys[0].Bytes != 2 {
		t.Errorf("unexpected key stats %+v", st.Keys[0])
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}
