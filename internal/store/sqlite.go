package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/canvas-state/internal/model"
)

// DefaultKeep is the number of revisions retained per key.
const DefaultKeep = 20

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	keep int

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithKeep sets how many revisions are retained per key. Values below 1 keep DefaultKeep.
func WithKeep(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.keep = n
		}
	}
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		keep:    DefaultKeep,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blobs (
		key          TEXT PRIMARY KEY,
		value        TEXT NOT NULL,
		revision_id  TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS revisions (
		id          TEXT PRIMARY KEY,
		key         TEXT NOT NULL,
		value       TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_revisions_key ON revisions(key, id DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, p PutParams) (*model.Blob, error) {
	if p.Key == "" {
		return nil, fmt.Errorf("put: key is required")
	}

	now := time.Now().UTC()
	id := s.newID(now)
	ts := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO blobs (key, value, revision_id, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		   revision_id = excluded.revision_id, updated_at = excluded.updated_at`,
		p.Key, p.Value, id, ts)
	if err != nil {
		return nil, fmt.Errorf("upsert blob: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO revisions (id, key, value, created_at) VALUES (?, ?, ?, ?)`,
		id, p.Key, p.Value, ts)
	if err != nil {
		return nil, fmt.Errorf("insert revision: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM revisions WHERE key = ? AND id NOT IN (
			SELECT id FROM revisions WHERE key = ? ORDER BY id DESC LIMIT ?)`,
		p.Key, p.Key, s.keep)
	if err != nil {
		return nil, fmt.Errorf("prune revisions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Blob{Key: p.Key, Value: p.Value, RevisionID: id, UpdatedAt: now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*model.Blob, error) {
	var b model.Blob
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, revision_id, updated_at FROM blobs WHERE key = ?`, key).
		Scan(&b.Key, &b.Value, &b.RevisionID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &b, nil
}

// History returns revisions of a key, newest first. Values are omitted.
func (s *SQLiteStore) History(ctx context.Context, key string, limit int) ([]model.Revision, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, length(value), created_at FROM revisions
		 WHERE key = ? ORDER BY id DESC LIMIT ?`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []model.Revision
	for rows.Next() {
		var r model.Revision
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Key, &r.Size, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// Revision returns a single revision including its value.
func (s *SQLiteStore) Revision(ctx context.Context, id string) (*model.Revision, error) {
	var r model.Revision
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, key, value, created_at FROM revisions WHERE id = ?`, id).
		Scan(&r.ID, &r.Key, &r.Value, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	r.Size = len(r.Value)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &r, nil
}

// Keys lists every stored key.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM blobs ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Rm(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("blob %q: %w", key, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM revisions WHERE key = ?`, key); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
