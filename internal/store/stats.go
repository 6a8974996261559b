package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string     `json:"db_path"`
	DBSizeBytes    int64      `json:"db_size_bytes"`
	TotalKeys      int        `json:"total_keys"`
	TotalRevisions int        `json:"total_revisions"`
	Keys           []KeyStats `json:"keys"`
}

// KeyStats holds per-key counts.
type KeyStats struct {
	Key       string `json:"key"`
	Bytes     int    `json:"bytes"`
	Revisions int    `json:"revisions"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs`).Scan(&st.TotalKeys)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revisions`).Scan(&st.TotalRevisions)

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.key, length(b.value), COUNT(r.id)
		FROM blobs b LEFT JOIN revisions r ON r.key = b.key
		GROUP BY b.key ORDER BY b.key`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ks KeyStats
		rows.Scan(&ks.Key, &ks.Bytes, &ks.Revisions)
		st.Keys = append(st.Keys, ks)
	}

	return st, nil
}
