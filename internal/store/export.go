package store

import (
	"context"
	"time"

	"github.com/rcliao/eliza/internal/model"
)

// ExportAll returns every memory entry, optionally filtered by namespace.
func (s *SQLiteStore) ExportAll(ctx context.Context, ns string) ([]model.MemoryEntry, error) {
	return s.List(ctx, ListParams{NS: ns})
}

// Import stores entries from an export. Entries whose ID already exists are
// skipped; entries without an ID get a fresh one.
func (s *SQLiteStore) Import(ctx context.Context, entries []model.MemoryEntry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	imported := 0
	for _, e := range entries {
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		id := e.ID
		if id == "" {
			id = s.newID(created)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO memory_entries (id, ns, phrase, response, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, e.NS, e.Phrase, e.Response, created.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return imported, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return imported, nil
}
