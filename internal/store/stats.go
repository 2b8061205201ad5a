package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath       string           `json:"db_path"`
	DBSizeBytes  int64            `json:"db_size_bytes"`
	TotalEntries int              `json:"total_entries"`
	Sessions     int              `json:"sessions"`
	Namespaces   []NamespaceStats `json:"namespaces"`
}

// NamespaceStats holds per-session counts.
type NamespaceStats struct {
	NS      string `json:"ns"`
	Entries int    `json:"entries"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_entries`).Scan(&st.TotalEntries)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&st.Sessions)

	rows, err := s.db.QueryContext(ctx, `
		SELECT ns, COUNT(*) AS cnt FROM memory_entries
		GROUP BY ns ORDER BY cnt DESC, ns`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ns NamespaceStats
		rows.Scan(&ns.NS, &ns.Entries)
		st.Namespaces = append(st.Namespaces, ns)
	}

	return st, nil
}
