package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/eliza/internal/model"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SQLiteStore implements Store using SQLite. It also keeps each session's
// rotation cursors so a conversation can span processes.
// Single connection: SQLite serializes writers anyway.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex // guards entropy
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := MemoryDSN
	if dbPath != MemoryDSN {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
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

func (s *SQLiteStore) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entropy.Intn(n)
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_entries (
		id          TEXT PRIMARY KEY,
		ns          TEXT NOT NULL,
		phrase      TEXT NOT NULL,
		response    TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_ns ON memory_entries(ns);

	CREATE TABLE IF NOT EXISTS sessions (
		ns          TEXT PRIMARY KEY,
		cursors     TEXT NOT NULL DEFAULT '{}',
		last_input  TEXT,
		turns       INTEGER NOT NULL DEFAULT 0,
		updated_at  TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, p SaveParams) (*model.MemoryEntry, error) {
	now := time.Now().UTC()
	e := &model.MemoryEntry{
		ID:        s.newID(now),
		NS:        p.NS,
		Phrase:    p.Phrase,
		Response:  p.Response,
		CreatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_entries (id, ns, phrase, response, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.NS, e.Phrase, e.Response, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) PopRandom(ctx context.Context, ns string) (*model.MemoryEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_entries WHERE ns = ?`, ns).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmpty
	}

	row := tx.QueryRowContext(ctx,
		`SELECT id, ns, phrase, response, created_at FROM memory_entries
		 WHERE ns = ? ORDER BY rowid LIMIT 1 OFFSET ?`, ns, s.intn(n))
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("select entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_entries WHERE id = ?`, e.ID); err != nil {
		return nil, fmt.Errorf("delete entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) Count(ctx context.Context, ns string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_entries WHERE ns = ?`, ns).Scan(&n)
	return n, err
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.MemoryEntry, error) {
	var where []string
	var args []interface{}

	if p.NS != "" {
		where = append(where, "ns = ?")
		args = append(args, p.NS)
	}
	if p.Query != "" {
		where = append(where, "(LOWER(phrase) LIKE ? OR LOWER(response) LIKE ?)")
		q := "%" + strings.ToLower(p.Query) + "%"
		args = append(args, q, q)
	}

	query := `SELECT id, ns, phrase, response, created_at FROM memory_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ns, rowid"
	if p.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, p.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.MemoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context, ns string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE ns = ?`, ns)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SaveState upserts a session's rotation cursors and last input.
func (s *SQLiteStore) SaveState(ctx context.Context, st model.SessionState) error {
	cursors, err := json.Marshal(st.Cursors)
	if err != nil {
		return fmt.Errorf("encode cursors: %w", err)
	}
	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (ns, cursors, last_input, turns, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(ns) DO UPDATE SET cursors = excluded.cursors, last_input = excluded.last_input,
		   turns = excluded.turns, updated_at = excluded.updated_at`,
		st.NS, string(cursors), st.LastInput, st.Turns, updated.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadState returns a session's saved state or ErrNotFound.
func (s *SQLiteStore) LoadState(ctx context.Context, ns string) (*model.SessionState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ns, cursors, last_input, turns, updated_at FROM sessions WHERE ns = ?`, ns)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ns)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStates returns every saved session, most recently updated first.
func (s *SQLiteStore) ListStates(ctx context.Context) ([]model.SessionState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ns, cursors, last_input, turns, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []model.SessionState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// DeleteState forgets a session's cursors. Its memory entries are kept.
func (s *SQLiteStore) DeleteState(ctx context.Context, ns string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE ns = ?`, ns)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (model.MemoryEntry, error) {
	var e model.MemoryEntry
	var createdAt string
	if err := row.Scan(&e.ID, &e.NS, &e.Phrase, &e.Response, &createdAt); err != nil {
		return e, err
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return e, nil
}

func scanState(row scanner) (model.SessionState, error) {
	var st model.SessionState
	var cursors, updatedAt string
	var lastInput sql.NullString
	if err := row.Scan(&st.NS, &cursors, &lastInput, &st.Turns, &updatedAt); err != nil {
		return st, err
	}
	if lastInput.Valid {
		st.LastInput = lastInput.String
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	st.Cursors = map[string]int{}
	if err := json.Unmarshal([]byte(cursors), &st.Cursors); err != nil {
		return st, fmt.Errorf("decode cursors for %s: %w", st.NS, err)
	}
	return st, nil
}
