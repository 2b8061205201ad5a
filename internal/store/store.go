// Package store provides Memory Store backends: an in-process store and a
// SQLite store that also persists session state between processes.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/eliza/internal/model"
)

// Common errors returned by stores.
var (
	ErrEmpty    = errors.New("memory is empty")
	ErrNotFound = errors.New("session not found")
)

// SaveParams holds parameters for recording a memory entry.
type SaveParams struct {
	NS       string
	Phrase   string
	Response string
}

// ListParams holds parameters for listing memory entries.
type ListParams struct {
	NS    string
	Query string // substring of phrase or response, case-insensitive
	Limit int
}

// Store defines the memory storage interface. Entries are namespaced by
// session; nothing is shared across namespaces.
type Store interface {
	// Save appends an entry to the namespace.
	Save(ctx context.Context, p SaveParams) (*model.MemoryEntry, error)

	// PopRandom removes and returns a uniformly chosen entry.
	// Returns ErrEmpty when the namespace holds none.
	PopRandom(ctx context.Context, ns string) (*model.MemoryEntry, error)

	// Count returns the number of entries in the namespace.
	Count(ctx context.Context, ns string) (int, error)

	// List returns entries in save order.
	List(ctx context.Context, p ListParams) ([]model.MemoryEntry, error)

	// Clear removes every entry in the namespace and returns how many.
	Clear(ctx context.Context, ns string) (int, error)

	// Close closes the store.
	Close() error
}
