package store

import (
	"context"
	"errors"

	"github.com/rcliao/eliza/internal/model"
)

// Scoped binds a Store to one namespace and satisfies the engine's Memory
// interface.
type Scoped struct {
	store Store
	ns    string
}

// Scope returns a view of s restricted to ns.
func Scope(s Store, ns string) *Scoped {
	return &Scoped{store: s, ns: ns}
}

// NS returns the bound namespace.
func (m *Scoped) NS() string { return m.ns }

func (m *Scoped) Save(ctx context.Context, phrase, response string) error {
	_, err := m.store.Save(ctx, SaveParams{NS: m.ns, Phrase: phrase, Response: response})
	return err
}

func (m *Scoped) PopRandom(ctx context.Context) (model.MemoryEntry, bool, error) {
	e, err := m.store.PopRandom(ctx, m.ns)
	if errors.Is(err, ErrEmpty) {
		return model.MemoryEntry{}, false, nil
	}
	if err != nil {
		return model.MemoryEntry{}, false, err
	}
	return *e, true, nil
}

func (m *Scoped) Len(ctx context.Context) (int, error) {
	return m.store.Count(ctx, m.ns)
}
