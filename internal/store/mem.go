package store

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/eliza/internal/model"
)

// MemStore implements Store in process memory. It is unbounded; only
// PopRandom and Clear remove entries.
type MemStore struct {
	mu      sync.Mutex
	entries map[string][]model.MemoryEntry
	entropy *rand.Rand
}

// NewMemStore creates an empty store. A nil rng seeds from the clock.
func NewMemStore(rng *rand.Rand) *MemStore {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MemStore{entries: map[string][]model.MemoryEntry{}, entropy: rng}
}

func (s *MemStore) Save(ctx context.Context, p SaveParams) (*model.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	e := model.MemoryEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		NS:        p.NS,
		Phrase:    p.Phrase,
		Response:  p.Response,
		CreatedAt: now,
	}
	s.entries[p.NS] = append(s.entries[p.NS], e)
	return &e, nil
}

func (s *MemStore) PopRandom(ctx context.Context, ns string) (*model.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[ns]
	if len(list) == 0 {
		return nil, ErrEmpty
	}
	i := s.entropy.Intn(len(list))
	e := list[i]
	s.entries[ns] = append(list[:i:i], list[i+1:]...)
	return &e, nil
}

func (s *MemStore) Count(ctx context.Context, ns string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[ns]), nil
}

func (s *MemStore) List(ctx context.Context, p ListParams) ([]model.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var namespaces []string
	if p.NS != "" {
		namespaces = []string{p.NS}
	} else {
		for ns := range s.entries {
			namespaces = append(namespaces, ns)
		}
		sort.Strings(namespaces)
	}

	q := strings.ToLower(p.Query)
	var out []model.MemoryEntry
	for _, ns := range namespaces {
		for _, e := range s.entries[ns] {
			if q != "" && !strings.Contains(strings.ToLower(e.Phrase), q) &&
				!strings.Contains(strings.ToLower(e.Response), q) {
				continue
			}
			out = append(out, e)
			if p.Limit > 0 && len(out) >= p.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *MemStore) Clear(ctx context.Context, ns string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries[ns])
	delete(s.entries, ns)
	return n, nil
}

func (s *MemStore) Close() error { return nil }
