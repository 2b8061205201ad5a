package engine

import (
	"context"

	"github.com/rcliao/eliza/internal/model"
)

// Memory is a session's store of (phrase, response) pairs.
type Memory interface {
	Save(ctx context.Context, phrase, response string) error
	// PopRandom removes and returns a uniformly chosen entry. ok is false
	// when the store is empty.
	PopRandom(ctx context.Context) (entry model.MemoryEntry, ok bool, err error)
	Len(ctx context.Context) (int, error)
}
