package offline

import (
	"context"
	"time"
)

// Store is the durable queue storage. Implementations must enforce
// idempotency-key uniqueness: enqueuing a payload whose key already exists
// returns the existing entry rather than duplicating it.
type Store interface {
	// Enqueue persists a new entry, or returns the existing one when the
	// idempotency key is already queued.
	Enqueue(ctx context.Context, entry Entry) (Entry, error)
	// Get loads one entry by ID.
	Get(ctx context.Context, id string) (Entry, error)
	// FindByKey loads one entry by idempotency key.
	FindByKey(ctx context.Context, key string) (Entry, error)
	// ListByStatus returns entries in the given state, oldest first.
	ListByStatus(ctx context.Context, status Status) ([]Entry, error)
	// Update persists a status transition.
	Update(ctx context.Context, entry Entry) error
	// DeleteSyncedBefore removes synced entries older than the cutoff and
	// reports how many were collected.
	DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
