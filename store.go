package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFetcher provides read access to the outbox log. Fetching never mutates
// state; advancing the cursor is the handler's responsibility.
type EventFetcher interface {
	// FetchAfter returns up to limit events with id > cursor in ascending id order.
	FetchAfter(ctx context.Context, cursor int64, limit int) ([]Event, error)
}

// Lease is a claimed cursor lock for one listener.
type Lease struct {
	// Listener is the listener identifier the lease belongs to.
	Listener string
	// Holder identifies the claiming process.
	Holder uuid.UUID
	// Cursor is the listener's cursor at acquisition time.
	Cursor int64
	// ExpiresAt is the lock expiry as reported by the database clock.
	ExpiresAt time.Time
}

// CursorStore persists per-listener cursors and mediates the cursor lock.
// All coordination state lives in the database so the lock holds across any
// number of horizontally scaled processes.
type CursorStore interface {
	// EnsureListener creates the listener's cursor row if missing, initialized
	// to the current latest outbox id so a new listener does not replay history.
	EnsureListener(ctx context.Context, listener string) error

	// Acquire attempts a single-statement claim of the listener's lock.
	// It never blocks: ok is false when another live holder owns the lock.
	// A lock whose holder stopped refreshing becomes claimable once expired.
	Acquire(ctx context.Context, listener string, holder uuid.UUID, duration time.Duration) (lease Lease, ok bool, err error)

	// Refresh extends the lease expiry. Returns ErrLeaseLost when the lease
	// expired or was claimed by another holder.
	Refresh(ctx context.Context, lease Lease, duration time.Duration) error

	// Release atomically advances the cursor (never backwards) and frees the
	// lock. Returns ErrLeaseLost when the lease was no longer held; the cursor
	// advance is then lost and the events are redelivered to the next holder.
	Release(ctx context.Context, lease Lease, cursor int64) error
}
