package outbox

import "context"

// Status reports the outcome of one handler invocation.
type Status int

const (
	// StatusNoEvents indicates there was nothing after the cursor.
	StatusNoEvents Status = iota
	// StatusProcessed indicates the whole batch was handled.
	StatusProcessed
	// StatusError indicates the batch aborted partway; Result.Cursor carries
	// the last fully handled event id.
	StatusError
)

// Result describes how far a handler got.
type Result struct {
	Status Status
	// Cursor is the id of the last fully handled event. On StatusError it
	// still reflects real progress so the cursor advances past safely
	// processed events and never regresses.
	Cursor int64
}

// Handler consumes outbox events for one listener. Implementations fetch a
// bounded batch after cursor, perform side effects in ascending id order and
// report the new cursor. Side effects must be idempotent: a crash between
// "side effect performed" and "cursor advanced" redelivers the event.
type Handler interface {
	ProcessEvents(ctx context.Context, cursor int64) (Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, cursor int64) (Result, error)

// ProcessEvents implements Handler.
func (fn HandlerFunc) ProcessEvents(ctx context.Context, cursor int64) (Result, error) {
	return fn(ctx, cursor)
}
