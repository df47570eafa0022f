package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	outbox "github.com/kristofferremback/threa-outbox"
)

// Executor allows appending within an existing transaction.
type Executor interface {
	// ExecContext executes a statement with the provided context.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	// QueryRowContext executes a query expected to return at most one row.
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the Postgres-backed outbox: append-only event log,
// per-listener cursor locks and per-stream sequence counters.
type Store struct {
	db      *sql.DB
	cfg     Config
	queries queries
}

var _ outbox.EventFetcher = (*Store)(nil)
var _ outbox.CursorStore = (*Store)(nil)

// NewStore constructs a Postgres store with validated configuration.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	events, err := sanitizeTableName(cfg.EventsTable)
	if err != nil {
		return nil, err
	}
	cursors, err := sanitizeTableName(cfg.CursorsTable)
	if err != nil {
		return nil, err
	}
	sequences, err := sanitizeTableName(cfg.SequencesTable)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		cfg:     cfg,
		queries: newQueries(events, cursors, sequences),
	}, nil
}

// MustNewStore constructs a Postgres store or panics on error.
func MustNewStore(db *sql.DB, opts ...Option) *Store {
	store, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// Append inserts an outbox entry using the store's own connection pool.
// Prefer AppendTx inside the transaction that writes the domain state.
func (s *Store) Append(ctx context.Context, entry outbox.Entry) (int64, error) {
	return s.AppendTx(ctx, s.db, entry)
}

// AppendTx inserts an outbox entry using the provided executor
// (transaction preferred) and returns the assigned event id.
func (s *Store) AppendTx(ctx context.Context, exec Executor, entry outbox.Entry) (int64, error) {
	if exec == nil {
		return 0, ErrExecutorRequired
	}
	if err := outbox.ValidateEntry(entry, s.cfg.ValidatePayload); err != nil {
		return 0, err
	}

	var id int64
	err := exec.QueryRowContext(ctx, s.queries.insertEvent, entry.EventType, []byte(entry.Payload)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("outbox postgres: insert event failed: %w", err)
	}

	return id, nil
}

// AppendMany inserts entries in order using the provided executor and
// returns the assigned ids. Entries are validated before the first insert.
func (s *Store) AppendMany(ctx context.Context, exec Executor, entries []outbox.Entry) ([]int64, error) {
	if exec == nil {
		return nil, ErrExecutorRequired
	}
	for _, entry := range entries {
		if err := outbox.ValidateEntry(entry, s.cfg.ValidatePayload); err != nil {
			return nil, err
		}
	}

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		var id int64
		err := exec.QueryRowContext(ctx, s.queries.insertEvent, entry.EventType, []byte(entry.Payload)).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("outbox postgres: insert event failed: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// FetchAfter returns up to limit events with id > cursor in ascending id order.
func (s *Store) FetchAfter(ctx context.Context, cursor int64, limit int) ([]outbox.Event, error) {
	if limit <= 0 {
		return nil, outbox.ErrInvalidBatchSize
	}

	rows, err := s.db.QueryContext(ctx, s.queries.fetchAfter, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox postgres: fetch failed: %w", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var (
			event   outbox.Event
			payload []byte
		)
		if err := rows.Scan(&event.ID, &event.EventType, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("outbox postgres: scan event failed: %w", err)
		}
		event.Payload = payload
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox postgres: fetch failed: %w", err)
	}

	return events, nil
}

// LatestID returns the highest event id, or 0 when the log is empty.
func (s *Store) LatestID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, s.queries.latestID).Scan(&id); err != nil {
		return 0, fmt.Errorf("outbox postgres: latest id failed: %w", err)
	}

	return id, nil
}

// EnsureListener creates the listener's cursor row if missing, initialized to
// the current latest event id.
func (s *Store) EnsureListener(ctx context.Context, listener string) error {
	if listener == "" {
		return ErrListenerRequired
	}

	if _, err := s.db.ExecContext(ctx, s.queries.ensureListener, listener); err != nil {
		return fmt.Errorf("outbox postgres: ensure listener failed: %w", err)
	}

	return nil
}

// Acquire attempts a single-statement claim of the listener's cursor lock.
// The expiry is computed on the database clock, so holders on machines with
// skewed clocks still agree on when a lock lapses.
func (s *Store) Acquire(ctx context.Context, listener string, holder uuid.UUID, duration time.Duration) (outbox.Lease, bool, error) {
	if listener == "" {
		return outbox.Lease{}, false, ErrListenerRequired
	}
	if holder == uuid.Nil {
		return outbox.Lease{}, false, ErrHolderRequired
	}
	if duration <= 0 {
		return outbox.Lease{}, false, ErrInvalidLockDuration
	}

	lease := outbox.Lease{Listener: listener, Holder: holder}
	err := s.db.QueryRowContext(ctx, s.queries.acquire, listener, holder, durationSeconds(duration)).
		Scan(&lease.Cursor, &lease.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return outbox.Lease{}, false, nil
	}
	if err != nil {
		return outbox.Lease{}, false, fmt.Errorf("outbox postgres: acquire lock failed: %w", err)
	}

	return lease, true, nil
}

// Refresh extends the lease expiry on the database clock. Returns
// outbox.ErrLeaseLost when the lease expired or was claimed by another holder.
func (s *Store) Refresh(ctx context.Context, lease outbox.Lease, duration time.Duration) error {
	if duration <= 0 {
		return ErrInvalidLockDuration
	}

	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, s.queries.refresh, lease.Listener, lease.Holder, durationSeconds(duration)).
		Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return outbox.ErrLeaseLost
	}
	if err != nil {
		return fmt.Errorf("outbox postgres: refresh lock failed: %w", err)
	}

	return nil
}

// Release advances the cursor (never backwards) and frees the lock in one
// statement. An expired but still-held lease may release: the expiry check
// happens at acquisition, so a slow holder only loses progress when another
// holder actually claimed the lock in between.
func (s *Store) Release(ctx context.Context, lease outbox.Lease, cursor int64) error {
	res, err := s.db.ExecContext(ctx, s.queries.release, lease.Listener, lease.Holder, cursor)
	if err != nil {
		return fmt.Errorf("outbox postgres: release lock failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("outbox postgres: release lock failed: %w", err)
	}
	if affected == 0 {
		return outbox.ErrLeaseLost
	}

	return nil
}

// NextSequence atomically allocates the next value for the stream, starting
// at 1 for a new stream.
func (s *Store) NextSequence(ctx context.Context, stream string) (int64, error) {
	return s.nextSequence(ctx, s.db, stream, 1)
}

// NextSequenceTx allocates the next value for the stream inside the caller's
// transaction. The counter row stays row-locked until the transaction ends,
// which serializes concurrent allocations for the same stream.
func (s *Store) NextSequenceTx(ctx context.Context, exec Executor, stream string) (int64, error) {
	if exec == nil {
		return 0, ErrExecutorRequired
	}

	return s.nextSequence(ctx, exec, stream, 1)
}

// NextSequenceBatch atomically reserves count consecutive values for the
// stream and returns the first of them.
func (s *Store) NextSequenceBatch(ctx context.Context, stream string, count int64) (int64, error) {
	return s.nextSequence(ctx, s.db, stream, count)
}

func (s *Store) nextSequence(ctx context.Context, exec Executor, stream string, count int64) (int64, error) {
	if stream == "" {
		return 0, ErrStreamRequired
	}
	if count <= 0 {
		return 0, ErrInvalidSequenceCount
	}

	var first int64
	err := exec.QueryRowContext(ctx, s.queries.nextSequence, stream, count).Scan(&first)
	if err != nil {
		return 0, fmt.Errorf("outbox postgres: next sequence failed: %w", err)
	}

	return first, nil
}

func durationSeconds(d time.Duration) float64 {
	return d.Seconds()
}
