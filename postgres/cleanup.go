package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	outbox "github.com/kristofferremback/threa-outbox"
)

const (
	defaultCleanupLimit     = 10000
	defaultCleanupEvery     = time.Hour
	cleanupLockKeyPrefix    = "outbox:cleanup:"
	cleanupLockKeyNamespace = int32(0x6f75) // "ou"
)

// CleanupOptions defines how to delete fully consumed events.
type CleanupOptions struct {
	// Before removes events created before this timestamp (required).
	Before time.Time
	// Limit caps the number of rows deleted per call (0 uses the default).
	Limit int
}

// CleanupResult reports how many rows were removed.
type CleanupResult struct {
	Deleted int64
}

// CleanupMaintainerConfig controls periodic deletion of consumed events.
type CleanupMaintainerConfig struct {
	// EventsTable is the event table name (empty uses the default).
	EventsTable string
	// CursorsTable is the cursor table name (empty uses the default).
	CursorsTable string
	// Retention removes events older than now-retention (required).
	Retention time.Duration
	// CheckEvery is the interval between cleanup runs.
	CheckEvery time.Duration
	// Limit caps the number of rows deleted per run (0 uses the default).
	Limit int
	// Clock overrides the time source (useful for tests).
	Clock outbox.Clock
	// Logger receives warnings about cleanup failures.
	Logger outbox.Logger
}

// CleanupMaintainer runs periodic cleanup of events every listener has
// already consumed. A session-scoped advisory lock keeps concurrent
// maintainers from deleting in parallel.
type CleanupMaintainer struct {
	store   *Store
	cfg     CleanupMaintainerConfig
	lockKey int32
}

// Cleanup removes events that are both older than opts.Before and at or
// below the minimum listener cursor. Events no listener has consumed yet are
// never deleted regardless of age.
func (s *Store) Cleanup(ctx context.Context, opts CleanupOptions) (CleanupResult, error) {
	if opts.Before.IsZero() {
		return CleanupResult{}, ErrCleanupBeforeRequired
	}
	limit := opts.Limit
	if limit == 0 {
		limit = defaultCleanupLimit
	}
	if limit < 0 {
		return CleanupResult{}, ErrCleanupLimitInvalid
	}

	var minCursor int64
	if err := s.db.QueryRowContext(ctx, s.queries.minCursor).Scan(&minCursor); err != nil {
		return CleanupResult{}, fmt.Errorf("outbox postgres: cleanup min cursor failed: %w", err)
	}
	if minCursor == 0 {
		return CleanupResult{}, nil
	}

	res, err := s.db.ExecContext(ctx, s.queries.prune, minCursor, opts.Before, limit)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("outbox postgres: cleanup delete failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return CleanupResult{}, fmt.Errorf("outbox postgres: cleanup rows failed: %w", err)
	}

	return CleanupResult{Deleted: affected}, nil
}

// NewCleanupMaintainer creates a cleanup maintainer with defaults applied.
func NewCleanupMaintainer(db *sql.DB, cfg CleanupMaintainerConfig) (*CleanupMaintainer, error) {
	if db == nil {
		return nil, ErrDBRequired
	}
	if cfg.Retention <= 0 {
		return nil, ErrCleanupRetentionInvalid
	}
	if cfg.Clock == nil {
		cfg.Clock = outbox.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = outbox.NopLogger{}
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = defaultCleanupEvery
	}
	if cfg.Limit == 0 {
		cfg.Limit = defaultCleanupLimit
	}
	if cfg.Limit < 0 {
		return nil, ErrCleanupLimitInvalid
	}

	store, err := NewStore(
		db,
		WithEventsTable(cfg.EventsTable),
		WithCursorsTable(cfg.CursorsTable),
		WithValidatePayload(false),
	)
	if err != nil {
		return nil, err
	}
	cfg.EventsTable = store.cfg.EventsTable
	cfg.CursorsTable = store.cfg.CursorsTable

	return &CleanupMaintainer{
		store:   store,
		cfg:     cfg,
		lockKey: lockKey(cleanupLockKeyPrefix + cfg.EventsTable),
	}, nil
}

// Run periodically deletes consumed events until the context is canceled.
func (m *CleanupMaintainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.CheckEvery)
	defer ticker.Stop()

	if _, err := m.Ensure(ctx); err != nil {
		m.cfg.Logger.Warn("outbox cleanup failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Ensure(ctx); err != nil {
				m.cfg.Logger.Warn("outbox cleanup failed", "err", err)
			}
		}
	}
}

// Ensure executes a single cleanup pass.
func (m *CleanupMaintainer) Ensure(ctx context.Context) (CleanupResult, error) {
	conn, err := m.store.db.Conn(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("outbox postgres: cleanup conn failed: %w", err)
	}
	defer conn.Close()

	locked, err := m.tryLock(ctx, conn)
	if err != nil {
		return CleanupResult{}, err
	}
	if !locked {
		m.cfg.Logger.Debug("outbox cleanup lock held by another session")

		return CleanupResult{}, nil
	}
	defer m.releaseLock(ctx, conn)

	before := m.cfg.Clock.Now().Add(-m.cfg.Retention)

	return m.store.Cleanup(ctx, CleanupOptions{Before: before, Limit: m.cfg.Limit})
}

func (m *CleanupMaintainer) tryLock(ctx context.Context, conn *sql.Conn) (bool, error) {
	var got bool
	err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1, $2)", cleanupLockKeyNamespace, m.lockKey).Scan(&got)
	if err != nil {
		return false, fmt.Errorf("outbox postgres: acquire cleanup lock failed: %w", err)
	}

	return got, nil
}

func (m *CleanupMaintainer) releaseLock(ctx context.Context, conn *sql.Conn) {
	var released bool
	err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1, $2)", cleanupLockKeyNamespace, m.lockKey).Scan(&released)
	if err != nil {
		m.cfg.Logger.Warn("outbox cleanup release lock failed", "err", err)
	}
}

func lockKey(name string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))

	return int32(h.Sum32())
}
