//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	outbox "github.com/kristofferremback/threa-outbox"
	"github.com/kristofferremback/threa-outbox/postgres"
)

func startPostgres(t *testing.T, ctx context.Context) *sql.DB {
	t.Helper()

	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("outbox"),
		tcpg.WithUsername("outbox"),
		tcpg.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Skipf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	setupSchema(t, ctx, db)

	return db
}

func setupSchema(t *testing.T, ctx context.Context, db *sql.DB) {
	t.Helper()
	stmts, err := postgres.Schema()
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err = db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
}

func TestStoreAppendFetchIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	db := startPostgres(t, ctx)
	store := postgres.MustNewStore(db)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := store.Append(ctx, outbox.Entry{
			EventType: "message.created",
			Payload:   json.RawMessage(`{"body":"hello"}`),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.IsIncreasing(t, ids)

	events, err := store.FetchAfter(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, ids[0], events[0].ID)
	require.Equal(t, "message.created", events[0].EventType)
	require.JSONEq(t, `{"body":"hello"}`, string(events[0].Payload))
	require.False(t, events[0].CreatedAt.IsZero())

	// Cursor semantics: strictly greater than, capped by limit.
	events, err = store.FetchAfter(ctx, ids[0], 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, ids[1], events[0].ID)

	events, err = store.FetchAfter(ctx, ids[2], 10)
	require.NoError(t, err)
	require.Empty(t, events)

	latest, err := store.LatestID(ctx)
	require.NoError(t, err)
	require.Equal(t, ids[2], latest)
}

func TestStoreAppendTxRollbackIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	db := startPostgres(t, ctx)
	store := postgres.MustNewStore(db)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	_, err = store.AppendTx(ctx, tx, outbox.Entry{
		EventType: "message.created",
		Payload:   json.RawMessage(`{"body":"doomed"}`),
	})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	events, err := store.FetchAfter(ctx, 0, 10)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestNextSequenceConcurrencyIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	db := startPostgres(t, ctx)
	store := postgres.MustNewStore(db)

	const (
		workers    = 10
		perWorker  = 20
		allocTotal = workers * perWorker
	)

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, allocTotal)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				seq, err := store.NextSequence(ctx, "channel:1")
				require.NoError(t, err)
				mu.Lock()
				seen[seq] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, allocTotal)
	for seq := int64(1); seq <= allocTotal; seq++ {
		require.Contains(t, seen, seq)
	}

	// Independent streams do not share counters.
	seq, err := store.NextSequence(ctx, "channel:2")
	require.NoError(t, err)
	require.Equal(t, int64(1), seq)
}

func TestNextSequenceBatchIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	db := startPostgres(t, ctx)
	store := postgres.MustNewStore(db)

	first, err := store.NextSequenceBatch(ctx, "thread:7", 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), first)

	next, err := store.NextSequence(ctx, "thread:7")
	require.NoError(t, err)
	require.Equal(t, int64(6), next)
}

func TestCursorLockIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	db := startPostgres(t, ctx)
	store := postgres.MustNewStore(db)

	id, err := store.Append(ctx, outbox.Entry{EventType: "message.created", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	// A new listener starts at the latest id, ensured idempotently.
	require.NoError(t, store.EnsureListener(ctx, "dispatch"))
	require.NoError(t, store.EnsureListener(ctx, "dispatch"))

	holderA := uuid.New()
	holderB := uuid.New()

	lease, ok, err := store.Acquire(ctx, "dispatch", holderA, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, lease.Cursor)
	require.Equal(t, holderA, lease.Holder)
	require.False(t, lease.ExpiresAt.IsZero())

	// Held locks are not claimable by anyone else.
	_, ok, err = store.Acquire(ctx, "dispatch", holderB, 10*time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Refresh(ctx, lease, 10*time.Second))

	id2, err := store.Append(ctx, outbox.Entry{EventType: "message.created", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, lease, id2))

	// Released leases cannot be refreshed or released again.
	require.ErrorIs(t, store.Refresh(ctx, lease, 10*time.Second), outbox.ErrLeaseLost)
	require.ErrorIs(t, store.Release(ctx, lease, id2), outbox.ErrLeaseLost)

	lease2, ok, err := store.Acquire(ctx, "dispatch", holderB, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id2, lease2.Cursor)

	// The cursor never moves backwards.
	require.NoError(t, store.Release(ctx, lease2, id))
	lease3, ok, err := store.Acquire(ctx, "dispatch", holderA, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id2, lease3.Cursor)
	require.NoError(t, store.Release(ctx, lease3, lease3.Cursor))
}

func TestCursorLockExpiryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	db := startPostgres(t, ctx)
	store := postgres.MustNewStore(db)

	require.NoError(t, store.EnsureListener(ctx, "dispatch"))

	holderA := uuid.New()
	holderB := uuid.New()

	leaseA, ok, err := store.Acquire(ctx, "dispatch", holderA, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// A lapsed lock becomes claimable without any release.
	time.Sleep(1500 * time.Millisecond)

	leaseB, ok, err := store.Acquire(ctx, "dispatch", holderB, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// The evicted holder can no longer refresh or commit progress.
	require.ErrorIs(t, store.Refresh(ctx, leaseA, 10*time.Second), outbox.ErrLeaseLost)
	require.ErrorIs(t, store.Release(ctx, leaseA, 100), outbox.ErrLeaseLost)

	require.NoError(t, store.Release(ctx, leaseB, leaseB.Cursor))
}

func TestCursorLockSingleWinnerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	db := startPostgres(t, ctx)
	store := postgres.MustNewStore(db)

	require.NoError(t, store.EnsureListener(ctx, "dispatch"))

	const claimers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.Acquire(ctx, "dispatch", uuid.New(), 10*time.Second)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
}
