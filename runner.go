package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// runner drives one listener: debounced triggers, the cursor-lock state
// machine and bounded retry with backoff.
type runner struct {
	cfg       ListenerConfig
	cursors   CursorStore
	logger    Logger
	metrics   Metrics
	debouncer *Debouncer
}

func newRunner(cfg ListenerConfig, cursors CursorStore, logger Logger, metrics Metrics, clock Clock) *runner {
	r := &runner{
		cfg:     cfg,
		cursors: cursors,
		logger:  logger,
		metrics: metrics,
	}
	r.debouncer = NewDebouncer(r.drain,
		WithDebounceWindow(cfg.Debounce),
		WithMaxWait(cfg.MaxWait),
		WithDebounceClock(clock),
		WithDrainErrorHandler(func(err error) {
			r.metrics.AddFailures(cfg.Name, 1)
			r.logger.Error("outbox drain failed", "listener", cfg.Name, "err", err)
		}),
	)

	return r
}

// Trigger requests a debounced drain.
func (r *runner) Trigger() {
	r.debouncer.Trigger()
}

// Run owns the listener until ctx is cancelled: the debounce loop plus the
// safety-net poll that re-triggers a stuck listener.
func (r *runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if r.cfg.PollInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ticker := time.NewTicker(r.cfg.PollInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					r.debouncer.Trigger()
				}
			}
		}()
	}

	err := r.debouncer.Run(ctx)
	cancel()
	wg.Wait()

	return err
}

// drain retries the acquire/process/release cycle with exponential backoff
// and full jitter until it succeeds or the retry budget is exhausted.
func (r *runner) drain(ctx context.Context) error {
	start := time.Now()
	defer func() {
		r.metrics.ObserveDrainDuration(r.cfg.Name, time.Since(start))
	}()

	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			r.metrics.AddRetries(r.cfg.Name, 1)
			delay := FullJitter(ExponentialBackoff(r.cfg.BaseBackoff, attempt-1, r.cfg.MaxBackoff))
			if err := WaitContext(ctx, delay); err != nil {
				return err
			}
		}

		err := r.drainOnce(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		lastErr = err
		r.logger.Warn("outbox drain attempt failed",
			"listener", r.cfg.Name, "attempt", attempt+1, "err", err)
	}

	return fmt.Errorf("%w: listener %q: %w", ErrRetriesExhausted, r.cfg.Name, lastErr)
}

// drainOnce runs one pass of the lock state machine. Lock contention is a
// normal no-op outcome: another instance is draining this listener.
func (r *runner) drainOnce(ctx context.Context) error {
	lease, ok, err := r.cursors.Acquire(ctx, r.cfg.Name, uuid.New(), r.cfg.LockDuration)
	if err != nil {
		return fmt.Errorf("outbox acquire %q lock: %w", r.cfg.Name, err)
	}
	if !ok {
		r.logger.Debug("outbox lock held elsewhere", "listener", r.cfg.Name)

		return nil
	}

	procCtx, cancelProc := context.WithCancel(ctx)
	defer cancelProc()

	var refreshWg sync.WaitGroup
	refreshWg.Add(1)
	go func() {
		defer refreshWg.Done()
		r.refreshLoop(procCtx, cancelProc, lease)
	}()

	cursor, procErr := r.process(procCtx, lease.Cursor)
	cancelProc()
	refreshWg.Wait()

	// Partial progress is persisted even on failure so the cursor advances
	// past safely processed events before the retry.
	if releaseErr := r.cursors.Release(ctx, lease, cursor); releaseErr != nil {
		if procErr != nil {
			return errors.Join(procErr, fmt.Errorf("outbox release %q lock: %w", r.cfg.Name, releaseErr))
		}

		return fmt.Errorf("outbox release %q lock: %w", r.cfg.Name, releaseErr)
	}
	r.metrics.SetCursor(r.cfg.Name, cursor)

	return procErr
}

// process calls the handler repeatedly until it reports no events, carrying
// the cursor forward across batches. The cursor never regresses.
func (r *runner) process(ctx context.Context, cursor int64) (int64, error) {
	for {
		result, err := r.cfg.Handler.ProcessEvents(ctx, cursor)
		if err != nil {
			if result.Cursor > cursor {
				cursor = result.Cursor
			}

			return cursor, err
		}

		switch result.Status {
		case StatusNoEvents:
			return cursor, nil
		case StatusProcessed:
			if result.Cursor <= cursor {
				return cursor, nil
			}
			cursor = result.Cursor
		default:
			return cursor, fmt.Errorf("outbox handler for %q returned status %d without error", r.cfg.Name, result.Status)
		}
	}
}

// refreshLoop keeps the lease alive while a batch runs; losing the lease
// aborts processing so two holders never advance the same cursor.
func (r *runner) refreshLoop(ctx context.Context, cancel context.CancelFunc, lease Lease) {
	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.cursors.Refresh(ctx, lease, r.cfg.LockDuration); err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("outbox lock refresh failed; aborting drain",
						"listener", r.cfg.Name, "err", err)
				}
				cancel()

				return
			}
		}
	}
}
