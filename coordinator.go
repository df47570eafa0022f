package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Coordinator owns the listener runners of one process. Every instance of the
// backend runs the same coordinator configuration; the per-listener cursor
// locks decide which instance actually advances each cursor.
type Coordinator struct {
	cursors CursorStore
	logger  Logger
	metrics Metrics
	clock   Clock

	runners map[string]*runner
	order   []string
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the coordinator metrics recorder.
func WithMetrics(metrics Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithClock sets the coordinator time source.
func WithClock(clock Clock) CoordinatorOption {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewCoordinator builds a coordinator from an explicit listener list.
func NewCoordinator(cursors CursorStore, listeners []ListenerConfig, opts ...CoordinatorOption) (*Coordinator, error) {
	if cursors == nil {
		return nil, ErrCursorStoreRequired
	}

	c := &Coordinator{
		cursors: cursors,
		logger:  NopLogger{},
		metrics: NopMetrics{},
		clock:   SystemClock{},
		runners: make(map[string]*runner, len(listeners)),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, cfg := range listeners {
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		if _, exists := c.runners[cfg.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateListener, cfg.Name)
		}

		cfg = cfg.withDefaults()
		c.runners[cfg.Name] = newRunner(cfg, cursors, c.logger, c.metrics, c.clock)
		c.order = append(c.order, cfg.Name)
	}

	return c, nil
}

// Trigger requests a debounced drain for one listener. Producers call it
// after committing a transaction that appended events the listener cares
// about. Missing the call only costs latency: the safety-net poll catches up.
func (c *Coordinator) Trigger(listener string) error {
	r, ok := c.runners[listener]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownListener, listener)
	}
	r.Trigger()

	return nil
}

// TriggerAll requests a drain for every listener.
func (c *Coordinator) TriggerAll() {
	for _, name := range c.order {
		c.runners[name].Trigger()
	}
}

// Run ensures every listener's cursor row, then runs all listeners until ctx
// is cancelled. Cancellation is a clean stop; any other runner error stops
// the rest and is returned.
func (c *Coordinator) Run(ctx context.Context) error {
	for _, name := range c.order {
		if err := c.cursors.EnsureListener(ctx, name); err != nil {
			return fmt.Errorf("outbox ensure listener %q: %w", name, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(c.order))
	var wg sync.WaitGroup

	for _, name := range c.order {
		wg.Add(1)
		r := c.runners[name]
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					err := fmt.Errorf("%w: %v", ErrRunnerPanic, rec)
					c.logger.Error("outbox runner panic", "listener", r.cfg.Name, "panic", rec)
					errCh <- err
					cancel()
				}
			}()

			// Drain once at startup to pick up any backlog accumulated while
			// this listener was down.
			r.Trigger()

			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("outbox runner error", "listener", r.cfg.Name, "err", err)
				errCh <- err
				cancel()
			}
		}()
	}

	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return err
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
