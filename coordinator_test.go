package outbox

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewCoordinatorValidation(t *testing.T) {
	store := newFakeCursorStore()
	handler := HandlerFunc(func(_ context.Context, cursor int64) (Result, error) {
		return Result{Status: StatusNoEvents, Cursor: cursor}, nil
	})

	if _, err := NewCoordinator(nil, nil); !errors.Is(err, ErrCursorStoreRequired) {
		t.Fatalf("expected ErrCursorStoreRequired, got %v", err)
	}
	if _, err := NewCoordinator(store, []ListenerConfig{{Handler: handler}}); !errors.Is(err, ErrListenerNameRequired) {
		t.Fatalf("expected ErrListenerNameRequired, got %v", err)
	}
	if _, err := NewCoordinator(store, []ListenerConfig{{Name: "command"}}); !errors.Is(err, ErrHandlerRequired) {
		t.Fatalf("expected ErrHandlerRequired, got %v", err)
	}
	if _, err := NewCoordinator(store, []ListenerConfig{
		{Name: "command", Handler: handler},
		{Name: "command", Handler: handler},
	}); !errors.Is(err, ErrDuplicateListener) {
		t.Fatalf("expected ErrDuplicateListener, got %v", err)
	}
}

func TestCoordinatorTriggerUnknownListener(t *testing.T) {
	store := newFakeCursorStore()
	c, err := NewCoordinator(store, nil)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	if err := c.Trigger("command"); !errors.Is(err, ErrUnknownListener) {
		t.Fatalf("expected ErrUnknownListener, got %v", err)
	}
}

func TestCoordinatorProcessesBacklogOnStart(t *testing.T) {
	store := newFakeCursorStore()

	handler := HandlerFunc(func(_ context.Context, cursor int64) (Result, error) {
		if cursor < 5 {
			return Result{Status: StatusProcessed, Cursor: 5}, nil
		}

		return Result{Status: StatusNoEvents, Cursor: cursor}, nil
	})

	c, err := NewCoordinator(store, []ListenerConfig{{
		Name:     "command",
		Handler:  handler,
		Debounce: time.Millisecond,
		MaxWait:  5 * time.Millisecond,
	}})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, time.Second, func() bool { return store.cursor("command") == 5 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop")
	}

	if len(store.ensured) != 1 || store.ensured[0] != "command" {
		t.Fatalf("expected listener row ensured, got %v", store.ensured)
	}
}

func TestCoordinatorTriggerDrivesDrain(t *testing.T) {
	store := newFakeCursorStore()

	var target atomic.Int64
	handler := HandlerFunc(func(_ context.Context, cursor int64) (Result, error) {
		if want := target.Load(); cursor < want {
			return Result{Status: StatusProcessed, Cursor: want}, nil
		}

		return Result{Status: StatusNoEvents, Cursor: cursor}, nil
	})

	c, err := NewCoordinator(store, []ListenerConfig{{
		Name:         "command",
		Handler:      handler,
		Debounce:     time.Millisecond,
		MaxWait:      5 * time.Millisecond,
		PollInterval: -1,
	}})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, time.Second, func() bool { return store.releaseCount() >= 1 })

	// A producer commits event 9 and nudges the listener.
	target.Store(9)
	if err := c.Trigger("command"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	waitFor(t, time.Second, func() bool { return store.cursor("command") == 9 })

	cancel()
	<-done
}

func TestCoordinatorEnsureListenerFailure(t *testing.T) {
	store := newFakeCursorStore()
	store.ensureErr = errors.New("db down")

	handler := HandlerFunc(func(_ context.Context, cursor int64) (Result, error) {
		return Result{Status: StatusNoEvents, Cursor: cursor}, nil
	})

	c, err := NewCoordinator(store, []ListenerConfig{{Name: "command", Handler: handler}})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	if err := c.Run(context.Background()); !errors.Is(err, store.ensureErr) {
		t.Fatalf("expected ensure error, got %v", err)
	}
}

func TestCoordinatorRecoversRunnerPanic(t *testing.T) {
	store := newFakeCursorStore()

	handler := HandlerFunc(func(context.Context, int64) (Result, error) {
		panic("handler exploded")
	})

	c, err := NewCoordinator(store, []ListenerConfig{{
		Name:     "command",
		Handler:  handler,
		Debounce: time.Millisecond,
	}})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrRunnerPanic) {
			t.Fatalf("expected ErrRunnerPanic, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return after panic")
	}
}

func TestCoordinatorListenersFailIndependently(t *testing.T) {
	store := newFakeCursorStore()

	okHandler := HandlerFunc(func(_ context.Context, cursor int64) (Result, error) {
		if cursor < 3 {
			return Result{Status: StatusProcessed, Cursor: 3}, nil
		}

		return Result{Status: StatusNoEvents, Cursor: cursor}, nil
	})
	failHandler := HandlerFunc(func(_ context.Context, cursor int64) (Result, error) {
		return Result{Status: StatusError, Cursor: cursor}, errors.New("always failing")
	})

	metrics := &countingMetrics{}
	c, err := NewCoordinator(store, []ListenerConfig{
		{Name: "command", Handler: okHandler, Debounce: time.Millisecond},
		{
			Name:        "mention",
			Handler:     failHandler,
			Debounce:    time.Millisecond,
			MaxRetries:  1,
			BaseBackoff: time.Millisecond,
			MaxBackoff:  2 * time.Millisecond,
		},
	}, WithMetrics(metrics))
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// The failing listener exhausts retries without stopping the healthy one.
	waitFor(t, time.Second, func() bool { return store.cursor("command") == 3 })
	waitFor(t, time.Second, func() bool { return metrics.snapshot().failures >= 1 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}
