package outbox

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesTriggers(t *testing.T) {
	var drains atomic.Int32
	d := NewDebouncer(func(context.Context) error {
		drains.Add(1)
		return nil
	}, WithDebounceWindow(20*time.Millisecond), WithMaxWait(100*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	for i := 0; i < 1000; i++ {
		d.Trigger()
	}

	time.Sleep(150 * time.Millisecond)
	if got := drains.Load(); got != 1 {
		t.Fatalf("expected 1 drain for a burst of triggers, got %d", got)
	}

	cancel()
	<-done
}

func TestDebouncerMaxWaitBoundsLatency(t *testing.T) {
	var drains atomic.Int32
	d := NewDebouncer(func(context.Context) error {
		drains.Add(1)
		return nil
	}, WithDebounceWindow(50*time.Millisecond), WithMaxWait(80*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	// Continuous triggering keeps re-arming the debounce window; the hard
	// ceiling must still force periodic drains.
	deadline := time.After(400 * time.Millisecond)
trigger:
	for {
		select {
		case <-deadline:
			break trigger
		default:
			d.Trigger()
			time.Sleep(5 * time.Millisecond)
		}
	}

	if got := drains.Load(); got < 2 {
		t.Fatalf("expected repeated drains under continuous triggering, got %d", got)
	}

	cancel()
	<-done
}

func TestDebouncerIdleRunsNothing(t *testing.T) {
	var drains atomic.Int32
	d := NewDebouncer(func(context.Context) error {
		drains.Add(1)
		return nil
	}, WithDebounceWindow(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if got := drains.Load(); got != 0 {
		t.Fatalf("expected no drains without triggers, got %d", got)
	}
}

func TestDebouncerTriggerDuringDrainSchedulesFollowUp(t *testing.T) {
	var (
		drains  atomic.Int32
		started = make(chan struct{}, 1)
		release = make(chan struct{})
	)
	d := NewDebouncer(func(context.Context) error {
		if drains.Add(1) == 1 {
			started <- struct{}{}
			<-release
		}
		return nil
	}, WithDebounceWindow(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	d.Trigger()
	<-started

	// Trigger while the first drain is still running.
	d.Trigger()
	close(release)

	waitFor(t, time.Second, func() bool { return drains.Load() >= 2 })

	cancel()
	<-done
}

func TestDebouncerRoutesErrors(t *testing.T) {
	wantErr := errors.New("boom")
	gotErr := make(chan error, 1)

	d := NewDebouncer(func(context.Context) error {
		return wantErr
	},
		WithDebounceWindow(5*time.Millisecond),
		WithDrainErrorHandler(func(err error) {
			select {
			case gotErr <- err:
			default:
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	d.Trigger()

	select {
	case err := <-gotErr:
		if !errors.Is(err, wantErr) {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("error handler not called")
	}

	cancel()
	<-done
}

func TestDebouncerRunReturnsOnCancel(t *testing.T) {
	d := NewDebouncer(func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewDebouncerNilFuncPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewDebouncer(nil)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
