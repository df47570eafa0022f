package outbox

import (
	"context"
	"time"
)

const (
	defaultDebounce = 50 * time.Millisecond
	defaultMaxWait  = 200 * time.Millisecond
)

// DrainFunc is the batch-processing callback a Debouncer fires into.
type DrainFunc func(ctx context.Context) error

// Debouncer coalesces many "new event may exist" notifications into a
// bounded-latency drain. The first Trigger after idle arms a timer of the
// debounce window; each further Trigger re-arms it up to a hard ceiling
// measured from the first call of the burst, so the drain fires at least once
// per maxWait even under continuous triggering.
//
// Exactly one drain runs at a time per Debouncer; triggers arriving while a
// drain runs coalesce into a single follow-up cycle. Drain errors go to the
// error handler and never stop the loop.
type Debouncer struct {
	fn       DrainFunc
	debounce time.Duration
	maxWait  time.Duration
	onError  func(error)
	clock    Clock

	trigger chan struct{}
}

// DebounceOption configures a Debouncer.
type DebounceOption func(*Debouncer)

// WithDebounceWindow sets the quiet window before a drain fires.
func WithDebounceWindow(window time.Duration) DebounceOption {
	return func(d *Debouncer) {
		d.debounce = window
	}
}

// WithMaxWait sets the hard ceiling measured from the first trigger of a burst.
func WithMaxWait(maxWait time.Duration) DebounceOption {
	return func(d *Debouncer) {
		d.maxWait = maxWait
	}
}

// WithDrainErrorHandler routes drain errors; the default discards them.
func WithDrainErrorHandler(fn func(error)) DebounceOption {
	return func(d *Debouncer) {
		d.onError = fn
	}
}

// WithDebounceClock sets the time source used for deadline arithmetic.
func WithDebounceClock(clock Clock) DebounceOption {
	return func(d *Debouncer) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// NewDebouncer constructs a Debouncer with defaults and optional settings.
func NewDebouncer(fn DrainFunc, opts ...DebounceOption) *Debouncer {
	if fn == nil {
		panic("outbox: nil DrainFunc")
	}

	d := &Debouncer{
		fn:       fn,
		debounce: defaultDebounce,
		maxWait:  defaultMaxWait,
		clock:    SystemClock{},
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.debounce <= 0 {
		d.debounce = defaultDebounce
	}
	if d.maxWait < d.debounce {
		d.maxWait = d.debounce
	}

	return d
}

// Trigger requests a drain. It is cheap, non-blocking and safe to call from
// any goroutine; triggers landing in the same window coalesce.
func (d *Debouncer) Trigger() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// Run owns the debounce loop until ctx is cancelled. The single-goroutine
// loop is what makes "one drain at a time" hold: a trigger during a drain
// stays buffered and starts the next cycle.
func (d *Debouncer) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var (
		armed bool
		hard  time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.trigger:
			now := d.clock.Now()
			if !armed {
				armed = true
				hard = now.Add(d.maxWait)
			}
			fireAt := now.Add(d.debounce)
			if fireAt.After(hard) {
				fireAt = hard
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(fireAt.Sub(now))
		case <-timer.C:
			if !armed {
				continue
			}
			armed = false

			if err := d.fn(ctx); err != nil && d.onError != nil {
				d.onError(err)
			}
		}
	}
}
