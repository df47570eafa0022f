package outbox

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

const maxBackoffShift = 62

// ExponentialBackoff returns base * 2^attempt, capped at ceil.
// Negative attempts are treated as 0; a non-positive ceil means no cap.
func ExponentialBackoff(base time.Duration, attempt int, ceil time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	} else if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}

	multiplier := int64(1) << attempt
	delay := time.Duration(math.MaxInt64)
	if int64(base) <= math.MaxInt64/multiplier {
		delay = base * time.Duration(multiplier)
	}
	if ceil > 0 && delay > ceil {
		delay = ceil
	}

	return delay
}

// FullJitter returns a random duration in [0, delay).
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(int64(delay)))
}

// WaitContext sleeps for d but respects context cancellation.
func WaitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
