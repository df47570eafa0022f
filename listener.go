package outbox

import "time"

const (
	defaultLockDuration    = 10 * time.Second
	defaultRefreshInterval = 5 * time.Second
	defaultPollInterval    = 30 * time.Second
	defaultMaxRetries      = 5
	defaultBaseBackoff     = 1 * time.Second
	defaultMaxBackoff      = 30 * time.Second
)

// ListenerConfig wires one named listener into a Coordinator. Listeners are
// passed in explicitly at construction; there is no process-wide registry.
type ListenerConfig struct {
	// Name identifies the listener ("activity", "command", "naming", ...).
	// The cursor lock is scoped per name, so listeners fail independently.
	Name string
	// Handler consumes the listener's events.
	Handler Handler

	// Debounce is the quiet window before a drain fires (default 50ms).
	Debounce time.Duration
	// MaxWait bounds how long a burst can postpone a drain (default 200ms).
	MaxWait time.Duration
	// LockDuration is the cursor-lock expiry; must exceed the longest
	// plausible single-batch processing time (default 10s).
	LockDuration time.Duration
	// RefreshInterval is the lock refresh cadence while holding; forced below
	// LockDuration (default 5s).
	RefreshInterval time.Duration
	// PollInterval is the safety-net re-trigger period; the debounce trigger
	// is a latency optimization, the poll is what guarantees progress
	// (default 30s, negative disables).
	PollInterval time.Duration
	// MaxRetries caps drain retries after failures (default 5).
	MaxRetries int
	// BaseBackoff seeds the exponential retry delay (default 1s).
	BaseBackoff time.Duration
	// MaxBackoff caps the retry delay (default 30s).
	MaxBackoff time.Duration
}

func (c ListenerConfig) withDefaults() ListenerConfig {
	if c.Debounce <= 0 {
		c.Debounce = defaultDebounce
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.MaxWait < c.Debounce {
		c.MaxWait = c.Debounce
	}
	if c.LockDuration <= 0 {
		c.LockDuration = defaultLockDuration
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.RefreshInterval >= c.LockDuration {
		c.RefreshInterval = c.LockDuration / 2
	}
	if c.PollInterval < 0 {
		c.PollInterval = 0
	} else if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = defaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}

	return c
}

func (c ListenerConfig) validate() error {
	if c.Name == "" {
		return ErrListenerNameRequired
	}
	if c.Handler == nil {
		return ErrHandlerRequired
	}

	return nil
}
