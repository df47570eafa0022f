package postgres

const (
	defaultEventsTable    = "outbox_events"
	defaultCursorsTable   = "listener_cursors"
	defaultSequencesTable = "stream_sequences"
)

// Config defines Postgres store behavior.
type Config struct {
	EventsTable        string
	CursorsTable       string
	SequencesTable     string
	ValidatePayload    bool
	validatePayloadSet bool
}

func (c Config) withDefaults() Config {
	if c.EventsTable == "" {
		c.EventsTable = defaultEventsTable
	}
	if c.CursorsTable == "" {
		c.CursorsTable = defaultCursorsTable
	}
	if c.SequencesTable == "" {
		c.SequencesTable = defaultSequencesTable
	}
	if !c.validatePayloadSet {
		c.ValidatePayload = true
	}

	return c
}

// Option configures the Postgres store.
type Option func(*Config)

// WithEventsTable sets the event table name.
func WithEventsTable(name string) Option {
	return func(c *Config) {
		c.EventsTable = name
	}
}

// WithCursorsTable sets the listener cursor table name.
func WithCursorsTable(name string) Option {
	return func(c *Config) {
		c.CursorsTable = name
	}
}

// WithSequencesTable sets the stream sequence table name.
func WithSequencesTable(name string) Option {
	return func(c *Config) {
		c.SequencesTable = name
	}
}

// WithValidatePayload toggles JSON validation of payloads on append.
func WithValidatePayload(validate bool) Option {
	return func(c *Config) {
		c.ValidatePayload = validate
		c.validatePayloadSet = true
	}
}
