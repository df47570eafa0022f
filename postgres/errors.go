package postgres

import "errors"

var (
	// ErrDBRequired is returned when a nil *sql.DB is provided.
	ErrDBRequired = errors.New("outbox postgres: db is required")
	// ErrExecutorRequired is returned when append is called with a nil executor.
	ErrExecutorRequired = errors.New("outbox postgres: executor is required")
	// ErrTableNameRequired is returned when a table name is empty.
	ErrTableNameRequired = errors.New("outbox postgres: table name is required")
	// ErrInvalidTableName is returned when a table name has disallowed characters.
	ErrInvalidTableName = errors.New("outbox postgres: invalid table name")
	// ErrListenerRequired is returned when a listener identifier is empty.
	ErrListenerRequired = errors.New("outbox postgres: listener id is required")
	// ErrHolderRequired is returned when a lock holder token is zero.
	ErrHolderRequired = errors.New("outbox postgres: lock holder is required")
	// ErrStreamRequired is returned when a sequence stream id is empty.
	ErrStreamRequired = errors.New("outbox postgres: stream id is required")
	// ErrInvalidSequenceCount is returned when a batch reservation is not positive.
	ErrInvalidSequenceCount = errors.New("outbox postgres: sequence count must be positive")
	// ErrInvalidLockDuration is returned when a lock duration is not positive.
	ErrInvalidLockDuration = errors.New("outbox postgres: lock duration must be positive")
	// ErrCleanupBeforeRequired is returned when cleanup is called without a cutoff.
	ErrCleanupBeforeRequired = errors.New("outbox postgres: cleanup cutoff is required")
	// ErrCleanupRetentionInvalid is returned when cleanup retention is not positive.
	ErrCleanupRetentionInvalid = errors.New("outbox postgres: cleanup retention must be positive")
	// ErrCleanupLimitInvalid is returned when cleanup limit is negative.
	ErrCleanupLimitInvalid = errors.New("outbox postgres: cleanup limit must be non-negative")
)
