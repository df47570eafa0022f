package outbox

import "errors"

var (
	// ErrEventTypeRequired is returned when Entry.EventType is empty.
	ErrEventTypeRequired = errors.New("outbox event type is required")
	// ErrPayloadRequired is returned when Entry.Payload is empty.
	ErrPayloadRequired = errors.New("outbox payload is required")
	// ErrInvalidPayload is returned when Entry.Payload is not valid JSON.
	ErrInvalidPayload = errors.New("outbox payload must be valid JSON")
	// ErrInvalidBatchSize indicates that the requested batch size is not positive.
	ErrInvalidBatchSize = errors.New("outbox batch size must be positive")
	// ErrUnknownEventType is returned when no decoder is registered for a type.
	ErrUnknownEventType = errors.New("outbox event type has no registered decoder")
	// ErrDecoderRegistered is returned when a decoder is registered twice for a type.
	ErrDecoderRegistered = errors.New("outbox decoder already registered")
	// ErrLeaseLost indicates the cursor lock expired or was claimed by another holder.
	ErrLeaseLost = errors.New("outbox cursor lease lost")
	// ErrRetriesExhausted indicates a listener drain kept failing past its retry budget.
	ErrRetriesExhausted = errors.New("outbox drain retries exhausted")
	// ErrListenerNameRequired is returned when a listener config has no name.
	ErrListenerNameRequired = errors.New("outbox listener name is required")
	// ErrDuplicateListener is returned when two listener configs share a name.
	ErrDuplicateListener = errors.New("outbox listener name already registered")
	// ErrUnknownListener is returned when triggering a listener that was not configured.
	ErrUnknownListener = errors.New("outbox listener is not configured")
	// ErrHandlerRequired is returned when a listener config has no handler.
	ErrHandlerRequired = errors.New("outbox handler is required")
	// ErrCursorStoreRequired is returned when a nil CursorStore is provided.
	ErrCursorStoreRequired = errors.New("outbox cursor store is required")
	// ErrFetcherRequired is returned when a nil EventFetcher is provided.
	ErrFetcherRequired = errors.New("outbox event fetcher is required")
	// ErrRegistryRequired is returned when a nil PayloadRegistry is provided.
	ErrRegistryRequired = errors.New("outbox payload registry is required")
	// ErrRunnerPanic indicates a listener runner panic.
	ErrRunnerPanic = errors.New("outbox runner panic")
)
