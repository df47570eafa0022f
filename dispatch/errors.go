package dispatch

import "errors"

var (
	// ErrQueueRequired is returned when a nil job queue is provided.
	ErrQueueRequired = errors.New("dispatch: job queue is required")
	// ErrNotificationStoreRequired is returned when a nil notification store is provided.
	ErrNotificationStoreRequired = errors.New("dispatch: notification store is required")
	// ErrUnexpectedPayload is returned when a routed event decodes to the wrong type.
	ErrUnexpectedPayload = errors.New("dispatch: unexpected payload type")
)
