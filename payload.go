package outbox

import (
	"encoding/json"
	"fmt"
	"sync"
)

// DecodeFunc turns a raw payload into a typed value.
type DecodeFunc func(payload json.RawMessage) (any, error)

// DecodeError reports a payload that failed its registered decoder. Handlers
// treat it as a logged skip rather than a retryable failure, so one malformed
// event cannot block a listener's cursor.
type DecodeError struct {
	EventType string
	Err       error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("outbox: decode %q payload: %v", e.EventType, e.Err)
}

// Unwrap returns the underlying decoder error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// PayloadRegistry maps event types to payload decoders, turning the outbox's
// opaque JSON blobs into a tagged union checked at the consumer boundary.
type PayloadRegistry struct {
	mu       sync.RWMutex
	decoders map[string]DecodeFunc
}

// NewPayloadRegistry creates an empty registry.
func NewPayloadRegistry() *PayloadRegistry {
	return &PayloadRegistry{decoders: make(map[string]DecodeFunc)}
}

// Register adds a decoder for an event type. Registering the same type twice
// is an error.
func (r *PayloadRegistry) Register(eventType string, decode DecodeFunc) error {
	if eventType == "" {
		return ErrEventTypeRequired
	}
	if decode == nil {
		return fmt.Errorf("outbox: nil decoder for %q", eventType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decoders[eventType]; exists {
		return fmt.Errorf("%w: %s", ErrDecoderRegistered, eventType)
	}
	r.decoders[eventType] = decode

	return nil
}

// Known reports whether a decoder is registered for the event type.
func (r *PayloadRegistry) Known(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.decoders[eventType]

	return ok
}

// Decode runs the registered decoder for the event type.
// Returns ErrUnknownEventType if none is registered and a *DecodeError if the
// decoder rejects the payload.
func (r *PayloadRegistry) Decode(eventType string, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[eventType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	value, err := decode(payload)
	if err != nil {
		return nil, &DecodeError{EventType: eventType, Err: err}
	}

	return value, nil
}

// RegisterJSON registers a decoder that unmarshals the payload into T.
func RegisterJSON[T any](r *PayloadRegistry, eventType string) error {
	return r.Register(eventType, func(payload json.RawMessage) (any, error) {
		var value T
		if err := json.Unmarshal(payload, &value); err != nil {
			return nil, err
		}

		return value, nil
	})
}
