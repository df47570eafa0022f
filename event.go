package outbox

import (
	"encoding/json"
	"time"
)

// Entry describes a new outbox event to be appended.
type Entry struct {
	// EventType names the event, namespaced as "subject:verb"
	// (e.g., "command:dispatched").
	EventType string
	// Payload is stored as JSON.
	Payload json.RawMessage
}

// Event is a stored outbox event fetched for processing.
//
// ID is issued by the database and is strictly increasing; listeners use it
// as their cursor value. Events are immutable once written.
type Event struct {
	ID        int64
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Validate checks required fields and JSON validity.
func (e Entry) Validate() error {
	return ValidateEntry(e, true)
}

// ValidateEntry validates an entry with optional JSON validation for the payload.
func ValidateEntry(entry Entry, validateJSON bool) error {
	if entry.EventType == "" {
		return ErrEventTypeRequired
	}
	if len(entry.Payload) == 0 {
		return ErrPayloadRequired
	}
	if validateJSON && !json.Valid(entry.Payload) {
		return ErrInvalidPayload
	}

	return nil
}
