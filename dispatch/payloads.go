package dispatch

import (
	outbox "github.com/kristofferremback/threa-outbox"
)

// Event types appended by the application's write paths. The namespace prefix
// is the producing subsystem, the suffix the state change.
const (
	EventCommandDispatched = "command:dispatched"
	EventCommandCompleted  = "command:completed"
	EventCommandFailed     = "command:failed"
	EventMessageCreated    = "message:created"
	EventChannelRenamed    = "channel:renamed"
)

// CommandPayload describes a slash command a user dispatched in a channel or
// thread. Dispatched, completed and failed events share the shape.
type CommandPayload struct {
	CommandID string `json:"commandId"`
	ChannelID string `json:"channelId"`
	ThreadID  string `json:"threadId,omitempty"`
	ActorID   string `json:"actorId"`
	Command   string `json:"command"`
	Error     string `json:"error,omitempty"`
}

// MessagePayload describes a message posted to a channel or thread, including
// the user ids it mentions.
type MessagePayload struct {
	MessageID string   `json:"messageId"`
	ChannelID string   `json:"channelId"`
	ThreadID  string   `json:"threadId,omitempty"`
	AuthorID  string   `json:"authorId"`
	Mentions  []string `json:"mentions,omitempty"`
}

// ChannelRenamedPayload describes an automatic or manual channel rename.
type ChannelRenamedPayload struct {
	ChannelID string `json:"channelId"`
	OldName   string `json:"oldName"`
	NewName   string `json:"newName"`
	ActorID   string `json:"actorId,omitempty"`
}

// NewRegistry returns a payload registry with decoders for every event type
// this package produces or consumes.
func NewRegistry() (*outbox.PayloadRegistry, error) {
	registry := outbox.NewPayloadRegistry()

	if err := outbox.RegisterJSON[CommandPayload](registry, EventCommandDispatched); err != nil {
		return nil, err
	}
	if err := outbox.RegisterJSON[CommandPayload](registry, EventCommandCompleted); err != nil {
		return nil, err
	}
	if err := outbox.RegisterJSON[CommandPayload](registry, EventCommandFailed); err != nil {
		return nil, err
	}
	if err := outbox.RegisterJSON[MessagePayload](registry, EventMessageCreated); err != nil {
		return nil, err
	}
	if err := outbox.RegisterJSON[ChannelRenamedPayload](registry, EventChannelRenamed); err != nil {
		return nil, err
	}

	return registry, nil
}

// MustNewRegistry returns a fully populated registry or panics.
func MustNewRegistry() *outbox.PayloadRegistry {
	registry, err := NewRegistry()
	if err != nil {
		panic(err)
	}

	return registry
}
