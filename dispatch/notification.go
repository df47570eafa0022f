package dispatch

import (
	"context"
	"fmt"

	outbox "github.com/kristofferremback/threa-outbox"
)

// MentionListenerName is the cursor-lock identifier for the mention listener.
const MentionListenerName = "mention"

// MentionNotification is one derived notification row: user X was mentioned
// by message Y. The (UserID, MessageID) pair is the dedupe key.
type MentionNotification struct {
	UserID    string
	MessageID string
	ChannelID string
	ThreadID  string
	AuthorID  string
}

// NotificationStore persists derived notification rows. InsertMention must be
// idempotent on (UserID, MessageID): redelivered events insert nothing and
// return created=false.
type NotificationStore interface {
	InsertMention(ctx context.Context, n MentionNotification) (created bool, err error)
}

// NewMentionListener builds the processor for the mention listener: each
// message:created event fans out into one notification row per mentioned
// user. Self-mentions are dropped.
func NewMentionListener(fetcher outbox.EventFetcher, store NotificationStore, opts ...outbox.ProcessorOption) (*outbox.Processor, error) {
	if store == nil {
		return nil, ErrNotificationStoreRequired
	}

	processor, err := outbox.NewProcessor(MentionListenerName, fetcher, MustNewRegistry(), opts...)
	if err != nil {
		return nil, err
	}

	err = processor.Route(EventMessageCreated, func(ctx context.Context, event outbox.Event, payload any) error {
		msg, ok := payload.(MessagePayload)
		if !ok {
			return fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, payload, event.EventType)
		}

		for _, userID := range msg.Mentions {
			if userID == "" || userID == msg.AuthorID {
				continue
			}
			_, err := store.InsertMention(ctx, MentionNotification{
				UserID:    userID,
				MessageID: msg.MessageID,
				ChannelID: msg.ChannelID,
				ThreadID:  msg.ThreadID,
				AuthorID:  msg.AuthorID,
			})
			if err != nil {
				return fmt.Errorf("insert mention for %s: %w", userID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return processor, nil
}
