package dispatch

import (
	"context"
	"fmt"

	outbox "github.com/kristofferremback/threa-outbox"
)

// CommandListenerName is the cursor-lock identifier for the command listener.
const CommandListenerName = "command"

// JobKindRunCommand is the queue job kind for executing a dispatched command.
const JobKindRunCommand = "command.run"

// NewCommandListener builds the processor for the command listener: every
// command:dispatched event becomes a background job keyed by the command id.
// Completed and failed events carry no work here; they exist for other
// listeners, so the processor skips them by not routing them.
func NewCommandListener(fetcher outbox.EventFetcher, queue JobQueue, opts ...outbox.ProcessorOption) (*outbox.Processor, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}

	processor, err := outbox.NewProcessor(CommandListenerName, fetcher, MustNewRegistry(), opts...)
	if err != nil {
		return nil, err
	}

	err = processor.Route(EventCommandDispatched, func(ctx context.Context, event outbox.Event, payload any) error {
		cmd, ok := payload.(CommandPayload)
		if !ok {
			return fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, payload, event.EventType)
		}

		job := Job{
			ID:      "command:" + cmd.CommandID,
			Kind:    JobKindRunCommand,
			Payload: event.Payload,
		}
		if err := queue.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("enqueue command %s: %w", cmd.CommandID, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return processor, nil
}
