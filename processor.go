package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const defaultBatchSize = 100

// SideEffect performs the consumer-side reaction to one event. The payload is
// the decoded value registered for the event type. Implementations must be
// idempotent or deduplicated: redelivery after a crash is expected.
type SideEffect func(ctx context.Context, event Event, payload any) error

// Processor is a generic Handler that routes events to side effects by event
// type. Events with no route still advance the local last-seen id so
// unrelated types never cause redundant reprocessing; events whose payload
// fails its decoder are logged and skipped so the cursor stays live.
type Processor struct {
	name      string
	fetcher   EventFetcher
	registry  *PayloadRegistry
	batchSize int
	logger    Logger
	metrics   Metrics

	mu     sync.RWMutex
	routes map[string]SideEffect
}

var _ Handler = (*Processor)(nil)

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithBatchSize sets how many events one ProcessEvents call fetches.
func WithBatchSize(size int) ProcessorOption {
	return func(p *Processor) {
		p.batchSize = size
	}
}

// WithProcessorLogger sets the processor logger.
func WithProcessorLogger(logger Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProcessorMetrics sets the processor metrics recorder.
func WithProcessorMetrics(metrics Metrics) ProcessorOption {
	return func(p *Processor) {
		if metrics != nil {
			p.metrics = metrics
		}
	}
}

// NewProcessor constructs a Processor for one listener.
func NewProcessor(name string, fetcher EventFetcher, registry *PayloadRegistry, opts ...ProcessorOption) (*Processor, error) {
	if name == "" {
		return nil, ErrListenerNameRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	p := &Processor{
		name:      name,
		fetcher:   fetcher,
		registry:  registry,
		batchSize: defaultBatchSize,
		logger:    NopLogger{},
		metrics:   NopMetrics{},
		routes:    make(map[string]SideEffect),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}

	return p, nil
}

// Route binds an event type to a side effect. The type must have a decoder in
// the payload registry so malformed payloads fail at the decode step, not
// inside the side effect.
func (p *Processor) Route(eventType string, fn SideEffect) error {
	if eventType == "" {
		return ErrEventTypeRequired
	}
	if fn == nil {
		return fmt.Errorf("outbox: nil side effect for %q", eventType)
	}
	if !p.registry.Known(eventType) {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.routes[eventType]; exists {
		return fmt.Errorf("%w: route %s", ErrDecoderRegistered, eventType)
	}
	p.routes[eventType] = fn

	return nil
}

// ProcessEvents implements Handler.
func (p *Processor) ProcessEvents(ctx context.Context, cursor int64) (Result, error) {
	events, err := p.fetcher.FetchAfter(ctx, cursor, p.batchSize)
	if err != nil {
		return Result{Status: StatusError, Cursor: cursor}, fmt.Errorf("outbox fetch after %d: %w", cursor, err)
	}
	if len(events) == 0 {
		return Result{Status: StatusNoEvents, Cursor: cursor}, nil
	}

	last := cursor
	processed := 0
	skipped := 0

	for _, event := range events {
		if ctx.Err() != nil {
			p.record(processed, skipped)

			return Result{Status: StatusError, Cursor: last}, ctx.Err()
		}

		p.mu.RLock()
		fn, ok := p.routes[event.EventType]
		p.mu.RUnlock()

		if !ok {
			last = event.ID
			skipped++

			continue
		}

		payload, err := p.registry.Decode(event.EventType, event.Payload)
		if err != nil {
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				p.record(processed, skipped)

				return Result{Status: StatusError, Cursor: last}, err
			}
			// Malformed payloads are skipped, not retried: a poison event must
			// not block the cursor forever.
			p.logger.Warn("outbox payload rejected; skipping event",
				"listener", p.name, "event_id", event.ID, "event_type", event.EventType, "err", err)
			last = event.ID
			skipped++

			continue
		}

		if err := fn(ctx, event, payload); err != nil {
			p.record(processed, skipped)

			return Result{Status: StatusError, Cursor: last},
				fmt.Errorf("outbox handle %q event %d: %w", event.EventType, event.ID, err)
		}
		last = event.ID
		processed++
	}

	p.record(processed, skipped)

	return Result{Status: StatusProcessed, Cursor: last}, nil
}

func (p *Processor) record(processed, skipped int) {
	if processed > 0 {
		p.metrics.AddProcessed(p.name, processed)
	}
	if skipped > 0 {
		p.metrics.AddSkipped(p.name, skipped)
	}
}
