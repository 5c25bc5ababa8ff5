// Package local provides an in-process event bus for development and
// tests, where no EventBridge bus is reachable.
package local

import (
	"context"
	"sync"

	"crm-backend/domain/events"

	"go.uber.org/zap"
)

// Publisher records published events and logs them. Tests assert on
// Published(); development runs just get the log line.
type Publisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
	logger *zap.Logger
}

// NewPublisher creates an in-process publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

// Publish implements ports.EventBus
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()

	p.logger.Debug("event published",
		zap.String("event_type", event.GetEventType()),
		zap.String("aggregate_id", event.GetAggregateID()),
	)
	return nil
}

// PublishBatch implements ports.EventBus
func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Published returns a snapshot of everything published so far
func (p *Publisher) Published() []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}
