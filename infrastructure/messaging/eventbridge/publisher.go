// Package eventbridge publishes domain events to an EventBridge bus
// for delivery to downstream consumers (realtime gateways, analytics,
// automations).
package eventbridge

import (
	"context"
	"encoding/json"

	"crm-backend/domain/events"
	pkgerrors "crm-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

// maxBatchSize is the PutEvents API limit per request.
const maxBatchSize = 10

// Publisher implements ports.EventBus on EventBridge
type Publisher struct {
	client  *awseventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewPublisher creates an EventBridge publisher
func NewPublisher(client *awseventbridge.Client, busName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

// Publish implements ports.EventBus
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch implements ports.EventBus. Events are sent in chunks of
// the PutEvents limit; partial failures surface as an error after the
// whole batch is attempted.
func (p *Publisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	if len(batch) == 0 {
		return nil
	}

	var failed int
	for start := 0; start < len(batch); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(batch) {
			end = len(batch)
		}

		entries := make([]types.PutEventsRequestEntry, 0, end-start)
		for _, event := range batch[start:end] {
			detail, err := json.Marshal(event)
			if err != nil {
				return pkgerrors.Wrap(err, "failed to marshal event")
			}
			entries = append(entries, types.PutEventsRequestEntry{
				EventBusName: aws.String(p.busName),
				Source:       aws.String(events.SourceCRM),
				DetailType:   aws.String(event.GetEventType()),
				Detail:       aws.String(string(detail)),
				Time:         aws.Time(event.GetTimestamp()),
			})
		}

		result, err := p.client.PutEvents(ctx, &awseventbridge.PutEventsInput{
			Entries: entries,
		})
		if err != nil {
			return pkgerrors.NewExternalError("eventbridge", err)
		}

		if result.FailedEntryCount > 0 {
			failed += int(result.FailedEntryCount)
			for i, entry := range result.Entries {
				if entry.ErrorCode != nil {
					p.logger.Error("event delivery rejected",
						zap.String("event_type", batch[start+i].GetEventType()),
						zap.String("error_code", aws.ToString(entry.ErrorCode)),
						zap.String("error_message", aws.ToString(entry.ErrorMessage)),
					)
				}
			}
		}
	}

	if failed > 0 {
		return pkgerrors.NewExternalError("eventbridge", nil)
	}
	return nil
}
