// Package eventbridge publishes domain events to an EventBridge bus.
package eventbridge

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"devrank/domain/events"
)

// Source is the EventBridge source of every published event
const Source = "devrank.explorer"

// maxBatch is the PutEvents entry limit
const maxBatch = 10

// API is the subset of the EventBridge client used here
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher publishes domain events to EventBridge
type EventBridgePublisher struct {
	client  API
	busName string
	logger  *zap.Logger
}

// NewEventBridgePublisher creates a new publisher
func NewEventBridgePublisher(client API, busName string, logger *zap.Logger) *EventBridgePublisher {
	return &EventBridgePublisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

// Publish publishes a single event
func (p *EventBridgePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch publishes events in batches of ten
func (p *EventBridgePublisher) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	for i := 0; i < len(evs); i += maxBatch {
		end := i + maxBatch
		if end > len(evs) {
			end = len(evs)
		}
		if err := p.putBatch(ctx, evs[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *EventBridgePublisher) putBatch(ctx context.Context, batch []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, ev := range batch {
		detail, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", ev.GetEventType(), err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			Source:       aws.String(Source),
			DetailType:   aws.String(ev.GetEventType()),
			Detail:       aws.String(string(detail)),
			EventBusName: aws.String(p.busName),
			Time:         aws.Time(ev.GetTimestamp()),
		})
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to put events: %w", err)
	}
	if out.FailedEntryCount > 0 {
		for i, entry := range out.Entries {
			if entry.ErrorCode != nil {
				p.logger.Warn("Event rejected",
					zap.String("eventType", batch[i].GetEventType()),
					zap.String("viewID", batch[i].GetAggregateID()),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d of %d events rejected", out.FailedEntryCount, len(entries))
	}
	return nil
}

// LoggingPublisher logs events instead of publishing them. It is used when
// no event bus is configured.
type LoggingPublisher struct {
	logger *zap.Logger
}

// NewLoggingPublisher creates a logging publisher
func NewLoggingPublisher(logger *zap.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

// Publish logs one event
func (p *LoggingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Debug("Domain event",
		zap.String("eventType", event.GetEventType()),
		zap.String("viewID", event.GetAggregateID()),
		zap.Any("event", event),
	)
	return nil
}

// PublishBatch logs each event
func (p *LoggingPublisher) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	for _, ev := range evs {
		_ = p.Publish(ctx, ev)
	}
	return nil
}
