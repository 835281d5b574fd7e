// Package notify publishes token lifecycle events for downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Basantgrg924/QueueSystem/internal/domain"
	"github.com/Basantgrg924/QueueSystem/pkg/kafka"
	"github.com/Basantgrg924/QueueSystem/pkg/logger"
)

// EventPublisher publishes token lifecycle events. Publishing is best-effort:
// the state change has already been persisted by the time an event goes out,
// so callers treat publish failures as log-and-continue.
type EventPublisher interface {
	PublishTokenEvent(ctx context.Context, event *domain.TokenEvent) error
	Close()
}

// KafkaEventPublisher publishes token events to a Kafka topic,
// keyed by queue ID so events for one queue stay ordered.
type KafkaEventPublisher struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

// NewKafkaEventPublisher creates a Kafka-backed event publisher
func NewKafkaEventPublisher(producer *kafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
		topic:    topic,
		log:      logger.Get(),
	}
}

// PublishTokenEvent publishes a token event without blocking the caller on
// broker acknowledgement
func (p *KafkaEventPublisher) PublishTokenEvent(ctx context.Context, event *domain.TokenEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal token event: %w", err)
	}

	p.producer.ProduceAsync(ctx, p.topic, []byte(event.QueueID), payload, func(err error) {
		p.log.Warn("failed to publish token event",
			zap.String("event_type", string(event.Type)),
			zap.String("token_number", event.TokenNumber),
			zap.Error(err),
		)
	})
	return nil
}

// Close flushes outstanding events and closes the producer
func (p *KafkaEventPublisher) Close() {
	p.producer.Close()
}

// NoopPublisher discards all events. Used when Kafka is disabled and in tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishTokenEvent(ctx context.Context, event *domain.TokenEvent) error {
	return nil
}

func (NoopPublisher) Close() {}

var (
	_ EventPublisher = (*KafkaEventPublisher)(nil)
	_ EventPublisher = NoopPublisher{}
)
