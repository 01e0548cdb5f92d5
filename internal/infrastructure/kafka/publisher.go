package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/flowlytix/order-service/internal/domain"
	"github.com/flowlytix/order-service/pkg/kafka"
	"github.com/flowlytix/order-service/pkg/logging"
	"github.com/flowlytix/order-service/pkg/resilience"
)

// EventPublisher implements domain.EventPublisher over the Kafka producer.
// Publishes run through a circuit breaker so a broker outage degrades to
// dropped events instead of stalled order operations; callers already treat
// publishing as best-effort.
type EventPublisher struct {
	producer *kafka.Producer
	breaker  *resilience.CircuitBreaker
	logger   *logging.Logger
}

// NewEventPublisher creates a new EventPublisher
func NewEventPublisher(producer *kafka.Producer, logger *logging.Logger) *EventPublisher {
	breaker := resilience.NewCircuitBreaker(
		resilience.DefaultCircuitBreakerConfig("kafka-publisher"),
		logger.Logger,
	)
	return &EventPublisher{
		producer: producer,
		breaker:  breaker,
		logger:   logger,
	}
}

// Publish routes a domain event to its topic, keyed by aggregate ID so all
// events for one order stay ordered within a partition
func (p *EventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	topic := topicFor(event.EventType())

	start := time.Now()
	_, err := p.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, p.producer.PublishJSON(ctx, topic, event.AggregateID(), event.EventType(), event)
	})
	p.logger.KafkaPublish(ctx, topic, event.EventType(), err == nil, time.Since(start))
	return err
}

// Close flushes and closes the underlying producer
func (p *EventPublisher) Close() error {
	return p.producer.Close()
}

func topicFor(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "orders.fulfillment."):
		return kafka.Topics.FulfillmentEvents
	case strings.HasPrefix(eventType, "orders.inventory."):
		return kafka.Topics.InventoryEvents
	default:
		return kafka.Topics.OrderEvents
	}
}
