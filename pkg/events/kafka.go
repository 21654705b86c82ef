package events

import (
	"context"

	"sharebasket/pkg/kafka"
)

const source = "baskets"

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by basket code, so a basket's
// events stay ordered within one partition.
type KafkaPublisher struct {
	producer messagePublisher
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := kafka.NewMessage().
		WithKey(e.BasketCode).
		WithValue(e).
		WithTimestamp(e.OccurredAt).
		WithEventType(e.Type).
		WithSchemaVersion(SchemaVersion).
		WithSource(source).
		WithCorrelationID(e.RequestID).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
