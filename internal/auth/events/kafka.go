package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes security events to a Kafka topic, keyed by user id so
// a consumer sees one user's events in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher connects a publisher to the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: marshaling %s: %w", ev.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.UserID),
		Value: payload,
		Time:  ev.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: publishing %s: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
