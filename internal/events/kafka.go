package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// Kafka writes envelopes synchronously, keyed by correlation id so events of
// one order land on one partition.
type Kafka struct {
	w *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, env Envelope) error {
	msg, err := message(env)
	if err != nil {
		return err
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", env.EventType, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.w.Close()
}

func message(env Envelope) (kafka.Message, error) {
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope: %w", err)
	}
	return kafka.Message{
		Key:   []byte(env.CorrelationID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	}, nil
}
