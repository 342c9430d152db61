package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"permitcheck/internal/platform/kafka/producer"
)

const (
	headerEventType = "event_type"
	headerSource    = "source"
	sourceName      = "permitcheck"
)

// Producer is the subset of the Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaStore publishes each event as a JSON record keyed by session ID, so a
// session's events land on one partition in order.
type KafkaStore struct {
	producer Producer
	topic    string
}

func NewKafkaStore(p Producer, topic string) *KafkaStore {
	return &KafkaStore{producer: p, topic: topic}
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.SessionID),
		Value: payload,
		Headers: map[string]string{
			headerEventType: event.Action,
			headerSource:    sourceName,
		},
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish audit event %s: %w", event.Action, err)
	}
	return nil
}
