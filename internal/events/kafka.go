package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
)

// EventTypeHeader is the kafka message header carrying the event type.
const EventTypeHeader = "event-type"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes ledger events to a kafka topic.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher returns KafkaPublisher writing to the topic on the brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            3,
			WriteTimeout:           time.Second,
		},
	}
}

// Publish writes the event as JSON. Messages are keyed by owner so the events
// of one owner keep their order within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Owner),
		Value: data,
		Headers: []kafka.Header{
			{Key: EventTypeHeader, Value: []byte(event.Type)},
		},
		Time: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("write ledger event: %w", err)
	}

	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
