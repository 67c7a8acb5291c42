package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/online-store/internal/event"
	"github.com/segmentio/kafka-go"
)

const headerEventType = "event_type"

// Producer writes domain events to a single topic. Messages are keyed by
// aggregate id so that the events of one order stay on one partition.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, evt event.Event) error {
	msg, err := message(evt)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s for %s: %w", evt.EventType, evt.AggregateID, err)
	}
	return nil
}

func message(evt event.Event) (kafka.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", evt.EventType, err)
	}
	return kafka.Message{
		Key:     []byte(evt.AggregateID),
		Value:   data,
		Headers: []kafka.Header{{Key: headerEventType, Value: []byte(evt.EventType)}},
		Time:    evt.Timestamp,
	}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
