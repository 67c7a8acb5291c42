package kafka

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Consume reads until ctx is cancelled. Handler errors are logged and the
// message is committed anyway.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("component", "kafka").Msg("error reading message")
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			log.Error().Err(err).Str("component", "kafka").
				Str("key", string(msg.Key)).Int64("offset", msg.Offset).Msg("error handling message")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("component", "kafka").Int64("offset", msg.Offset).Msg("commit failed")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
