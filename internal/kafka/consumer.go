package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Consumer reads the notifications topic and hands each decoded
// NotificationEvent to a handler. A payload that does not decode is
// logged and skipped; it must not wedge the group's offset.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, NotificationEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := dispatch(ctx, msg.Value, handler); err != nil {
			return err
		}
	}
}

func dispatch(ctx context.Context, value []byte, handler func(context.Context, NotificationEvent) error) error {
	var event NotificationEvent
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("WARNING: skipping malformed notification event: %v", err)
		return nil
	}
	return handler(ctx, event)
}
