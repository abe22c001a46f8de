package mykafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r   *kafka.Reader
	log *slog.Logger
}

func NewConsumer(brokers []string, group, topic string, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return &Consumer{r: r, log: log}
}

// Start reads until ctx is cancelled. A handler error leaves the offset
// uncommitted so the message is redelivered after a short backoff.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := h(ctx, m); err != nil {
			c.log.Error("handler failed, message left uncommitted",
				"topic", m.Topic, "offset", m.Offset, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("commit failed", "topic", m.Topic, "offset", m.Offset, "error", err)
		}
	}
}
