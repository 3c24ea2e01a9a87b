package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mahaj/chat-relay/pkg/logger"
	"github.com/mahaj/chat-relay/pkg/notify"
)

const retryDelay = time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads relay notifications from Kafka and forwards each one to
// the sink.
type Consumer struct {
	reader  messageReader
	sink    notify.Sink
	timeout time.Duration
	logger  *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, sink notify.Sink, timeout time.Duration, l *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(r, sink, timeout, l)
}

func newConsumer(r messageReader, sink notify.Sink, timeout time.Duration, l *slog.Logger) *Consumer {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Consumer{reader: r, sink: sink, timeout: timeout, logger: logger.OrDefault(l)}
}

// Consume runs until ctx is cancelled. Undecodable records and failed
// forwards are logged and skipped.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("failed to read notification, retrying", "err", err, "delay", retryDelay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		var n notify.Notification
		if err := json.Unmarshal(m.Value, &n); err != nil {
			c.logger.Warn("skipping undecodable notification", "offset", m.Offset, "err", err)
			continue
		}
		c.forward(ctx, n)
	}
}

func (c *Consumer) forward(ctx context.Context, n notify.Notification) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.sink.Send(ctx, n); err != nil {
		c.logger.Warn("failed to forward notification",
			"event", n.Event, "channel", n.Channel, "user", n.User, "err", err)
		return
	}
	c.logger.Debug("notification forwarded", "event", n.Event, "channel", n.Channel)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
