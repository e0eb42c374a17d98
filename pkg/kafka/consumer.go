package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// Handler processes a consumed Kafka message.
type Handler func(ctx context.Context, msg Message) error

// messageReader is the subset of *kafkago.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group and hands every message to
// a Handler. A message is committed only after its handler succeeds.
type Consumer struct {
	reader  messageReader
	handler Handler
	logger  *slog.Logger
	topic   string
}

// NewConsumer creates a Consumer for topic.
func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	dialer, err := cfg.dialer()
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10 << 20,
		Dialer:   dialer,
	})

	return &Consumer{reader: reader, handler: handler, logger: logger, topic: topic}, nil
}

// Start consumes until ctx is canceled, which is not reported as an error.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer starting", slog.String("topic", c.topic))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer stopping", slog.String("topic", c.topic))
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}
		c.process(ctx, m)
	}
}

func (c *Consumer) process(ctx context.Context, m kafkago.Message) {
	msg := Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}

	attrs := []any{
		slog.String("topic", m.Topic),
		slog.Int("partition", m.Partition),
		slog.Int64("offset", m.Offset),
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("handler error", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Error("commit error", append(attrs, slog.String("error", err.Error()))...)
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka reader: %w", err)
	}
	return nil
}
