package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/pkg/events"
	pkgkafka "github.com/bibbank/fraudledger/pkg/kafka"
)

// Producer is the part of pkg/kafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// BreakerConfig tunes the circuit breaker in front of the broker.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. Defaults to 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open. Defaults to 30s.
	OpenTimeout time.Duration
}

// Publisher implements port.EventPublisher on Kafka behind a circuit
// breaker. While the breaker is open, events go to the fallback publisher
// when one is configured.
type Publisher struct {
	producer Producer
	breaker  *gobreaker.CircuitBreaker
	fallback port.EventPublisher
	logger   *slog.Logger
	topic    string
}

// NewPublisher creates a new Kafka event publisher. fallback may be nil.
func NewPublisher(producer Producer, topic string, cfg BreakerConfig, fallback port.EventPublisher, logger *slog.Logger) *Publisher {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := &Publisher{
		producer: producer,
		fallback: fallback,
		logger:   logger,
		topic:    topic,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka:" + topic,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("publisher circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return p
}

// Publish sends domain events to Kafka, keyed by aggregate id.
func (p *Publisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	messages := make([]pkgkafka.Message, 0, len(domainEvents))
	for _, evt := range domainEvents {
		msg, err := encode(evt)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.producer.Publish(ctx, p.topic, messages...)
	})
	if err == nil {
		p.logger.DebugContext(ctx, "events published",
			slog.String("topic", p.topic),
			slog.Int("count", len(messages)),
		)
		return nil
	}

	if p.fallback != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		return p.fallback.Publish(ctx, domainEvents...)
	}
	return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
}

// State reports the breaker state, for health checks.
func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}

func encode(evt events.DomainEvent) (pkgkafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return pkgkafka.Message{}, fmt.Errorf("failed to marshal event %s: %w", evt.EventType(), err)
	}
	return pkgkafka.Message{
		Key:   []byte(evt.AggregateID()),
		Value: payload,
		Headers: map[string]string{
			"event_id":       evt.EventID(),
			"event_type":     evt.EventType(),
			"aggregate_type": evt.AggregateType(),
		},
	}, nil
}

var _ port.EventPublisher = (*Publisher)(nil)
