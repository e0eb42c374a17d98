package kafka_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudledger/internal/domain/event"
	"github.com/bibbank/fraudledger/internal/infrastructure/kafka"
	"github.com/bibbank/fraudledger/pkg/events"
	pkgkafka "github.com/bibbank/fraudledger/pkg/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockProducer struct {
	publishFunc func(ctx context.Context, topic string, messages ...pkgkafka.Message) error
	calls       int
}

func (m *mockProducer) Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error {
	m.calls++
	if m.publishFunc != nil {
		return m.publishFunc(ctx, topic, messages...)
	}
	return nil
}

type mockFallback struct {
	received []events.DomainEvent
}

func (m *mockFallback) Publish(_ context.Context, evts ...events.DomainEvent) error {
	m.received = append(m.received, evts...)
	return nil
}

func fraudDetected(confidence string) event.FraudDetected {
	return event.NewFraudDetected("alert-1", "TX-1", "user-42",
		decimal.NewFromInt(25000), decimal.RequireFromString(confidence), "CRITICAL",
		[]string{"Amount Threshold Rule"})
}

func TestPublisher_Publish(t *testing.T) {
	var got []pkgkafka.Message
	var gotTopic string
	producer := &mockProducer{publishFunc: func(_ context.Context, topic string, messages ...pkgkafka.Message) error {
		gotTopic = topic
		got = messages
		return nil
	}}
	p := kafka.NewPublisher(producer, "fraud-alerts", kafka.BreakerConfig{}, nil, discardLogger())

	evt := fraudDetected("0.85")
	require.NoError(t, p.Publish(context.Background(), evt))

	assert.Equal(t, "fraud-alerts", gotTopic)
	require.Len(t, got, 1)
	assert.Equal(t, "TX-1", string(got[0].Key))
	assert.Equal(t, event.EventTypeFraudDetected, got[0].Headers["event_type"])
	assert.Equal(t, evt.EventID(), got[0].Headers["event_id"])
	assert.Equal(t, "Transaction", got[0].Headers["aggregate_type"])

	var decoded event.FraudDetected
	require.NoError(t, json.Unmarshal(got[0].Value, &decoded))
	assert.Equal(t, "alert-1", decoded.AlertID)
	assert.True(t, decoded.Confidence.Equal(decimal.RequireFromString("0.85")))
}

func TestPublisher_NoEvents(t *testing.T) {
	producer := &mockProducer{}
	p := kafka.NewPublisher(producer, "fraud-alerts", kafka.BreakerConfig{}, nil, discardLogger())

	require.NoError(t, p.Publish(context.Background()))
	assert.Equal(t, 0, producer.calls)
}

func TestPublisher_BreakerOpensAndFallsBack(t *testing.T) {
	producer := &mockProducer{publishFunc: func(context.Context, string, ...pkgkafka.Message) error {
		return errors.New("broker unreachable")
	}}
	fallback := &mockFallback{}
	p := kafka.NewPublisher(producer, "fraud-alerts",
		kafka.BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, fallback, discardLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := p.Publish(ctx, fraudDetected("0.5"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker unreachable")
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	require.NoError(t, p.Publish(ctx, fraudDetected("0.5")))
	assert.Equal(t, 2, producer.calls, "open breaker short-circuits the producer")
	assert.Len(t, fallback.received, 1)
}

func TestPublisher_OpenWithoutFallback(t *testing.T) {
	producer := &mockProducer{publishFunc: func(context.Context, string, ...pkgkafka.Message) error {
		return errors.New("broker unreachable")
	}}
	p := kafka.NewPublisher(producer, "fraud-alerts",
		kafka.BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Minute}, nil, discardLogger())
	ctx := context.Background()

	require.Error(t, p.Publish(ctx, fraudDetected("0.5")))
	err := p.Publish(ctx, fraudDetected("0.5"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestAlertListener_Handle(t *testing.T) {
	tests := []struct {
		name       string
		confidence string
		wantLevel  string
		wantMsg    string
	}{
		{"escalates at threshold", "0.80", "level=ERROR", "high confidence fraud escalated"},
		{"escalates above threshold", "0.95", "level=ERROR", "high confidence fraud escalated"},
		{"notes below threshold", "0.65", "level=WARN", "fraud alert received"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := kafka.NewAlertListener(slog.New(slog.NewTextHandler(&buf, nil)))

			payload, err := json.Marshal(fraudDetected(tt.confidence))
			require.NoError(t, err)

			err = l.Handle(context.Background(), pkgkafka.Message{
				Value:   payload,
				Headers: map[string]string{"event_type": event.EventTypeFraudDetected},
			})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.wantLevel)
			assert.Contains(t, buf.String(), tt.wantMsg)
			assert.Contains(t, buf.String(), "transaction_id=TX-1")
		})
	}
}

func TestAlertListener_IgnoresOtherEvents(t *testing.T) {
	var buf bytes.Buffer
	l := kafka.NewAlertListener(slog.New(slog.NewTextHandler(&buf, nil)))

	err := l.Handle(context.Background(), pkgkafka.Message{
		Value:   []byte("not json"),
		Headers: map[string]string{"event_type": event.EventTypeBlockSealed},
	})
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestAlertListener_RejectsMalformedPayload(t *testing.T) {
	l := kafka.NewAlertListener(discardLogger())

	err := l.Handle(context.Background(), pkgkafka.Message{
		Value:   []byte("{"),
		Headers: map[string]string{"event_type": event.EventTypeFraudDetected},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}
