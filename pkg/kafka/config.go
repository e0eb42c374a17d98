package kafka

import (
	"crypto/tls"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// DefaultBatchTimeout is how long a writer waits to fill a batch.
const DefaultBatchTimeout = 10 * time.Millisecond

// Config holds Kafka connection parameters.
type Config struct {
	ConsumerGroup string
	ClientID      string

	// SASLMechanism is "PLAIN" (default), "SCRAM-SHA-256" or "SCRAM-SHA-512".
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string

	Brokers []string

	// BatchTimeout defaults to DefaultBatchTimeout when zero.
	BatchTimeout time.Duration

	TLS         bool
	SASLEnabled bool
}

func (c Config) batchTimeout() time.Duration {
	if c.BatchTimeout <= 0 {
		return DefaultBatchTimeout
	}
	return c.BatchTimeout
}

func (c Config) tlsConfig() *tls.Config {
	if !c.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// mechanism returns nil when SASL is disabled.
func (c Config) mechanism() (sasl.Mechanism, error) {
	if !c.SASLEnabled {
		return nil, nil
	}

	switch c.SASLMechanism {
	case "PLAIN", "":
		return plain.Mechanism{Username: c.SASLUsername, Password: c.SASLPassword}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.SASLUsername, c.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.SASLUsername, c.SASLPassword)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism %q", c.SASLMechanism)
	}
}

// transport builds the writer transport, or nil for the kafka-go default.
func (c Config) transport() (*kafkago.Transport, error) {
	m, err := c.mechanism()
	if err != nil {
		return nil, err
	}
	if m == nil && !c.TLS && c.ClientID == "" {
		return nil, nil
	}
	return &kafkago.Transport{SASL: m, TLS: c.tlsConfig(), ClientID: c.ClientID}, nil
}

// dialer builds the reader dialer, or nil for the kafka-go default.
func (c Config) dialer() (*kafkago.Dialer, error) {
	m, err := c.mechanism()
	if err != nil {
		return nil, err
	}
	if m == nil && !c.TLS && c.ClientID == "" {
		return nil, nil
	}
	return &kafkago.Dialer{
		Timeout:       10 * time.Second,
		DualStack:     true,
		SASLMechanism: m,
		TLS:           c.tlsConfig(),
		ClientID:      c.ClientID,
	}, nil
}
