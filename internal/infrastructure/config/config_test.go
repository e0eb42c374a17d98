package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GRPC_PORT", "HTTP_PORT", "STORE_BACKEND", "DATABASE_URL", "REDIS_ADDR",
		"KAFKA_BROKER", "KAFKA_TOPIC", "LEDGER_DIFFICULTY", "LEDGER_VALIDATION_WINDOW",
		"RULE_AMOUNT_THRESHOLD", "RULE_FREQUENCY_WINDOW", "ML_ENABLED", "BATCH_CONCURRENCY",
		"RULE_MERCHANT_HIGH_THRESHOLD", "RULE_MERCHANT_CRITICAL_THRESHOLD", "ML_THRESHOLD",
		"GRPC_TLS_CERT_FILE", "GRPC_TLS_KEY_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8088", cfg.GRPCAddress())
	assert.Equal(t, ":9088", cfg.HTTPAddress())
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "fraud-alerts", cfg.Kafka.Topic)
	assert.Equal(t, 4, cfg.Ledger.Difficulty)
	assert.Equal(t, 100, cfg.Ledger.ValidationWindow)
	assert.True(t, cfg.Rules.AmountThreshold.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 5, cfg.Rules.MaxTransactions)
	assert.Equal(t, 30*time.Minute, cfg.Rules.FrequencyWindow)
	assert.False(t, cfg.Rules.MLEnabled)
	assert.True(t, cfg.Pipeline.SeedDefaultPolicies)
	assert.False(t, cfg.GRPCTLS.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRPC_PORT", "7000")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("KAFKA_BROKER", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("LEDGER_DIFFICULTY", "2")
	t.Setenv("RULE_AMOUNT_THRESHOLD", "2500.50")
	t.Setenv("RULE_FREQUENCY_WINDOW", "10m")
	t.Setenv("ML_ENABLED", "true")
	t.Setenv("BATCH_CONCURRENCY", "not-a-number")
	t.Setenv("GRPC_TLS_CERT_FILE", "/etc/fraudledger/tls/server.pem")
	t.Setenv("GRPC_TLS_KEY_FILE", "/etc/fraudledger/tls/server-key.pem")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.GRPCAddress())
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 2, cfg.Ledger.Difficulty)
	assert.Equal(t, "2500.5", cfg.Rules.AmountThreshold.String())
	assert.Equal(t, 10*time.Minute, cfg.Rules.FrequencyWindow)
	assert.True(t, cfg.Rules.MLEnabled)
	assert.Equal(t, 8, cfg.Pipeline.BatchConcurrency, "unparsable values fall back to the default")
	assert.True(t, cfg.GRPCTLS.Enabled())
	assert.Equal(t, "/etc/fraudledger/tls/server.pem", cfg.GRPCTLS.CertFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.StoreBackend = "sqlite" },
			wantErr: "STORE_BACKEND",
		},
		{
			name: "postgres without url",
			mutate: func(c *Config) {
				c.StoreBackend = BackendPostgres
				c.DatabaseURL = ""
			},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "difficulty out of range",
			mutate:  func(c *Config) { c.Ledger.Difficulty = 65 },
			wantErr: "LEDGER_DIFFICULTY",
		},
		{
			name:    "non-positive window",
			mutate:  func(c *Config) { c.Ledger.ValidationWindow = 0 },
			wantErr: "LEDGER_VALIDATION_WINDOW",
		},
		{
			name:    "critical below high",
			mutate:  func(c *Config) { c.Rules.MerchantCriticalThreshold = decimal.NewFromInt(100) },
			wantErr: "RULE_MERCHANT_CRITICAL_THRESHOLD",
		},
		{
			name:    "tls cert without key",
			mutate:  func(c *Config) { c.GRPCTLS.CertFile = "server.pem" },
			wantErr: "GRPC_TLS_KEY_FILE",
		},
		{
			name:    "model threshold above one",
			mutate:  func(c *Config) { c.Rules.ModelThreshold = decimal.NewFromInt(2) },
			wantErr: "ML_THRESHOLD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
