package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/infrastructure/config"
	"github.com/bibbank/fraudledger/internal/infrastructure/memory"
	"github.com/bibbank/fraudledger/internal/infrastructure/postgres"
	"github.com/bibbank/fraudledger/internal/infrastructure/redis"
	"github.com/bibbank/fraudledger/internal/presentation/rest"
	pgutil "github.com/bibbank/fraudledger/pkg/postgres"
)

// stores bundles the persistence adapters selected by configuration.
type stores struct {
	blocks     port.BlockStore
	policies   port.PolicyStore
	alerts     port.AlertStore
	history    port.TransactionHistory
	categories port.CategoryDirectory
	checks     map[string]rest.CheckFunc
	closers    []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{checks: make(map[string]rest.CheckFunc)}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		pool, err := pgutil.NewPool(ctx, pgutil.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.checks["postgres"] = func(ctx context.Context) error { return pgutil.HealthCheck(ctx, pool) }

		s.blocks = postgres.NewBlockStore(pool)
		s.policies = postgres.NewPolicyStore(pool)
		s.alerts = postgres.NewAlertStore(pool)
		s.history = postgres.NewTransactionHistory(pool)
		s.categories = postgres.NewCategoryDirectory(pool)
		logger.Info("using postgres stores")

	default:
		s.blocks = memory.NewBlockStore()
		s.policies = memory.NewPolicyStore()
		s.alerts = memory.NewAlertStore()
		s.history = memory.NewTransactionHistory()
		s.categories = memory.NewCategoryDirectory(memory.DefaultCategories()...)
		logger.Info("using in-memory stores")
	}

	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open transaction history: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		s.history = redis.NewTransactionHistory(client)
		logger.Info("using redis transaction history", slog.String("addr", cfg.Redis.Addr))
	}

	return s, nil
}
