package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bibbank/fraudledger/internal/application/usecase"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/service"
	"github.com/bibbank/fraudledger/internal/infrastructure/config"
	"github.com/bibbank/fraudledger/internal/infrastructure/kafka"
	"github.com/bibbank/fraudledger/internal/infrastructure/messaging"
	"github.com/bibbank/fraudledger/internal/infrastructure/metrics"
	"github.com/bibbank/fraudledger/internal/infrastructure/ml"
	grpcpresentation "github.com/bibbank/fraudledger/internal/presentation/grpc"
	"github.com/bibbank/fraudledger/internal/presentation/rest"
	pkgkafka "github.com/bibbank/fraudledger/pkg/kafka"
	"github.com/bibbank/fraudledger/pkg/observability"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fraudledgerd failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	logger.Info("starting fraudledgerd",
		slog.String("version", version),
		slog.String("grpc_port", cfg.GRPCPort),
		slog.String("http_port", cfg.HTTPPort),
		slog.String("store_backend", cfg.StoreBackend),
	)

	// Telemetry.
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", slog.String("error", err.Error()))
		shutdownTracer = func(context.Context) error { return nil }
	}

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	pipelineMetrics, err := metrics.NewPipeline(meterProvider.Meter(metrics.MeterName))
	if err != nil {
		return err
	}

	// Persistence.
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	// Events.
	var publisher port.EventPublisher = messaging.NewLogPublisher(logger)
	var producer *pkgkafka.Producer
	if cfg.KafkaEnabled() {
		producer, err = pkgkafka.NewProducer(pkgkafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Telemetry.ServiceName,
		})
		if err != nil {
			return err
		}
		publisher = kafka.NewPublisher(producer, cfg.Kafka.Topic, kafka.BreakerConfig{}, publisher, logger)
		logger.Info("publishing events to kafka", slog.String("topic", cfg.Kafka.Topic))
	}

	// Domain services.
	engine := service.NewScoringEngine(logger,
		service.NewAmountRule(cfg.Rules.AmountThreshold),
		service.NewFrequencyRule(st.history, cfg.Rules.MaxTransactions, cfg.Rules.FrequencyWindow),
		service.NewMerchantRiskRule(st.history,
			cfg.Rules.MerchantHighThreshold,
			cfg.Rules.MerchantCriticalThreshold,
			cfg.Rules.MerchantVelocity,
		),
	)
	if cfg.Rules.MLEnabled {
		engine.Register(service.NewModelRule(ml.NewHeuristicClient(logger), cfg.Rules.ModelThreshold))
	}
	violations, err := pipelineMetrics.ObserveRuleViolations(engine)
	if err != nil {
		return err
	}
	defer func() { _ = violations.Unregister() }()

	ledger := service.NewLedger(st.blocks, service.LedgerConfig{
		Difficulty:       cfg.Ledger.Difficulty,
		ValidationWindow: cfg.Ledger.ValidationWindow,
	}, logger)
	tip, err := ledger.Initialize(ctx)
	if err != nil {
		return err
	}
	logger.Info("ledger ready",
		slog.Int64("tip_index", tip.Index()),
		slog.Int("difficulty", ledger.Difficulty()),
	)

	executor := service.NewPolicyExecutor(st.policies, logger)
	if cfg.Pipeline.SeedDefaultPolicies {
		seeded, err := executor.SeedDefaults(ctx)
		if err != nil {
			return err
		}
		if seeded > 0 {
			logger.Info("seeded default policies", slog.Int("count", seeded))
		}
	}

	// Use cases.
	manageAlerts := usecase.NewManageAlerts(st.alerts, publisher, logger)
	handler := grpcpresentation.NewFraudLedgerHandler(grpcpresentation.UseCases{
		Process: usecase.NewProcessTransaction(usecase.ProcessTransactionDeps{
			History:          st.history,
			Categories:       st.categories,
			Alerts:           st.alerts,
			Publisher:        publisher,
			Engine:           engine,
			Ledger:           ledger,
			Policies:         executor,
			Metrics:          pipelineMetrics,
			Logger:           logger,
			BatchConcurrency: cfg.Pipeline.BatchConcurrency,
		}),
		Audit:      usecase.NewAuditLedger(ledger),
		Policies:   usecase.NewManagePolicies(executor),
		Alerts:     manageAlerts,
		Statistics: usecase.NewFraudStatistics(st.history, st.alerts),
	}, logger)

	// Servers.
	grpcServer, err := grpcpresentation.NewServer(handler, grpcpresentation.ServerOptions{
		Address:     cfg.GRPCAddress(),
		Reflection:  cfg.GRPCReflection,
		TLSCertFile: cfg.GRPCTLS.CertFile,
		TLSKeyFile:  cfg.GRPCTLS.KeyFile,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	health := rest.NewHealthHandler(cfg.Telemetry.ServiceName, logger)
	for name, check := range st.checks {
		health.AddCheck(name, check)
	}
	health.SetMetricsHandler(metricsHandler)
	httpMux := http.NewServeMux()
	health.RegisterRoutes(httpMux)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      httpMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 3)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", slog.String("address", cfg.HTTPAddress()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var consumer *pkgkafka.Consumer
	if cfg.KafkaEnabled() && cfg.Kafka.ListenAlerts {
		consumer, err = pkgkafka.NewConsumer(pkgkafka.Config{
			Brokers:       cfg.Kafka.Brokers,
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
			ClientID:      cfg.Telemetry.ServiceName,
		}, cfg.Kafka.Topic, kafka.NewAlertListener(logger).Handle, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("alert listener error: %w", err)
			}
		}()
	}

	logger.Info("fraudledgerd started",
		slog.String("grpc_address", cfg.GRPCAddress()),
		slog.String("http_address", cfg.HTTPAddress()),
		slog.String("environment", cfg.Environment),
	)

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		logger.Error("server error", slog.String("error", err.Error()))
	}

	// Graceful shutdown.
	logger.Info("shutting down fraudledgerd")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Pipeline.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("alert listener shutdown error", slog.String("error", err.Error()))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka producer shutdown error", slog.String("error", err.Error()))
		}
	}

	engine.Report()

	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("meter provider shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("fraudledgerd stopped")
	return nil
}
