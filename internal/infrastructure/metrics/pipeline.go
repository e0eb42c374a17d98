package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bibbank/fraudledger/internal/application/usecase"
)

// MeterName scopes every instrument of the service.
const MeterName = "github.com/bibbank/fraudledger"

// ViolationSource exposes per-rule trigger counts.
type ViolationSource interface {
	ViolationCounts() map[string]int64
}

// Pipeline records decision pipeline measurements as OpenTelemetry
// instruments.
type Pipeline struct {
	processed      metric.Int64Counter
	flagged        metric.Int64Counter
	duration       metric.Float64Histogram
	confidence     metric.Float64Histogram
	blocksSealed   metric.Int64Counter
	sealDuration   metric.Float64Histogram
	auditFailures  metric.Int64Counter
	policyExecuted metric.Int64Counter
	meter          metric.Meter
}

// NewPipeline creates the pipeline instruments on meter.
func NewPipeline(meter metric.Meter) (*Pipeline, error) {
	p := &Pipeline{meter: meter}

	var err error
	if p.processed, err = meter.Int64Counter("transactions.processed",
		metric.WithDescription("Transactions run through the decision pipeline")); err != nil {
		return nil, fmt.Errorf("failed to create processed counter: %w", err)
	}
	if p.flagged, err = meter.Int64Counter("transactions.flagged",
		metric.WithDescription("Transactions scored as fraudulent")); err != nil {
		return nil, fmt.Errorf("failed to create flagged counter: %w", err)
	}
	if p.duration, err = meter.Float64Histogram("transaction.duration",
		metric.WithUnit("s"),
		metric.WithDescription("End-to-end pipeline latency")); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	if p.confidence, err = meter.Float64Histogram("transaction.confidence",
		metric.WithDescription("Aggregate fraud confidence of scored transactions"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1)); err != nil {
		return nil, fmt.Errorf("failed to create confidence histogram: %w", err)
	}
	if p.blocksSealed, err = meter.Int64Counter("ledger.blocks.sealed",
		metric.WithDescription("Blocks mined and persisted")); err != nil {
		return nil, fmt.Errorf("failed to create blocks counter: %w", err)
	}
	if p.sealDuration, err = meter.Float64Histogram("ledger.seal.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent mining and persisting a block")); err != nil {
		return nil, fmt.Errorf("failed to create seal histogram: %w", err)
	}
	if p.auditFailures, err = meter.Int64Counter("ledger.audit.failures",
		metric.WithDescription("Decisions that could not be sealed into the ledger")); err != nil {
		return nil, fmt.Errorf("failed to create audit failure counter: %w", err)
	}
	if p.policyExecuted, err = meter.Int64Counter("policy.executions",
		metric.WithDescription("Remediation policy dispatches")); err != nil {
		return nil, fmt.Errorf("failed to create policy counter: %w", err)
	}

	return p, nil
}

func (p *Pipeline) TransactionProcessed(ctx context.Context, status string, fraudulent bool, confidence float64, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("fraudulent", fraudulent),
	)
	p.processed.Add(ctx, 1, attrs)
	if fraudulent {
		p.flagged.Add(ctx, 1)
	}
	p.duration.Record(ctx, elapsed.Seconds(), attrs)
	p.confidence.Record(ctx, confidence)
}

func (p *Pipeline) BlockSealed(ctx context.Context, elapsed time.Duration) {
	p.blocksSealed.Add(ctx, 1)
	p.sealDuration.Record(ctx, elapsed.Seconds())
}

func (p *Pipeline) AuditFailed(ctx context.Context) {
	p.auditFailures.Add(ctx, 1)
}

func (p *Pipeline) PolicyExecuted(ctx context.Context, actionType string) {
	p.policyExecuted.Add(ctx, 1, metric.WithAttributes(attribute.String("action_type", actionType)))
}

// ObserveRuleViolations exports source's per-rule tally as an observable
// counter. The returned registration stops the export when unregistered.
func (p *Pipeline) ObserveRuleViolations(source ViolationSource) (metric.Registration, error) {
	violations, err := p.meter.Int64ObservableCounter("rule.violations",
		metric.WithDescription("Times each fraud rule has triggered"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rule violation counter: %w", err)
	}

	reg, err := p.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for rule, n := range source.ViolationCounts() {
			o.ObserveInt64(violations, n, metric.WithAttributes(attribute.String("rule", rule)))
		}
		return nil
	}, violations)
	if err != nil {
		return nil, fmt.Errorf("failed to register rule violation callback: %w", err)
	}
	return reg, nil
}

var _ usecase.Metrics = (*Pipeline)(nil)
