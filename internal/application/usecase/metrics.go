package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
)

// tracer is shared by all use cases. It is a no-op until a tracer provider
// is installed.
var tracer = otel.Tracer("github.com/bibbank/fraudledger/internal/application/usecase")

// Metrics receives pipeline measurements.
type Metrics interface {
	TransactionProcessed(ctx context.Context, status string, fraudulent bool, confidence float64, elapsed time.Duration)
	BlockSealed(ctx context.Context, elapsed time.Duration)
	AuditFailed(ctx context.Context)
	PolicyExecuted(ctx context.Context, actionType string)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) TransactionProcessed(context.Context, string, bool, float64, time.Duration) {}
func (NopMetrics) BlockSealed(context.Context, time.Duration)                                 {}
func (NopMetrics) AuditFailed(context.Context)                                                {}
func (NopMetrics) PolicyExecuted(context.Context, string)                                     {}
