package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bibbank/fraudledger/internal/application/dto"
	"github.com/bibbank/fraudledger/internal/domain/event"
	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/service"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
	"github.com/bibbank/fraudledger/pkg/events"
)

// DefaultBatchConcurrency bounds parallel work in ExecuteBatch.
const DefaultBatchConcurrency = 8

// ProcessTransactionDeps groups the collaborators of the pipeline.
type ProcessTransactionDeps struct {
	History    port.TransactionHistory
	Categories port.CategoryDirectory
	Alerts     port.AlertStore
	Publisher  port.EventPublisher
	Engine     *service.ScoringEngine
	Ledger     *service.Ledger
	Policies   *service.PolicyExecutor
	Metrics    Metrics
	Logger     *slog.Logger
	// BatchConcurrency defaults to DefaultBatchConcurrency when <= 0.
	BatchConcurrency int
}

// ProcessTransaction is the decision pipeline: score, seal into the ledger,
// then run remediation policies.
type ProcessTransaction struct {
	history    port.TransactionHistory
	categories port.CategoryDirectory
	alerts     port.AlertStore
	publisher  port.EventPublisher
	engine     *service.ScoringEngine
	ledger     *service.Ledger
	policies   *service.PolicyExecutor
	metrics    Metrics
	logger     *slog.Logger
	batchLimit int
}

// NewProcessTransaction creates a new ProcessTransaction use case.
func NewProcessTransaction(deps ProcessTransactionDeps) *ProcessTransaction {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	limit := deps.BatchConcurrency
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}

	return &ProcessTransaction{
		history:    deps.History,
		categories: deps.Categories,
		alerts:     deps.Alerts,
		publisher:  deps.Publisher,
		engine:     deps.Engine,
		ledger:     deps.Ledger,
		policies:   deps.Policies,
		metrics:    metrics,
		logger:     deps.Logger,
		batchLimit: limit,
	}
}

// Execute runs one transaction through the pipeline. Validation failures
// wrap model.ErrValidation. A failed ledger append does not fail the call;
// the response reports Sealed=false with the audit error instead.
func (uc *ProcessTransaction) Execute(ctx context.Context, req dto.ProcessTransactionRequest) (dto.ProcessTransactionResponse, error) {
	ctx, span := tracer.Start(ctx, "ProcessTransaction", trace.WithAttributes(
		attribute.String("transaction.id", req.TransactionID),
		attribute.String("transaction.subject_id", req.SubjectID),
	))
	defer span.End()

	started := time.Now()

	// 1. Validate, claim the id, and enrich the request into a PENDING
	// transaction.
	if err := validateRequest(req); err != nil {
		return uc.reject(span, err)
	}
	if err := uc.reserve(ctx, req.TransactionID); err != nil {
		return uc.reject(span, err)
	}
	tx, err := uc.buildTransaction(ctx, req)
	if err != nil {
		uc.release(ctx, req.TransactionID)
		return uc.reject(span, err)
	}

	// 2. Score.
	decision := uc.engine.Analyze(ctx, tx)

	// 3. Record in history so later requests see it.
	if err := uc.history.Record(ctx, tx); err != nil {
		uc.release(ctx, tx.ID())
		span.RecordError(err)
		span.SetStatus(codes.Error, "history unavailable")
		return dto.ProcessTransactionResponse{}, fmt.Errorf("failed to record transaction: %w", err)
	}

	resp := dto.NewProcessTransactionResponse(tx, decision)
	var pending []events.DomainEvent

	// 4. Seal the decision into the ledger.
	sealStarted := time.Now()
	block, err := uc.ledger.Append(ctx, tx.ID(), tx.Snapshot(), tx.Status().String(), decision.Confidence, decision.Reasons())
	if err != nil {
		resp.AuditError = err.Error()
		uc.metrics.AuditFailed(ctx)
		span.AddEvent("ledger append failed", trace.WithAttributes(attribute.String("error", err.Error())))
		uc.logger.Error("transaction scored but not sealed",
			slog.String("transaction_id", tx.ID()),
			slog.String("error", err.Error()),
		)
	} else {
		resp.Sealed = true
		resp.BlockIndex = block.Index()
		resp.BlockHash = block.Hash()
		uc.metrics.BlockSealed(ctx, time.Since(sealStarted))
		pending = append(pending, event.NewBlockSealed(
			block.Index(), block.Hash(), block.PreviousHash(), block.Nonce(),
			block.TransactionID(), block.Decision(), block.RiskScore(), block.Timestamp(),
		))
	}

	// 5. Raise an alert for fraudulent outcomes.
	if decision.Fraudulent {
		alert, err := model.NewFraudAlert(tx, decision)
		if err != nil {
			return dto.ProcessTransactionResponse{}, fmt.Errorf("failed to create alert: %w", err)
		}
		resp.AlertID = alert.ID().String()
		resp.AlertSeverity = alert.Severity().String()

		if err := uc.alerts.Save(ctx, alert); err != nil {
			uc.logger.Error("failed to store fraud alert",
				slog.String("transaction_id", tx.ID()),
				slog.String("error", err.Error()),
			)
		}
		pending = append(pending, alert.ClearEvents()...)
	}

	// 6. Run remediation policies against the aggregate confidence.
	results, err := uc.policies.Run(ctx, service.ActionContext{
		TransactionID: tx.ID(),
		SubjectID:     tx.SubjectID(),
		RiskScore:     decision.Confidence,
	})
	if err != nil {
		uc.logger.Warn("policy execution incomplete",
			slog.String("transaction_id", tx.ID()),
			slog.String("error", err.Error()),
		)
	}
	for _, r := range results {
		resp.Actions = append(resp.Actions, dto.FromActionResult(r))
		uc.metrics.PolicyExecuted(ctx, r.ActionType.String())
		pending = append(pending, event.NewPolicyExecuted(
			r.PolicyID, r.PolicyName, r.ActionType.String(), r.Description,
			tx.ID(), tx.SubjectID(), decision.Confidence, r.ExecutionCount,
		))
	}

	// 7. Publish; delivery problems never fail the request.
	if len(pending) > 0 {
		if err := uc.publisher.Publish(ctx, pending...); err != nil {
			uc.logger.Warn("failed to publish pipeline events",
				slog.String("transaction_id", tx.ID()),
				slog.Int("events", len(pending)),
				slog.String("error", err.Error()),
			)
		}
	}

	uc.metrics.TransactionProcessed(ctx, resp.Status, decision.Fraudulent,
		decision.Confidence.InexactFloat64(), time.Since(started))
	span.SetAttributes(
		attribute.Bool("fraud.detected", decision.Fraudulent),
		attribute.String("fraud.confidence", resp.Confidence),
		attribute.Bool("ledger.sealed", resp.Sealed),
	)

	return resp, nil
}

// ExecuteBatch processes requests concurrently. Each response sits at the
// index of its request; failed items carry an ERROR status.
func (uc *ProcessTransaction) ExecuteBatch(ctx context.Context, reqs []dto.ProcessTransactionRequest) []dto.ProcessTransactionResponse {
	out := make([]dto.ProcessTransactionResponse, len(reqs))

	var g errgroup.Group
	g.SetLimit(uc.batchLimit)
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := uc.Execute(ctx, req)
			if err != nil {
				uc.logger.Warn("batch item failed",
					slog.String("transaction_id", req.TransactionID),
					slog.String("error", err.Error()),
				)
				out[i] = dto.ErrorResponse(req, err)
				return nil
			}
			out[i] = resp
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (uc *ProcessTransaction) reject(span trace.Span, err error) (dto.ProcessTransactionResponse, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "invalid transaction")
	return dto.ProcessTransactionResponse{}, err
}

// reserve claims the transaction id before any scoring work, so concurrent
// duplicates are rejected the same way as sequential ones.
func (uc *ProcessTransaction) reserve(ctx context.Context, transactionID string) error {
	claimed, err := uc.history.Reserve(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("failed to reserve transaction ID: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: Duplicate transaction ID: %s", model.ErrValidation, transactionID)
	}
	return nil
}

func (uc *ProcessTransaction) release(ctx context.Context, transactionID string) {
	if err := uc.history.Release(context.WithoutCancel(ctx), transactionID); err != nil {
		uc.logger.Warn("failed to release transaction ID",
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()),
		)
	}
}

func (uc *ProcessTransaction) buildTransaction(ctx context.Context, req dto.ProcessTransactionRequest) (*model.Transaction, error) {
	level, err := uc.resolveCategory(ctx, req)
	if err != nil {
		return nil, err
	}

	avg, err := uc.history.AverageAmount(ctx, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load personal average: %w", err)
	}

	tx, err := model.NewTransaction(model.TransactionParams{
		ID:              req.TransactionID,
		SubjectID:       req.SubjectID,
		Amount:          req.Amount,
		CategoryCode:    req.CategoryCode,
		CategoryRisk:    level,
		MerchantName:    req.MerchantName,
		Location:        req.Location,
		PaymentMethod:   valueobject.PaymentMethodOrDefault(req.PaymentMethod),
		Timestamp:       req.Timestamp,
		PersonalAverage: avg,
		Description:     req.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

func (uc *ProcessTransaction) resolveCategory(ctx context.Context, req dto.ProcessTransactionRequest) (valueobject.RiskLevel, error) {
	if strings.TrimSpace(req.CategoryRisk) != "" {
		level, err := valueobject.RiskLevelFromString(req.CategoryRisk)
		if err != nil {
			return valueobject.RiskLevel{}, fmt.Errorf("%w: %v", model.ErrValidation, err)
		}
		return level, nil
	}

	level, found, err := uc.categories.Resolve(ctx, req.CategoryCode)
	if err != nil {
		return valueobject.RiskLevel{}, fmt.Errorf("failed to resolve merchant category: %w", err)
	}
	if !found {
		return valueobject.RiskLevel{}, fmt.Errorf("%w: Merchant category not found: %s", model.ErrValidation, req.CategoryCode)
	}
	return level, nil
}

func validateRequest(req dto.ProcessTransactionRequest) error {
	switch {
	case strings.TrimSpace(req.TransactionID) == "":
		return fmt.Errorf("%w: Transaction ID is required", model.ErrValidation)
	case strings.TrimSpace(req.SubjectID) == "":
		return fmt.Errorf("%w: User ID is required", model.ErrValidation)
	case !req.Amount.IsPositive():
		return fmt.Errorf("%w: Amount must be positive", model.ErrValidation)
	case strings.TrimSpace(req.CategoryCode) == "":
		return fmt.Errorf("%w: Merchant category code is required", model.ErrValidation)
	}
	return nil
}
