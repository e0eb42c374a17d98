package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/application/dto"
	"github.com/bibbank/fraudledger/internal/domain/service"
)

// DefaultHighRiskLimit caps HighRiskBlocks when the caller gives no limit.
const DefaultHighRiskLimit = 100

// AuditLedger exposes the read side of the audit ledger.
type AuditLedger struct {
	ledger *service.Ledger
}

// NewAuditLedger creates a new AuditLedger use case.
func NewAuditLedger(ledger *service.Ledger) *AuditLedger {
	return &AuditLedger{ledger: ledger}
}

// Validate checks the newest window blocks.
func (uc *AuditLedger) Validate(ctx context.Context, window int) (dto.ValidationResponse, error) {
	ctx, span := tracer.Start(ctx, "AuditLedger.Validate")
	defer span.End()

	report, err := uc.ledger.Validate(ctx, window)
	if err != nil {
		return dto.ValidationResponse{}, fmt.Errorf("failed to validate ledger: %w", err)
	}
	return dto.FromValidationReport(report), nil
}

// Stats summarizes the chain.
func (uc *AuditLedger) Stats(ctx context.Context) (dto.LedgerStatsResponse, error) {
	stats, err := uc.ledger.Stats(ctx)
	if err != nil {
		return dto.LedgerStatsResponse{}, fmt.Errorf("failed to compute ledger stats: %w", err)
	}
	return dto.FromLedgerStats(stats), nil
}

// TransactionHistory returns the blocks sealing one transaction.
func (uc *AuditLedger) TransactionHistory(ctx context.Context, transactionID string) ([]dto.BlockResponse, error) {
	blocks, err := uc.ledger.History(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return dto.FromBlocks(blocks), nil
}

// HighRiskBlocks returns blocks at or above minScore, newest first.
func (uc *AuditLedger) HighRiskBlocks(ctx context.Context, minScore decimal.Decimal, limit int) ([]dto.BlockResponse, error) {
	if limit <= 0 {
		limit = DefaultHighRiskLimit
	}
	blocks, err := uc.ledger.HighRiskBlocks(ctx, minScore, limit)
	if err != nil {
		return nil, err
	}
	return dto.FromBlocks(blocks), nil
}
