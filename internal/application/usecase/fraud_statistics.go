package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/application/dto"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// DefaultHistoryLimit caps TransactionsBySubject when no limit is given.
const DefaultHistoryLimit = 50

// FraudStatistics reports on scored transactions and alerts.
type FraudStatistics struct {
	history port.TransactionHistory
	alerts  port.AlertStore
}

// NewFraudStatistics creates a new FraudStatistics use case.
func NewFraudStatistics(history port.TransactionHistory, alerts port.AlertStore) *FraudStatistics {
	return &FraudStatistics{history: history, alerts: alerts}
}

// Execute computes the fraud rate and open alert counts.
func (uc *FraudStatistics) Execute(ctx context.Context) (dto.FraudStatisticsResponse, error) {
	stats, err := uc.history.Stats(ctx)
	if err != nil {
		return dto.FraudStatisticsResponse{}, fmt.Errorf("failed to load transaction stats: %w", err)
	}

	open, err := uc.alerts.FindOpen(ctx)
	if err != nil {
		return dto.FraudStatisticsResponse{}, fmt.Errorf("failed to load open alerts: %w", err)
	}
	var critical int64
	for _, a := range open {
		if a.Severity().Equal(valueobject.SeverityCritical) {
			critical++
		}
	}

	return dto.FraudStatisticsResponse{
		TotalTransactions:      stats.Total,
		FraudulentTransactions: stats.Fraudulent,
		FraudRate:              FraudRate(stats.Fraudulent, stats.Total).StringFixed(2),
		OpenAlerts:             int64(len(open)),
		CriticalAlerts:         critical,
	}, nil
}

// TransactionsBySubject returns a subject's recorded transactions, newest first.
func (uc *FraudStatistics) TransactionsBySubject(ctx context.Context, subjectID string, limit int) ([]dto.TransactionResponse, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	txs, err := uc.history.FindBySubject(ctx, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, dto.FromTransaction(tx))
	}
	return out, nil
}

// FraudRate returns fraudulent/total as a percentage rounded to 2 places.
func FraudRate(fraudulent, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(fraudulent).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(total), 2)
}
