package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
)

// FrequencyRuleName is the name the frequency rule reports.
const FrequencyRuleName = "Frequency-Based Rule"

const (
	// DefaultMaxTransactions is how many transactions inside the window trip the rule.
	DefaultMaxTransactions = 5
	// DefaultFrequencyWindow is the trailing window the rule counts over.
	DefaultFrequencyWindow = 30 * time.Minute
)

var (
	frequencyWeight        = decimal.RequireFromString("0.6")
	frequencyConfidenceCap = decimal.RequireFromString("0.9")
)

// FrequencyRule flags subjects transacting too often in a trailing window.
type FrequencyRule struct {
	history         port.TransactionHistory
	maxTransactions int64
	window          time.Duration
}

// NewFrequencyRule creates a FrequencyRule. Non-positive settings fall back
// to the defaults.
func NewFrequencyRule(history port.TransactionHistory, maxTransactions int, window time.Duration) *FrequencyRule {
	if maxTransactions <= 0 {
		maxTransactions = DefaultMaxTransactions
	}
	if window <= 0 {
		window = DefaultFrequencyWindow
	}
	return &FrequencyRule{
		history:         history,
		maxTransactions: int64(maxTransactions),
		window:          window,
	}
}

func (r *FrequencyRule) Name() string { return FrequencyRuleName }

func (r *FrequencyRule) Evaluate(ctx context.Context, tx *model.Transaction) (bool, error) {
	count, err := r.recent(ctx, tx)
	if err != nil {
		return false, err
	}
	return count >= r.maxTransactions, nil
}

func (r *FrequencyRule) Confidence(ctx context.Context, tx *model.Transaction) (decimal.Decimal, error) {
	count, err := r.recent(ctx, tx)
	if err != nil {
		return decimal.Zero, err
	}
	if count < r.maxTransactions {
		return decimal.Zero, nil
	}
	ratio := decimal.NewFromInt(count).Div(decimal.NewFromInt(r.maxTransactions))
	return decimal.Min(ratio.Mul(frequencyWeight), frequencyConfidenceCap).Round(2), nil
}

func (r *FrequencyRule) recent(ctx context.Context, tx *model.Transaction) (int64, error) {
	to := tx.Timestamp()
	count, err := r.history.CountInWindow(ctx, tx.SubjectID(), to.Add(-r.window), to)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent transactions: %w", err)
	}
	return count, nil
}
