package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
)

// AmountRuleName is the name the amount rule reports.
const AmountRuleName = "Amount-Based Rule"

var (
	// DefaultAmountThreshold is the absolute amount above which any
	// transaction is flagged.
	DefaultAmountThreshold = decimal.NewFromInt(10000)

	averageMultipleLimit = decimal.NewFromInt(5)
	amountWeight         = decimal.RequireFromString("0.3")
	amountConfidenceCap  = decimal.RequireFromString("0.8")
)

// AmountRule flags transactions above an absolute threshold, or more than
// five times the subject's personal average.
type AmountRule struct {
	threshold decimal.Decimal
}

// NewAmountRule creates an AmountRule. A non-positive threshold falls back
// to DefaultAmountThreshold.
func NewAmountRule(threshold decimal.Decimal) *AmountRule {
	if !threshold.IsPositive() {
		threshold = DefaultAmountThreshold
	}
	return &AmountRule{threshold: threshold}
}

func (r *AmountRule) Name() string { return AmountRuleName }

func (r *AmountRule) Evaluate(_ context.Context, tx *model.Transaction) (bool, error) {
	if r.overThreshold(tx) {
		return true, nil
	}
	ratio, ok := r.averageRatio(tx)
	return ok && ratio.GreaterThan(averageMultipleLimit), nil
}

func (r *AmountRule) Confidence(_ context.Context, tx *model.Transaction) (decimal.Decimal, error) {
	if r.overThreshold(tx) {
		ratio := tx.Amount().DivRound(r.threshold, 2)
		return decimal.Min(ratio.Mul(amountWeight), amountConfidenceCap), nil
	}

	// Under the absolute threshold confidence comes from the average multiple alone.
	ratio, ok := r.averageRatio(tx)
	if !ok || !ratio.GreaterThan(averageMultipleLimit) {
		return decimal.Zero, nil
	}
	scaled := ratio.DivRound(averageMultipleLimit, 2)
	return decimal.Min(scaled.Mul(amountWeight), amountConfidenceCap), nil
}

func (r *AmountRule) overThreshold(tx *model.Transaction) bool {
	return tx.Amount().GreaterThan(r.threshold)
}

// averageRatio returns amount / personal average rounded to 2 places, and
// false when there is no usable average.
func (r *AmountRule) averageRatio(tx *model.Transaction) (decimal.Decimal, bool) {
	avg := tx.PersonalAverage()
	if !avg.IsPositive() {
		return decimal.Zero, false
	}
	return tx.Amount().DivRound(avg, 2), true
}
