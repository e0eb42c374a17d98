package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
)

// Rule is one independent fraud check. Implementations must be safe for
// concurrent use.
type Rule interface {
	// Name identifies the rule in decisions and violation tallies.
	Name() string

	// Evaluate reports whether the transaction looks fraudulent.
	Evaluate(ctx context.Context, tx *model.Transaction) (bool, error)

	// Confidence returns the rule's certainty in [0, 1]. It is only
	// consulted when Evaluate returned true.
	Confidence(ctx context.Context, tx *model.Transaction) (decimal.Decimal, error)
}

var (
	decimalOne = decimal.NewFromInt(1)
)

func clampUnit(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(decimalOne) {
		return decimalOne
	}
	return d
}
