package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Decision is the aggregated outcome of one scoring pass.
// Confidence is always within [0, 1].
type Decision struct {
	Confidence     decimal.Decimal
	TriggeredRules []string
	Fraudulent     bool
}

// Reasons joins the triggered rule names in evaluation order.
func (d Decision) Reasons() string {
	return strings.Join(d.TriggeredRules, ", ")
}
