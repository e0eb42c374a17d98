package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RiskLevel is an immutable value object classifying how risky a merchant
// category is. The zero value means the category could not be resolved.
type RiskLevel struct {
	value string
}

var (
	RiskLevelLow      = RiskLevel{value: "LOW"}
	RiskLevelMedium   = RiskLevel{value: "MEDIUM"}
	RiskLevelHigh     = RiskLevel{value: "HIGH"}
	RiskLevelCritical = RiskLevel{value: "CRITICAL"}
)

// RiskLevelFromString reconstructs a RiskLevel from its string representation.
func RiskLevelFromString(s string) (RiskLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return RiskLevelLow, nil
	case "MEDIUM":
		return RiskLevelMedium, nil
	case "HIGH":
		return RiskLevelHigh, nil
	case "CRITICAL":
		return RiskLevelCritical, nil
	default:
		return RiskLevel{}, fmt.Errorf("invalid risk level: %s", s)
	}
}

// String returns the string representation.
func (r RiskLevel) String() string {
	return r.value
}

// Rank orders the levels LOW=1 .. CRITICAL=4. Unresolved levels rank 0.
func (r RiskLevel) Rank() int {
	switch r.value {
	case "LOW":
		return 1
	case "MEDIUM":
		return 2
	case "HIGH":
		return 3
	case "CRITICAL":
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether r is as risky as other or riskier.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return !r.IsZero() && r.Rank() >= other.Rank()
}

// BaseConfidence returns the starting confidence the merchant rule assigns
// to a transaction in a category of this level.
func (r RiskLevel) BaseConfidence() decimal.Decimal {
	switch r.value {
	case "LOW":
		return decimal.RequireFromString("0.1")
	case "MEDIUM":
		return decimal.RequireFromString("0.4")
	case "HIGH":
		return decimal.RequireFromString("0.7")
	case "CRITICAL":
		return decimal.RequireFromString("0.95")
	default:
		return decimal.Zero
	}
}

// IsZero returns true if the RiskLevel has not been set.
func (r RiskLevel) IsZero() bool {
	return r.value == ""
}

// Equal checks equality with another RiskLevel.
func (r RiskLevel) Equal(other RiskLevel) bool {
	return r.value == other.value
}
