package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// MerchantRuleName is the name the merchant-risk rule reports.
const MerchantRuleName = "Enhanced Merchant Risk Rule"

const (
	merchantVelocityWindow = time.Hour
	merchantVelocityLimit  = 3
)

var (
	// DefaultHighRiskThreshold is the amount above which HIGH categories trip.
	DefaultHighRiskThreshold = decimal.NewFromInt(500)
	// DefaultCriticalRiskThreshold is the amount above which CRITICAL categories trip.
	DefaultCriticalRiskThreshold = decimal.NewFromInt(1000)

	suspiciousNameBoost = decimal.RequireFromString("0.2")
	highAmountBoost     = decimal.RequireFromString("0.15")
	criticalAmountBoost = decimal.RequireFromString("0.25")
	lateNightBoost      = decimal.RequireFromString("0.1")
	velocityBoost       = decimal.RequireFromString("0.3")
)

// suspiciousMerchantTokens are matched as substrings of the upper-cased
// merchant name.
var suspiciousMerchantTokens = []string{
	// suspicious
	"TEMP", "TEST", "UNKNOWN", "CASH_ADVANCE", "PAYDAY_LOAN",
	"QUICK_LOAN", "INSTANT_MONEY", "EASY_CASH", "FAST_MONEY",
	// high risk
	"CRYPTO", "GAMBLING", "ADULT", "PREPAID", "WIRE_TRANSFER",
	"MONEY_ORDER", "PAWN_SHOP", "CHECK_CASHING", "LOTTERY",
	// critical risk
	"OFFSHORE_GAMBLING", "ILLEGAL_DRUGS", "WEAPONS", "STOLEN_GOODS",
	"MONEY_LAUNDERING", "TERRORIST_FINANCING", "PYRAMID_SCHEME",
}

// MerchantRiskRule scores the merchant side of a transaction: category risk,
// merchant name, amount against a category-scaled threshold and repeat
// visits to the same merchant.
type MerchantRiskRule struct {
	history           port.TransactionHistory
	highThreshold     decimal.Decimal
	criticalThreshold decimal.Decimal
	velocityEnabled   bool
}

// NewMerchantRiskRule creates a MerchantRiskRule. Non-positive thresholds
// fall back to the defaults.
func NewMerchantRiskRule(
	history port.TransactionHistory,
	highThreshold, criticalThreshold decimal.Decimal,
	velocityEnabled bool,
) *MerchantRiskRule {
	if !highThreshold.IsPositive() {
		highThreshold = DefaultHighRiskThreshold
	}
	if !criticalThreshold.IsPositive() {
		criticalThreshold = DefaultCriticalRiskThreshold
	}
	return &MerchantRiskRule{
		history:           history,
		highThreshold:     highThreshold,
		criticalThreshold: criticalThreshold,
		velocityEnabled:   velocityEnabled,
	}
}

func (r *MerchantRiskRule) Name() string { return MerchantRuleName }

func (r *MerchantRiskRule) Evaluate(ctx context.Context, tx *model.Transaction) (bool, error) {
	level := tx.CategoryRisk()
	if level.IsZero() {
		return false, nil
	}

	if level.AtLeast(valueobject.RiskLevelHigh) {
		return true, nil
	}
	if IsSuspiciousMerchantName(tx.MerchantName()) {
		return true, nil
	}
	if r.exceedsThreshold(level, tx.Amount()) {
		return true, nil
	}
	return r.highVelocity(ctx, tx)
}

func (r *MerchantRiskRule) Confidence(ctx context.Context, tx *model.Transaction) (decimal.Decimal, error) {
	level := tx.CategoryRisk()
	if level.IsZero() {
		return decimal.Zero, nil
	}

	confidence := level.BaseConfidence()

	if IsSuspiciousMerchantName(tx.MerchantName()) {
		confidence = confidence.Add(suspiciousNameBoost)
	}
	if level.Equal(valueobject.RiskLevelHigh) && tx.Amount().GreaterThan(r.highThreshold) {
		confidence = confidence.Add(highAmountBoost)
	}
	if level.Equal(valueobject.RiskLevelCritical) && tx.Amount().GreaterThan(r.criticalThreshold) {
		confidence = confidence.Add(criticalAmountBoost)
	}
	if isLateNight(tx.Timestamp()) && level.AtLeast(valueobject.RiskLevelHigh) {
		confidence = confidence.Add(lateNightBoost)
	}

	velocity, err := r.highVelocity(ctx, tx)
	if err != nil {
		return decimal.Zero, err
	}
	if velocity {
		confidence = confidence.Add(velocityBoost)
	}

	return decimal.Min(confidence, decimalOne), nil
}

func (r *MerchantRiskRule) exceedsThreshold(level valueobject.RiskLevel, amount decimal.Decimal) bool {
	switch {
	case level.Equal(valueobject.RiskLevelHigh):
		return amount.GreaterThan(r.highThreshold)
	case level.Equal(valueobject.RiskLevelCritical):
		return amount.GreaterThan(r.criticalThreshold)
	case level.Equal(valueobject.RiskLevelMedium):
		return amount.GreaterThan(r.highThreshold.Mul(decimal.NewFromInt(2)))
	default:
		return false
	}
}

func (r *MerchantRiskRule) highVelocity(ctx context.Context, tx *model.Transaction) (bool, error) {
	if !r.velocityEnabled || strings.TrimSpace(tx.MerchantName()) == "" {
		return false, nil
	}
	to := tx.Timestamp()
	count, err := r.history.CountAtMerchant(ctx, tx.SubjectID(), tx.MerchantName(), to.Add(-merchantVelocityWindow), to)
	if err != nil {
		return false, fmt.Errorf("failed to count merchant visits: %w", err)
	}
	return count > merchantVelocityLimit, nil
}

// IsSuspiciousMerchantName reports whether a merchant name is blank or
// contains a known risky token.
func IsSuspiciousMerchantName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return true
	}
	upper := strings.ToUpper(name)
	for _, token := range suspiciousMerchantTokens {
		if strings.Contains(upper, token) {
			return true
		}
	}
	return false
}

// isLateNight covers 23:00 through 05:59 UTC.
func isLateNight(t time.Time) bool {
	h := t.UTC().Hour()
	return h >= 23 || h <= 5
}
