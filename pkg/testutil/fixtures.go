package testutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// Deterministic identities and clock for tests.
const (
	TestSubjectID  = "user-0001"
	TestSubjectID2 = "user-0002"
	TestMerchant   = "Corner Grocery"
)

// TestTime is the fixed clock most fixtures are stamped with.
var TestTime = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

// NewTransaction builds a valid grocery transaction for subject at the given
// time. Amount is a decimal literal.
func NewTransaction(t *testing.T, id, subjectID, amount string, at time.Time) *model.Transaction {
	t.Helper()

	tx, err := model.NewTransaction(model.TransactionParams{
		ID:            id,
		SubjectID:     subjectID,
		Amount:        decimal.RequireFromString(amount),
		CategoryCode:  "GRO",
		CategoryRisk:  valueobject.RiskLevelLow,
		MerchantName:  TestMerchant,
		Location:      "Springfield",
		PaymentMethod: valueobject.PaymentDebitCard,
		Timestamp:     at,
	})
	RequireNoError(t, err, "building transaction fixture %s", id)
	return tx
}

// NewFraudulentTransaction is NewTransaction with a fraudulent decision applied.
func NewFraudulentTransaction(t *testing.T, id, subjectID, amount string, at time.Time) *model.Transaction {
	t.Helper()

	tx := NewTransaction(t, id, subjectID, amount, at)
	tx.ApplyDecision(FraudulentDecision())
	return tx
}

// FraudulentDecision is a decision flagged by two rules at 0.85 confidence.
func FraudulentDecision() model.Decision {
	return model.Decision{
		Fraudulent:     true,
		Confidence:     decimal.RequireFromString("0.85"),
		TriggeredRules: []string{"Amount Threshold Rule", "Enhanced Merchant Risk Rule"},
	}
}
