package valueobject_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

func TestStatusFromOutcome(t *testing.T) {
	assert.True(t, valueobject.StatusUnderReview.Equal(valueobject.StatusFromOutcome(true)))
	assert.True(t, valueobject.StatusApproved.Equal(valueobject.StatusFromOutcome(false)))
}

func TestProcessingStatus_FromString(t *testing.T) {
	for _, s := range []string{"PENDING", "APPROVED", "DECLINED", "UNDER_REVIEW"} {
		t.Run(s, func(t *testing.T) {
			status, err := valueobject.ProcessingStatusFromString(s)
			require.NoError(t, err)
			assert.Equal(t, s, status.String())
		})
	}

	_, err := valueobject.ProcessingStatusFromString("FLAGGED")
	require.Error(t, err)
}

func TestPaymentMethodOrDefault(t *testing.T) {
	tests := []struct {
		input    string
		expected valueobject.PaymentMethod
	}{
		{"debit_card", valueobject.PaymentDebitCard},
		{"BANK_TRANSFER", valueobject.PaymentBankTransfer},
		{" cash ", valueobject.PaymentCash},
		{"bitcoin", valueobject.PaymentCreditCard},
		{"", valueobject.PaymentCreditCard},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.True(t, tt.expected.Equal(valueobject.PaymentMethodOrDefault(tt.input)))
		})
	}
}

func TestActionType_IsKnown(t *testing.T) {
	assert.True(t, valueobject.NewActionType("block_account").IsKnown())
	assert.True(t, valueobject.NewActionType("REQUIRE_2FA").Equal(valueobject.ActionRequire2FA))
	assert.False(t, valueobject.NewActionType("SEND_FLOWERS").IsKnown())
	assert.Equal(t, "SEND_FLOWERS", valueobject.NewActionType("send_flowers").String())
}

func TestSeverityFromConfidence(t *testing.T) {
	tests := []struct {
		confidence string
		expected   valueobject.AlertSeverity
	}{
		{"0.95", valueobject.SeverityCritical},
		{"0.80", valueobject.SeverityCritical},
		{"0.79", valueobject.SeverityHigh},
		{"0.60", valueobject.SeverityHigh},
		{"0.59", valueobject.SeverityMedium},
		{"0.40", valueobject.SeverityMedium},
		{"0.39", valueobject.SeverityLow},
		{"0", valueobject.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.confidence, func(t *testing.T) {
			got := valueobject.SeverityFromConfidence(decimal.RequireFromString(tt.confidence))
			assert.True(t, tt.expected.Equal(got), "got %s", got)
		})
	}
}

func TestAlertStatus_IsClosed(t *testing.T) {
	assert.False(t, valueobject.AlertOpen.IsClosed())
	assert.False(t, valueobject.AlertInvestigating.IsClosed())
	assert.True(t, valueobject.AlertResolved.IsClosed())
	assert.True(t, valueobject.AlertFalsePositive.IsClosed())
}
