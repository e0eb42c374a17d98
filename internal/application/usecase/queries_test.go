package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudledger/internal/application/dto"
	"github.com/bibbank/fraudledger/internal/application/usecase"
	"github.com/bibbank/fraudledger/internal/domain/event"
	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/service"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// seed runs two clean transactions and one fraudulent one (TX-S3, 0.85).
func seed(t *testing.T, f *fixture) {
	t.Helper()
	for _, r := range []dto.ProcessTransactionRequest{
		request("TX-S1", "40"),
		request("TX-S2", "60"),
		request("TX-S3", "25000"),
	} {
		_, err := f.process.Execute(context.Background(), r)
		require.NoError(t, err)
	}
}

func TestAuditLedger_ValidateAndStats(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	ctx := context.Background()
	uc := usecase.NewAuditLedger(f.ledger)

	report, err := uc.Validate(ctx, 0)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, int64(-1), report.FirstInvalidIndex)
	assert.Equal(t, 4, report.Checked)

	stats, err := uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalBlocks)
	assert.Equal(t, int64(0), stats.InvalidBlocks)
	assert.Equal(t, int64(3), stats.LastBlockIndex)
	assert.Equal(t, int64(3), stats.Decisions[valueobject.StatusApproved.String()], "genesis counts as approved")
	assert.Equal(t, int64(1), stats.Decisions[valueobject.StatusUnderReview.String()])
	assert.Equal(t, 1, stats.Difficulty)
	assert.True(t, stats.Valid)
	require.NotNil(t, stats.LastBlockTimestamp)
}

func TestAuditLedger_DetectsTampering(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	ctx := context.Background()
	uc := usecase.NewAuditLedger(f.ledger)

	require.True(t, f.blocks.Tamper(2, func(r *model.BlockRecord) {
		r.RiskScore = decimal.RequireFromString("0.01")
	}))

	report, err := uc.Validate(ctx, 0)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, int64(2), report.FirstInvalidIndex)
	assert.NotEmpty(t, report.Reason)

	stats, err := uc.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.Valid)
	assert.Equal(t, int64(1), stats.InvalidBlocks)

	history, err := uc.TransactionHistory(ctx, "TX-S2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Valid)
}

func TestAuditLedger_HighRiskBlocks(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	uc := usecase.NewAuditLedger(f.ledger)

	blocks, err := uc.HighRiskBlocks(context.Background(), decimal.RequireFromString("0.8"), 0)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "TX-S3", blocks[0].TransactionID)
	assert.Equal(t, "0.85", blocks[0].RiskScore)
	assert.Equal(t, valueobject.StatusUnderReview.String(), blocks[0].Decision)
}

func TestManagePolicies_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := usecase.NewManagePolicies(f.executor)

	created, err := uc.Register(ctx, dto.RegisterPolicyRequest{
		Name:            "Freeze Critical",
		RuleDescription: "risk_score >= 0.9",
		ActionType:      " freeze_funds ",
		Threshold:       decimal.RequireFromString("0.9"),
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.ActionFreezeFunds.String(), created.ActionType)
	assert.True(t, created.Active)
	assert.Regexp(t, `^POL-[0-9A-F]{8}$`, created.ID)

	got, err := uc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Freeze Critical", got.Name)

	deactivated, err := uc.Deactivate(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	active, err := uc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	stats, err := uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.PolicyStatsResponse{Total: 4, Active: 3, Inactive: 1}, stats)
}

func TestManagePolicies_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := usecase.NewManagePolicies(f.executor)

	tests := []struct {
		name string
		req  dto.RegisterPolicyRequest
	}{
		{"threshold above one", dto.RegisterPolicyRequest{Name: "x", ActionType: "ALERT_ADMIN", Threshold: decimal.RequireFromString("1.5")}},
		{"negative threshold", dto.RegisterPolicyRequest{Name: "x", ActionType: "ALERT_ADMIN", Threshold: decimal.NewFromInt(-1)}},
		{"missing action", dto.RegisterPolicyRequest{Name: "x", Threshold: decimal.RequireFromString("0.5")}},
		{"missing name", dto.RegisterPolicyRequest{ActionType: "ALERT_ADMIN", Threshold: decimal.RequireFromString("0.5")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Register(ctx, tt.req)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	_, err := uc.Deactivate(ctx, "POL-NOPE")
	assert.ErrorIs(t, err, service.ErrPolicyNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = uc.Get(ctx, "POL-NOPE")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestManageAlerts_Resolve(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	ctx := context.Background()
	uc := usecase.NewManageAlerts(f.alerts, f.publisher, discardLogger())

	open, err := uc.Open(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	alertID := open[0].ID

	resolved, err := uc.Resolve(ctx, dto.ResolveAlertRequest{
		AlertID:    alertID,
		ResolvedBy: "analyst-7",
		Resolution: "confirmed with cardholder",
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.AlertResolved.String(), resolved.Status)
	assert.Equal(t, "analyst-7", resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Contains(t, resolved.Description, " | Resolution: confirmed with cardholder")
	assert.Contains(t, f.publisher.types(), event.EventTypeAlertResolved)

	open, err = uc.Open(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = uc.Resolve(ctx, dto.ResolveAlertRequest{AlertID: alertID, ResolvedBy: "analyst-8"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = uc.Resolve(ctx, dto.ResolveAlertRequest{AlertID: uuid.New(), ResolvedBy: "analyst-7"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = uc.Resolve(ctx, dto.ResolveAlertRequest{ResolvedBy: "analyst-7"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestManageAlerts_Queries(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	ctx := context.Background()
	uc := usecase.NewManageAlerts(f.alerts, f.publisher, discardLogger())

	bySubject, err := uc.BySubject(ctx, "user-42")
	require.NoError(t, err)
	require.Len(t, bySubject, 1)
	assert.Equal(t, "TX-S3", bySubject[0].TransactionID)
	assert.Equal(t, model.AlertTypeFraudDetection, bySubject[0].AlertType)

	critical, err := uc.BySeverity(ctx, "critical")
	require.NoError(t, err)
	assert.Len(t, critical, 1)

	low, err := uc.BySeverity(ctx, "LOW")
	require.NoError(t, err)
	assert.Empty(t, low)

	_, err = uc.BySeverity(ctx, "SEVERE")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestFraudStatistics_Execute(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	ctx := context.Background()
	uc := usecase.NewFraudStatistics(f.history, f.alerts)

	stats, err := uc.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.FraudStatisticsResponse{
		TotalTransactions:      3,
		FraudulentTransactions: 1,
		FraudRate:              "33.33",
		OpenAlerts:             1,
		CriticalAlerts:         1,
	}, stats)

	txs, err := uc.TransactionsBySubject(ctx, "user-42", 0)
	require.NoError(t, err)
	assert.Len(t, txs, 3)
	assert.True(t, txs[0].Fraudulent || txs[1].Fraudulent || txs[2].Fraudulent)

	limited, err := uc.TransactionsBySubject(ctx, "user-42", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFraudRate(t *testing.T) {
	tests := []struct {
		fraudulent, total int64
		expected          string
	}{
		{0, 0, "0.00"},
		{0, 10, "0.00"},
		{1, 3, "33.33"},
		{2, 3, "66.67"},
		{1, 8, "12.50"},
		{5, 5, "100.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, usecase.FraudRate(tt.fraudulent, tt.total).StringFixed(2),
			"%d/%d", tt.fraudulent, tt.total)
	}
}
