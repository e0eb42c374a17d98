package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/fraudledger/internal/application/dto"
	"github.com/bibbank/fraudledger/internal/application/usecase"
	"github.com/bibbank/fraudledger/internal/domain/model"
)

// Compile-time assertion that FraudLedgerHandler implements FraudLedgerServiceServer.
var _ FraudLedgerServiceServer = (*FraudLedgerHandler)(nil)

// UseCases groups the application use cases served over gRPC.
type UseCases struct {
	Process    *usecase.ProcessTransaction
	Audit      *usecase.AuditLedger
	Policies   *usecase.ManagePolicies
	Alerts     *usecase.ManageAlerts
	Statistics *usecase.FraudStatistics
}

// FraudLedgerHandler implements the gRPC FraudLedgerServiceServer interface.
type FraudLedgerHandler struct {
	UnimplementedFraudLedgerServiceServer
	process    *usecase.ProcessTransaction
	audit      *usecase.AuditLedger
	policies   *usecase.ManagePolicies
	alerts     *usecase.ManageAlerts
	statistics *usecase.FraudStatistics
	logger     *slog.Logger
}

// NewFraudLedgerHandler creates a new gRPC handler.
func NewFraudLedgerHandler(uc UseCases, logger *slog.Logger) *FraudLedgerHandler {
	return &FraudLedgerHandler{
		process:    uc.Process,
		audit:      uc.Audit,
		policies:   uc.Policies,
		alerts:     uc.Alerts,
		statistics: uc.Statistics,
		logger:     logger,
	}
}

// ProcessTransaction scores, seals and acts on one transaction.
func (h *FraudLedgerHandler) ProcessTransaction(ctx context.Context, req *ProcessTransactionRequest) (*ProcessTransactionResponse, error) {
	if req == nil || req.Transaction == nil {
		return nil, status.Error(codes.InvalidArgument, "transaction is required")
	}

	in, err := toProcessRequest(req.Transaction)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := h.process.Execute(ctx, in)
	if err != nil {
		return nil, h.toStatus(ctx, "ProcessTransaction", err)
	}
	return &ProcessTransactionResponse{Result: &result}, nil
}

// ProcessBatch runs every transaction through the pipeline. Items that fail
// to parse or process are reported with status ERROR instead of failing the call.
func (h *FraudLedgerHandler) ProcessBatch(ctx context.Context, req *ProcessBatchRequest) (*ProcessBatchResponse, error) {
	if req == nil || len(req.Transactions) == 0 {
		return nil, status.Error(codes.InvalidArgument, "at least one transaction is required")
	}

	results := make([]dto.ProcessTransactionResponse, len(req.Transactions))
	valid := make([]dto.ProcessTransactionRequest, 0, len(req.Transactions))
	positions := make([]int, 0, len(req.Transactions))

	for i, msg := range req.Transactions {
		if msg == nil {
			results[i] = dto.ErrorResponse(dto.ProcessTransactionRequest{}, errors.New("transaction is required"))
			continue
		}
		in, err := toProcessRequest(msg)
		if err != nil {
			results[i] = dto.ErrorResponse(dto.ProcessTransactionRequest{
				TransactionID: msg.TransactionID,
				SubjectID:     msg.SubjectID,
			}, err)
			continue
		}
		valid = append(valid, in)
		positions = append(positions, i)
	}

	for j, r := range h.process.ExecuteBatch(ctx, valid) {
		results[positions[j]] = r
	}
	return &ProcessBatchResponse{Results: results}, nil
}

// ValidateLedger checks chain integrity.
func (h *FraudLedgerHandler) ValidateLedger(ctx context.Context, req *ValidateLedgerRequest) (*ValidateLedgerResponse, error) {
	window := 0
	if req != nil {
		window = req.Window
	}
	report, err := h.audit.Validate(ctx, window)
	if err != nil {
		return nil, h.toStatus(ctx, "ValidateLedger", err)
	}
	return &ValidateLedgerResponse{Report: &report}, nil
}

func (h *FraudLedgerHandler) GetLedgerStats(ctx context.Context, _ *GetLedgerStatsRequest) (*GetLedgerStatsResponse, error) {
	stats, err := h.audit.Stats(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, "GetLedgerStats", err)
	}
	return &GetLedgerStatsResponse{Stats: &stats}, nil
}

func (h *FraudLedgerHandler) GetTransactionHistory(ctx context.Context, req *GetTransactionHistoryRequest) (*BlocksResponse, error) {
	if req == nil || strings.TrimSpace(req.TransactionID) == "" {
		return nil, status.Error(codes.InvalidArgument, "transaction_id is required")
	}
	blocks, err := h.audit.TransactionHistory(ctx, req.TransactionID)
	if err != nil {
		return nil, h.toStatus(ctx, "GetTransactionHistory", err)
	}
	return &BlocksResponse{Blocks: blocks}, nil
}

func (h *FraudLedgerHandler) GetHighRiskBlocks(ctx context.Context, req *GetHighRiskBlocksRequest) (*BlocksResponse, error) {
	if req == nil {
		req = &GetHighRiskBlocksRequest{}
	}
	minScore, err := parseDecimal("min_risk_score", req.MinRiskScore, decimal.RequireFromString("0.8"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	blocks, err := h.audit.HighRiskBlocks(ctx, minScore, req.Limit)
	if err != nil {
		return nil, h.toStatus(ctx, "GetHighRiskBlocks", err)
	}
	return &BlocksResponse{Blocks: blocks}, nil
}

// RegisterPolicy adds an active policy.
func (h *FraudLedgerHandler) RegisterPolicy(ctx context.Context, req *RegisterPolicyRequest) (*PolicyMsgResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	threshold, err := decimal.NewFromString(strings.TrimSpace(req.Threshold))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid threshold: %v", err)
	}

	p, err := h.policies.Register(ctx, dto.RegisterPolicyRequest{
		Name:            req.Name,
		RuleDescription: req.RuleDescription,
		ActionType:      req.ActionType,
		Threshold:       threshold,
		Description:     req.Description,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "RegisterPolicy", err)
	}
	return &PolicyMsgResponse{Policy: &p}, nil
}

func (h *FraudLedgerHandler) DeactivatePolicy(ctx context.Context, req *PolicyIDRequest) (*PolicyMsgResponse, error) {
	if req == nil || strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	p, err := h.policies.Deactivate(ctx, req.ID)
	if err != nil {
		return nil, h.toStatus(ctx, "DeactivatePolicy", err)
	}
	return &PolicyMsgResponse{Policy: &p}, nil
}

func (h *FraudLedgerHandler) GetPolicy(ctx context.Context, req *PolicyIDRequest) (*PolicyMsgResponse, error) {
	if req == nil || strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	p, err := h.policies.Get(ctx, req.ID)
	if err != nil {
		return nil, h.toStatus(ctx, "GetPolicy", err)
	}
	return &PolicyMsgResponse{Policy: &p}, nil
}

func (h *FraudLedgerHandler) ListActivePolicies(ctx context.Context, _ *ListActivePoliciesRequest) (*ListPoliciesResponse, error) {
	policies, err := h.policies.ListActive(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, "ListActivePolicies", err)
	}
	return &ListPoliciesResponse{Policies: policies}, nil
}

func (h *FraudLedgerHandler) GetPolicyStats(ctx context.Context, _ *GetPolicyStatsRequest) (*GetPolicyStatsResponse, error) {
	stats, err := h.policies.Stats(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, "GetPolicyStats", err)
	}
	return &GetPolicyStatsResponse{Stats: &stats}, nil
}

// ListAlerts returns a subject's alerts, one severity band, or every open alert.
func (h *FraudLedgerHandler) ListAlerts(ctx context.Context, req *ListAlertsRequest) (*ListAlertsResponse, error) {
	if req == nil {
		req = &ListAlertsRequest{}
	}

	var (
		alerts []dto.AlertResponse
		err    error
	)
	switch {
	case strings.TrimSpace(req.SubjectID) != "":
		alerts, err = h.alerts.BySubject(ctx, req.SubjectID)
	case strings.TrimSpace(req.Severity) != "":
		alerts, err = h.alerts.BySeverity(ctx, req.Severity)
	default:
		alerts, err = h.alerts.Open(ctx)
	}
	if err != nil {
		return nil, h.toStatus(ctx, "ListAlerts", err)
	}
	return &ListAlertsResponse{Alerts: alerts}, nil
}

func (h *FraudLedgerHandler) ResolveAlert(ctx context.Context, req *ResolveAlertRequest) (*ResolveAlertResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	alertID, err := uuid.Parse(req.AlertID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid alert_id: %v", err)
	}

	alert, err := h.alerts.Resolve(ctx, dto.ResolveAlertRequest{
		AlertID:    alertID,
		ResolvedBy: req.ResolvedBy,
		Resolution: req.Resolution,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "ResolveAlert", err)
	}
	return &ResolveAlertResponse{Alert: &alert}, nil
}

func (h *FraudLedgerHandler) GetFraudStatistics(ctx context.Context, _ *GetFraudStatisticsRequest) (*GetFraudStatisticsResponse, error) {
	stats, err := h.statistics.Execute(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, "GetFraudStatistics", err)
	}
	return &GetFraudStatisticsResponse{Statistics: &stats}, nil
}

func (h *FraudLedgerHandler) ListTransactions(ctx context.Context, req *ListTransactionsRequest) (*ListTransactionsResponse, error) {
	if req == nil || strings.TrimSpace(req.SubjectID) == "" {
		return nil, status.Error(codes.InvalidArgument, "subject_id is required")
	}
	txs, err := h.statistics.TransactionsBySubject(ctx, req.SubjectID, req.Limit)
	if err != nil {
		return nil, h.toStatus(ctx, "ListTransactions", err)
	}
	return &ListTransactionsResponse{Transactions: txs}, nil
}

// toStatus maps domain errors to gRPC codes. Unexpected errors are logged and
// reported as Internal without their detail.
func (h *FraudLedgerHandler) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, model.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	h.logger.ErrorContext(ctx, "request failed",
		slog.String("method", method),
		slog.String("error", err.Error()),
	)
	return status.Error(codes.Internal, "internal error")
}

func toProcessRequest(msg *TransactionMsg) (dto.ProcessTransactionRequest, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(msg.Amount))
	if err != nil {
		return dto.ProcessTransactionRequest{}, fmt.Errorf("invalid amount %q", msg.Amount)
	}

	var ts time.Time
	if msg.Timestamp != "" {
		ts, err = time.Parse(time.RFC3339Nano, msg.Timestamp)
		if err != nil {
			return dto.ProcessTransactionRequest{}, fmt.Errorf("invalid timestamp %q: want RFC 3339", msg.Timestamp)
		}
	}

	return dto.ProcessTransactionRequest{
		TransactionID: msg.TransactionID,
		SubjectID:     msg.SubjectID,
		Amount:        amount,
		CategoryCode:  msg.CategoryCode,
		CategoryRisk:  msg.CategoryRisk,
		MerchantName:  msg.MerchantName,
		Location:      msg.Location,
		PaymentMethod: msg.PaymentMethod,
		Timestamp:     ts,
		Description:   msg.Description,
	}, nil
}

func parseDecimal(field, value string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, value)
	}
	return d, nil
}
