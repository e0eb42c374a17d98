package grpc

import "github.com/bibbank/fraudledger/internal/application/dto"

// Wire messages of fraudledger.v1.FraudLedgerService. Decimal fields travel
// as strings and timestamps as RFC 3339.

// TransactionMsg is one transaction submitted for scoring.
type TransactionMsg struct {
	TransactionID string `json:"transaction_id"`
	SubjectID     string `json:"subject_id"`
	Amount        string `json:"amount"`
	CategoryCode  string `json:"category_code"`
	CategoryRisk  string `json:"category_risk,omitempty"`
	MerchantName  string `json:"merchant_name"`
	Location      string `json:"location"`
	PaymentMethod string `json:"payment_method"`
	Timestamp     string `json:"timestamp,omitempty"`
	Description   string `json:"description,omitempty"`
}

type ProcessTransactionRequest struct {
	Transaction *TransactionMsg `json:"transaction"`
}

type ProcessTransactionResponse struct {
	Result *dto.ProcessTransactionResponse `json:"result"`
}

type ProcessBatchRequest struct {
	Transactions []*TransactionMsg `json:"transactions"`
}

type ProcessBatchResponse struct {
	Results []dto.ProcessTransactionResponse `json:"results"`
}

// ValidateLedgerRequest checks the newest Window blocks. A non-positive
// window uses the configured default.
type ValidateLedgerRequest struct {
	Window int `json:"window"`
}

type ValidateLedgerResponse struct {
	Report *dto.ValidationResponse `json:"report"`
}

type GetLedgerStatsRequest struct{}

type GetLedgerStatsResponse struct {
	Stats *dto.LedgerStatsResponse `json:"stats"`
}

type GetTransactionHistoryRequest struct {
	TransactionID string `json:"transaction_id"`
}

type GetHighRiskBlocksRequest struct {
	MinRiskScore string `json:"min_risk_score"`
	Limit        int    `json:"limit"`
}

type BlocksResponse struct {
	Blocks []dto.BlockResponse `json:"blocks"`
}

type RegisterPolicyRequest struct {
	Name            string `json:"name"`
	RuleDescription string `json:"rule_description"`
	ActionType      string `json:"action_type"`
	Threshold       string `json:"threshold"`
	Description     string `json:"description"`
}

type PolicyIDRequest struct {
	ID string `json:"id"`
}

type PolicyMsgResponse struct {
	Policy *dto.PolicyResponse `json:"policy"`
}

type ListActivePoliciesRequest struct{}

type ListPoliciesResponse struct {
	Policies []dto.PolicyResponse `json:"policies"`
}

type GetPolicyStatsRequest struct{}

type GetPolicyStatsResponse struct {
	Stats *dto.PolicyStatsResponse `json:"stats"`
}

// ListAlertsRequest filters by subject, then by severity. With neither set
// the open alerts are returned.
type ListAlertsRequest struct {
	SubjectID string `json:"subject_id,omitempty"`
	Severity  string `json:"severity,omitempty"`
}

type ListAlertsResponse struct {
	Alerts []dto.AlertResponse `json:"alerts"`
}

type ResolveAlertRequest struct {
	AlertID    string `json:"alert_id"`
	ResolvedBy string `json:"resolved_by"`
	Resolution string `json:"resolution"`
}

type ResolveAlertResponse struct {
	Alert *dto.AlertResponse `json:"alert"`
}

type GetFraudStatisticsRequest struct{}

type GetFraudStatisticsResponse struct {
	Statistics *dto.FraudStatisticsResponse `json:"statistics"`
}

type ListTransactionsRequest struct {
	SubjectID string `json:"subject_id"`
	Limit     int    `json:"limit"`
}

type ListTransactionsResponse struct {
	Transactions []dto.TransactionResponse `json:"transactions"`
}
