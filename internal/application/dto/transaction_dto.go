package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
)

// StatusError is the status reported for batch items that failed to process.
const StatusError = "ERROR"

// ProcessTransactionRequest is the input DTO for the ProcessTransaction use case.
type ProcessTransactionRequest struct {
	Timestamp     time.Time       `json:"timestamp"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	SubjectID     string          `json:"subject_id"`
	CategoryCode  string          `json:"category_code"`
	CategoryRisk  string          `json:"category_risk,omitempty"`
	MerchantName  string          `json:"merchant_name"`
	Location      string          `json:"location"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description,omitempty"`
}

// ActionResponse describes one policy action taken for a transaction.
type ActionResponse struct {
	ExecutedAt  time.Time `json:"executed_at"`
	PolicyID    string    `json:"policy_id"`
	PolicyName  string    `json:"policy_name"`
	ActionType  string    `json:"action_type"`
	Description string    `json:"description"`
}

// ProcessTransactionResponse is the output DTO of one pipeline pass.
type ProcessTransactionResponse struct {
	ProcessedAt    time.Time        `json:"processed_at"`
	TriggeredRules []string         `json:"triggered_rules"`
	Actions        []ActionResponse `json:"actions"`
	TransactionID  string           `json:"transaction_id"`
	SubjectID      string           `json:"subject_id"`
	Status         string           `json:"status"`
	Confidence     string           `json:"confidence"`
	AlertID        string           `json:"alert_id,omitempty"`
	AlertSeverity  string           `json:"alert_severity,omitempty"`
	BlockHash      string           `json:"block_hash,omitempty"`
	AuditError     string           `json:"audit_error,omitempty"`
	BlockIndex     int64            `json:"block_index"`
	Fraudulent     bool             `json:"fraudulent"`
	Sealed         bool             `json:"sealed"`
}

// NewProcessTransactionResponse maps a scored transaction to the response DTO.
func NewProcessTransactionResponse(tx *model.Transaction, d model.Decision) ProcessTransactionResponse {
	rules := make([]string, len(d.TriggeredRules))
	copy(rules, d.TriggeredRules)

	return ProcessTransactionResponse{
		TransactionID:  tx.ID(),
		SubjectID:      tx.SubjectID(),
		Status:         tx.Status().String(),
		Fraudulent:     d.Fraudulent,
		Confidence:     d.Confidence.StringFixed(2),
		TriggeredRules: rules,
		Actions:        []ActionResponse{},
		BlockIndex:     -1,
		ProcessedAt:    time.Now().UTC(),
	}
}

// ErrorResponse reports a batch item that could not be processed.
func ErrorResponse(req ProcessTransactionRequest, err error) ProcessTransactionResponse {
	return ProcessTransactionResponse{
		TransactionID:  req.TransactionID,
		SubjectID:      req.SubjectID,
		Status:         StatusError,
		Fraudulent:     false,
		Confidence:     decimal.Zero.StringFixed(2),
		TriggeredRules: []string{"Processing Error: " + err.Error()},
		Actions:        []ActionResponse{},
		BlockIndex:     -1,
		ProcessedAt:    time.Now().UTC(),
	}
}

// TransactionResponse is the history view of a recorded transaction.
type TransactionResponse struct {
	Timestamp     time.Time `json:"timestamp"`
	TransactionID string    `json:"transaction_id"`
	SubjectID     string    `json:"subject_id"`
	Amount        string    `json:"amount"`
	CategoryCode  string    `json:"category_code"`
	CategoryRisk  string    `json:"category_risk,omitempty"`
	MerchantName  string    `json:"merchant_name"`
	Location      string    `json:"location"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	RiskScore     string    `json:"risk_score"`
	Fraudulent    bool      `json:"fraudulent"`
}

// FromTransaction maps a domain transaction to the history DTO.
func FromTransaction(tx *model.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: tx.ID(),
		SubjectID:     tx.SubjectID(),
		Amount:        tx.Amount().String(),
		CategoryCode:  tx.CategoryCode(),
		CategoryRisk:  tx.CategoryRisk().String(),
		MerchantName:  tx.MerchantName(),
		Location:      tx.Location(),
		PaymentMethod: tx.PaymentMethod().String(),
		Timestamp:     tx.Timestamp(),
		Status:        tx.Status().String(),
		RiskScore:     tx.RiskScore().StringFixed(2),
		Fraudulent:    tx.IsFraudulent(),
	}
}

// FraudStatisticsResponse summarizes detection activity.
type FraudStatisticsResponse struct {
	FraudRate              string `json:"fraud_rate"`
	TotalTransactions      int64  `json:"total_transactions"`
	FraudulentTransactions int64  `json:"fraudulent_transactions"`
	OpenAlerts             int64  `json:"open_alerts"`
	CriticalAlerts         int64  `json:"critical_alerts"`
}
