package event

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/pkg/events"
)

const (
	// EventTypeFraudDetected is emitted when scoring flags a transaction.
	EventTypeFraudDetected = "fraud.detected"

	// EventTypeBlockSealed is emitted when a decision is sealed into the ledger.
	EventTypeBlockSealed = "ledger.block.sealed"

	// EventTypePolicyExecuted is emitted once per policy dispatch.
	EventTypePolicyExecuted = "policy.executed"

	// EventTypeAlertResolved is emitted when an investigator closes an alert.
	EventTypeAlertResolved = "fraud.alert.resolved"
)

// FraudDetected is published when a transaction is flagged as fraudulent.
type FraudDetected struct {
	events.BaseEvent
	AlertID        string          `json:"alert_id"`
	TransactionID  string          `json:"transaction_id"`
	SubjectID      string          `json:"subject_id"`
	Amount         decimal.Decimal `json:"amount"`
	Confidence     decimal.Decimal `json:"confidence"`
	Severity       string          `json:"severity"`
	TriggeredRules []string        `json:"triggered_rules"`
}

// NewFraudDetected builds a FraudDetected event keyed by transaction.
func NewFraudDetected(
	alertID, transactionID, subjectID string,
	amount, confidence decimal.Decimal,
	severity string,
	triggeredRules []string,
) FraudDetected {
	return FraudDetected{
		BaseEvent:      events.NewBaseEvent(EventTypeFraudDetected, transactionID, "Transaction"),
		AlertID:        alertID,
		TransactionID:  transactionID,
		SubjectID:      subjectID,
		Amount:         amount,
		Confidence:     confidence,
		Severity:       severity,
		TriggeredRules: triggeredRules,
	}
}

// BlockSealed is published after a block has been mined and persisted.
type BlockSealed struct {
	events.BaseEvent
	Index         int64           `json:"index"`
	Hash          string          `json:"hash"`
	PreviousHash  string          `json:"previous_hash"`
	Nonce         int64           `json:"nonce"`
	TransactionID string          `json:"transaction_id"`
	Decision      string          `json:"decision"`
	RiskScore     decimal.Decimal `json:"risk_score"`
	SealedAt      time.Time       `json:"sealed_at"`
}

// NewBlockSealed builds a BlockSealed event keyed by block index.
func NewBlockSealed(
	index int64,
	hash, previousHash string,
	nonce int64,
	transactionID, decision string,
	riskScore decimal.Decimal,
	sealedAt time.Time,
) BlockSealed {
	return BlockSealed{
		BaseEvent:     events.NewBaseEvent(EventTypeBlockSealed, strconv.FormatInt(index, 10), "Block"),
		Index:         index,
		Hash:          hash,
		PreviousHash:  previousHash,
		Nonce:         nonce,
		TransactionID: transactionID,
		Decision:      decision,
		RiskScore:     riskScore,
		SealedAt:      sealedAt,
	}
}

// PolicyExecuted is published when a policy fires for a transaction.
type PolicyExecuted struct {
	events.BaseEvent
	PolicyID       string          `json:"policy_id"`
	PolicyName     string          `json:"policy_name"`
	ActionType     string          `json:"action_type"`
	Description    string          `json:"description"`
	TransactionID  string          `json:"transaction_id"`
	SubjectID      string          `json:"subject_id"`
	RiskScore      decimal.Decimal `json:"risk_score"`
	ExecutionCount int64           `json:"execution_count"`
}

// NewPolicyExecuted builds a PolicyExecuted event keyed by policy.
func NewPolicyExecuted(
	policyID, policyName, actionType, description, transactionID, subjectID string,
	riskScore decimal.Decimal,
	executionCount int64,
) PolicyExecuted {
	return PolicyExecuted{
		BaseEvent:      events.NewBaseEvent(EventTypePolicyExecuted, policyID, "Policy"),
		PolicyID:       policyID,
		PolicyName:     policyName,
		ActionType:     actionType,
		Description:    description,
		TransactionID:  transactionID,
		SubjectID:      subjectID,
		RiskScore:      riskScore,
		ExecutionCount: executionCount,
	}
}

// AlertResolved is published when a fraud alert is closed.
type AlertResolved struct {
	events.BaseEvent
	AlertID       string    `json:"alert_id"`
	TransactionID string    `json:"transaction_id"`
	ResolvedBy    string    `json:"resolved_by"`
	ResolvedAt    time.Time `json:"resolved_at"`
}

// NewAlertResolved builds an AlertResolved event keyed by alert.
func NewAlertResolved(alertID, transactionID, resolvedBy string, resolvedAt time.Time) AlertResolved {
	return AlertResolved{
		BaseEvent:     events.NewBaseEvent(EventTypeAlertResolved, alertID, "FraudAlert"),
		AlertID:       alertID,
		TransactionID: transactionID,
		ResolvedBy:    resolvedBy,
		ResolvedAt:    resolvedAt,
	}
}
