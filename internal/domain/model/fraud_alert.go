package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/event"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
	"github.com/bibbank/fraudledger/pkg/events"
)

// AlertTypeFraudDetection is the alert type raised by transaction scoring.
const AlertTypeFraudDetection = "FRAUD_DETECTION"

// FraudAlert is raised for every transaction scoring flags as fraudulent
// and tracks its investigation.
type FraudAlert struct {
	events.EventCollector

	alertTime      time.Time
	resolvedAt     *time.Time
	confidence     decimal.Decimal
	amount         decimal.Decimal
	severity       valueobject.AlertSeverity
	status         valueobject.AlertStatus
	id             uuid.UUID
	subjectID      string
	transactionID  string
	alertType      string
	description    string
	resolvedBy     string
	triggeredRules []string
}

// NewFraudAlert raises an OPEN alert for a flagged transaction and records
// a FraudDetected event.
func NewFraudAlert(tx *Transaction, d Decision) (*FraudAlert, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction is required", ErrValidation)
	}
	if !d.Fraudulent {
		return nil, fmt.Errorf("%w: alerts are only raised for fraudulent decisions", ErrValidation)
	}

	rules := make([]string, len(d.TriggeredRules))
	copy(rules, d.TriggeredRules)

	a := &FraudAlert{
		id:             uuid.New(),
		subjectID:      tx.SubjectID(),
		transactionID:  tx.ID(),
		alertType:      AlertTypeFraudDetection,
		description:    fmt.Sprintf("Transaction %s flagged by fraud detection system. Rules: %s", tx.ID(), d.Reasons()),
		triggeredRules: rules,
		severity:       valueobject.SeverityFromConfidence(d.Confidence),
		confidence:     d.Confidence,
		amount:         tx.Amount(),
		alertTime:      time.Now().UTC(),
		status:         valueobject.AlertOpen,
	}

	a.Record(event.NewFraudDetected(
		a.id.String(), a.transactionID, a.subjectID,
		a.amount, a.confidence, a.severity.String(), a.triggeredRules,
	))

	return a, nil
}

// Resolve closes the alert. A non-blank resolution is appended to the
// description.
func (a *FraudAlert) Resolve(resolvedBy, resolution string, at time.Time) error {
	if strings.TrimSpace(resolvedBy) == "" {
		return fmt.Errorf("%w: resolver is required", ErrValidation)
	}
	if a.status.IsClosed() {
		return fmt.Errorf("%w: alert %s is already %s", ErrValidation, a.id, a.status)
	}

	t := at.UTC()
	a.status = valueobject.AlertResolved
	a.resolvedAt = &t
	a.resolvedBy = resolvedBy
	if strings.TrimSpace(resolution) != "" {
		a.description = a.description + " | Resolution: " + resolution
	}

	a.Record(event.NewAlertResolved(a.id.String(), a.transactionID, resolvedBy, t))
	return nil
}

// ReconstructFraudAlert rebuilds an alert from persisted data (no validation, no events).
func ReconstructFraudAlert(
	id uuid.UUID,
	subjectID, transactionID, alertType, description string,
	triggeredRules []string,
	severity valueobject.AlertSeverity,
	confidence, amount decimal.Decimal,
	alertTime time.Time,
	status valueobject.AlertStatus,
	resolvedAt *time.Time,
	resolvedBy string,
) *FraudAlert {
	return &FraudAlert{
		id:             id,
		subjectID:      subjectID,
		transactionID:  transactionID,
		alertType:      alertType,
		description:    description,
		triggeredRules: triggeredRules,
		severity:       severity,
		confidence:     confidence,
		amount:         amount,
		alertTime:      alertTime,
		status:         status,
		resolvedAt:     resolvedAt,
		resolvedBy:     resolvedBy,
	}
}

// --- Accessors ---

func (a *FraudAlert) ID() uuid.UUID                       { return a.id }
func (a *FraudAlert) SubjectID() string                   { return a.subjectID }
func (a *FraudAlert) TransactionID() string               { return a.transactionID }
func (a *FraudAlert) AlertType() string                   { return a.alertType }
func (a *FraudAlert) Description() string                 { return a.description }
func (a *FraudAlert) TriggeredRules() []string            { return a.triggeredRules }
func (a *FraudAlert) Severity() valueobject.AlertSeverity { return a.severity }
func (a *FraudAlert) Confidence() decimal.Decimal         { return a.confidence }
func (a *FraudAlert) Amount() decimal.Decimal             { return a.amount }
func (a *FraudAlert) AlertTime() time.Time                { return a.alertTime }
func (a *FraudAlert) Status() valueobject.AlertStatus     { return a.status }
func (a *FraudAlert) ResolvedAt() *time.Time              { return a.resolvedAt }
func (a *FraudAlert) ResolvedBy() string                  { return a.resolvedBy }
