package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// Transaction is a payment submitted for fraud scoring. It is created per
// request, mutated once by scoring, and read-only afterwards.
type Transaction struct {
	timestamp       time.Time
	amount          decimal.Decimal
	personalAverage decimal.Decimal
	riskScore       decimal.Decimal
	categoryRisk    valueobject.RiskLevel
	paymentMethod   valueobject.PaymentMethod
	status          valueobject.ProcessingStatus
	id              string
	subjectID       string
	categoryCode    string
	merchantName    string
	location        string
	description     string
	fraudulent      bool
}

// TransactionParams carries the caller-supplied fields of a new Transaction.
type TransactionParams struct {
	Timestamp       time.Time
	Amount          decimal.Decimal
	PersonalAverage decimal.Decimal
	CategoryRisk    valueobject.RiskLevel
	PaymentMethod   valueobject.PaymentMethod
	ID              string
	SubjectID       string
	CategoryCode    string
	MerchantName    string
	Location        string
	Description     string
}

// NewTransaction validates p and returns a PENDING transaction.
func NewTransaction(p TransactionParams) (*Transaction, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("%w: transaction ID is required", ErrValidation)
	}
	if strings.TrimSpace(p.SubjectID) == "" {
		return nil, fmt.Errorf("%w: subject ID is required", ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if strings.TrimSpace(p.CategoryCode) == "" {
		return nil, fmt.Errorf("%w: merchant category code is required", ErrValidation)
	}
	if p.PersonalAverage.IsNegative() {
		return nil, fmt.Errorf("%w: personal average cannot be negative", ErrValidation)
	}

	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	pm := p.PaymentMethod
	if pm.IsZero() {
		pm = valueobject.PaymentCreditCard
	}

	return &Transaction{
		id:              p.ID,
		subjectID:       p.SubjectID,
		amount:          p.Amount,
		categoryCode:    p.CategoryCode,
		categoryRisk:    p.CategoryRisk,
		merchantName:    p.MerchantName,
		location:        p.Location,
		paymentMethod:   pm,
		timestamp:       ts.UTC(),
		personalAverage: p.PersonalAverage,
		description:     p.Description,
		riskScore:       decimal.Zero,
		status:          valueobject.StatusPending,
	}, nil
}

// ApplyDecision records the scoring outcome on the transaction.
func (t *Transaction) ApplyDecision(d Decision) {
	t.fraudulent = d.Fraudulent
	t.riskScore = d.Confidence
	t.status = valueobject.StatusFromOutcome(d.Fraudulent)
}

// ReconstructTransaction rebuilds a Transaction from persisted data (no validation).
func ReconstructTransaction(
	p TransactionParams,
	fraudulent bool,
	riskScore decimal.Decimal,
	status valueobject.ProcessingStatus,
) *Transaction {
	return &Transaction{
		id:              p.ID,
		subjectID:       p.SubjectID,
		amount:          p.Amount,
		categoryCode:    p.CategoryCode,
		categoryRisk:    p.CategoryRisk,
		merchantName:    p.MerchantName,
		location:        p.Location,
		paymentMethod:   p.PaymentMethod,
		timestamp:       p.Timestamp,
		personalAverage: p.PersonalAverage,
		description:     p.Description,
		fraudulent:      fraudulent,
		riskScore:       riskScore,
		status:          status,
	}
}

// --- Accessors ---

func (t *Transaction) ID() string                               { return t.id }
func (t *Transaction) SubjectID() string                        { return t.subjectID }
func (t *Transaction) Amount() decimal.Decimal                  { return t.amount }
func (t *Transaction) CategoryCode() string                     { return t.categoryCode }
func (t *Transaction) CategoryRisk() valueobject.RiskLevel      { return t.categoryRisk }
func (t *Transaction) MerchantName() string                     { return t.merchantName }
func (t *Transaction) Location() string                         { return t.location }
func (t *Transaction) PaymentMethod() valueobject.PaymentMethod { return t.paymentMethod }
func (t *Transaction) Timestamp() time.Time                     { return t.timestamp }
func (t *Transaction) PersonalAverage() decimal.Decimal         { return t.personalAverage }
func (t *Transaction) Description() string                      { return t.description }
func (t *Transaction) IsFraudulent() bool                       { return t.fraudulent }
func (t *Transaction) RiskScore() decimal.Decimal               { return t.riskScore }
func (t *Transaction) Status() valueobject.ProcessingStatus     { return t.status }

// Snapshot is the serializable view of a transaction sealed into the ledger.
type Snapshot struct {
	Timestamp       time.Time       `json:"timestamp"`
	Amount          decimal.Decimal `json:"amount"`
	PersonalAverage decimal.Decimal `json:"personal_average"`
	RiskScore       decimal.Decimal `json:"risk_score"`
	TransactionID   string          `json:"transaction_id"`
	SubjectID       string          `json:"subject_id"`
	CategoryCode    string          `json:"category_code"`
	CategoryRisk    string          `json:"category_risk,omitempty"`
	MerchantName    string          `json:"merchant_name"`
	Location        string          `json:"location"`
	PaymentMethod   string          `json:"payment_method"`
	Status          string          `json:"status"`
	Fraudulent      bool            `json:"fraudulent"`
}

// Snapshot returns the ledger payload view of t.
func (t *Transaction) Snapshot() Snapshot {
	return Snapshot{
		TransactionID:   t.id,
		SubjectID:       t.subjectID,
		Amount:          t.amount,
		CategoryCode:    t.categoryCode,
		CategoryRisk:    t.categoryRisk.String(),
		MerchantName:    t.merchantName,
		Location:        t.location,
		PaymentMethod:   t.paymentMethod.String(),
		Timestamp:       t.timestamp,
		PersonalAverage: t.personalAverage,
		RiskScore:       t.riskScore,
		Status:          t.status.String(),
		Fraudulent:      t.fraudulent,
	}
}
