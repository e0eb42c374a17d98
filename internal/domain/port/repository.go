package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
	"github.com/bibbank/fraudledger/pkg/events"
)

// BlockStore is the key-ordered persistence port of the audit ledger.
// Implementations must reject a block whose index is already taken.
type BlockStore interface {
	// GetTip returns the block with the highest index, or nil when empty.
	GetTip(ctx context.Context) (*model.Block, error)

	// Append persists a sealed block. The block's index must be tip+1.
	Append(ctx context.Context, block *model.Block) error

	// FindByTransactionID returns every block sealing the given transaction.
	FindByTransactionID(ctx context.Context, transactionID string) ([]*model.Block, error)

	// FindAboveRiskScore returns blocks with risk score >= minScore, newest first.
	FindAboveRiskScore(ctx context.Context, minScore decimal.Decimal, limit int) ([]*model.Block, error)

	// CountInvalid counts blocks flagged invalid by validation.
	CountInvalid(ctx context.Context) (int64, error)

	// CountByDecision counts blocks carrying the given decision label.
	CountByDecision(ctx context.Context, decision string) (int64, error)

	// Count returns the total number of blocks including genesis.
	Count(ctx context.Context) (int64, error)

	// RecentWindow returns the newest n blocks ordered by index descending.
	RecentWindow(ctx context.Context, n int) ([]*model.Block, error)

	// MarkInvalid flips the validity flag of the block at index.
	MarkInvalid(ctx context.Context, index int64) error
}

// PolicyStore persists remediation policies.
type PolicyStore interface {
	// FindActive returns all active policies in store order.
	FindActive(ctx context.Context) ([]*model.Policy, error)

	// FindApplicable returns active policies with threshold <= score, in store order.
	FindApplicable(ctx context.Context, score decimal.Decimal) ([]*model.Policy, error)

	// FindByID returns the policy or an error wrapping model.ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Policy, error)

	// FindAll returns every policy, active or not.
	FindAll(ctx context.Context) ([]*model.Policy, error)

	// Save inserts or updates a policy.
	Save(ctx context.Context, policy *model.Policy) error
}

// TransactionStats aggregates the scored transaction history.
type TransactionStats struct {
	Total      int64
	Fraudulent int64
}

// TransactionHistory is the read/record collaborator that supplies the
// per-subject context scoring needs.
type TransactionHistory interface {
	// Exists reports whether a transaction id has already been recorded.
	Exists(ctx context.Context, transactionID string) (bool, error)

	// Reserve claims a transaction id ahead of scoring. It returns false when
	// the id is already recorded or claimed by a concurrent request.
	Reserve(ctx context.Context, transactionID string) (bool, error)

	// Release drops a claim whose transaction was never recorded.
	Release(ctx context.Context, transactionID string) error

	// AverageAmount returns the subject's mean recorded amount, zero if none.
	AverageAmount(ctx context.Context, subjectID string) (decimal.Decimal, error)

	// CountInWindow counts the subject's transactions with timestamps in [from, to].
	CountInWindow(ctx context.Context, subjectID string, from, to time.Time) (int64, error)

	// CountAtMerchant counts the subject's transactions at one merchant in [from, to].
	CountAtMerchant(ctx context.Context, subjectID, merchantName string, from, to time.Time) (int64, error)

	// Record stores a scored transaction.
	Record(ctx context.Context, tx *model.Transaction) error

	// FindBySubject returns the subject's transactions, newest first.
	FindBySubject(ctx context.Context, subjectID string, limit int) ([]*model.Transaction, error)

	// Stats returns totals across all recorded transactions.
	Stats(ctx context.Context) (TransactionStats, error)
}

// CategoryDirectory resolves merchant category codes to risk levels.
type CategoryDirectory interface {
	// Resolve returns the level and true, or the zero level and false when
	// the code is unknown.
	Resolve(ctx context.Context, categoryCode string) (valueobject.RiskLevel, bool, error)
}

// AlertStore persists fraud alerts.
type AlertStore interface {
	Save(ctx context.Context, alert *model.FraudAlert) error

	// FindByID returns the alert or an error wrapping model.ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*model.FraudAlert, error)

	// FindBySubject returns the subject's alerts, newest first.
	FindBySubject(ctx context.Context, subjectID string) ([]*model.FraudAlert, error)

	// FindOpen returns every alert still in the OPEN state, newest first.
	FindOpen(ctx context.Context) ([]*model.FraudAlert, error)

	// FindBySeverity returns alerts with the given severity, newest first.
	FindBySeverity(ctx context.Context, severity valueobject.AlertSeverity) ([]*model.FraudAlert, error)
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	// Publish sends one or more domain events to the messaging infrastructure.
	Publish(ctx context.Context, events ...events.DomainEvent) error
}

// ModelClient scores a feature vector with an external fraud model.
type ModelClient interface {
	// Predict returns a fraud probability in [0, 1].
	Predict(ctx context.Context, features map[string]interface{}) (float64, error)
}
