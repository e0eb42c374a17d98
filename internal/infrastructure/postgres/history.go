package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
	pgutil "github.com/bibbank/fraudledger/pkg/postgres"
)

const transactionColumns = `id, subject_id, amount, category_code, category_risk, merchant_name,
	location, payment_method, occurred_at, personal_average, description,
	is_fraudulent, risk_score, status`

// TransactionHistory implements port.TransactionHistory using PostgreSQL.
type TransactionHistory struct {
	pool *pgxpool.Pool
}

// NewTransactionHistory creates a new PostgreSQL-backed transaction history.
func NewTransactionHistory(pool *pgxpool.Pool) *TransactionHistory {
	return &TransactionHistory{pool: pool}
}

func (h *TransactionHistory) Exists(ctx context.Context, transactionID string) (bool, error) {
	var exists bool
	err := h.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, transactionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction %s: %w", transactionID, err)
	}
	return exists, nil
}

// Reserve inserts a claim row unless the id is already claimed or recorded.
// Claims stay after Record, so the primary key alone settles races.
func (h *TransactionHistory) Reserve(ctx context.Context, transactionID string) (bool, error) {
	tag, err := h.pool.Exec(ctx, `
		INSERT INTO transaction_claims (id)
		SELECT $1 WHERE NOT EXISTS (SELECT 1 FROM transactions WHERE id = $1)
		ON CONFLICT (id) DO NOTHING`,
		transactionID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim transaction %s: %w", transactionID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (h *TransactionHistory) Release(ctx context.Context, transactionID string) error {
	_, err := h.pool.Exec(ctx, `
		DELETE FROM transaction_claims
		WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`,
		transactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to release transaction %s: %w", transactionID, err)
	}
	return nil
}

func (h *TransactionHistory) AverageAmount(ctx context.Context, subjectID string) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := h.pool.QueryRow(ctx,
		`SELECT COALESCE(ROUND(AVG(amount), 2), 0) FROM transactions WHERE subject_id = $1`,
		subjectID,
	).Scan(&avg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to average amounts of %s: %w", subjectID, err)
	}
	return avg, nil
}

func (h *TransactionHistory) CountInWindow(ctx context.Context, subjectID string, from, to time.Time) (int64, error) {
	return h.count(ctx,
		`SELECT COUNT(*) FROM transactions WHERE subject_id = $1 AND occurred_at BETWEEN $2 AND $3`,
		subjectID, from, to,
	)
}

func (h *TransactionHistory) CountAtMerchant(ctx context.Context, subjectID, merchantName string, from, to time.Time) (int64, error) {
	return h.count(ctx,
		`SELECT COUNT(*) FROM transactions
		WHERE subject_id = $1 AND merchant_name = $2 AND occurred_at BETWEEN $3 AND $4`,
		subjectID, merchantName, from, to,
	)
}

// Record inserts a scored transaction. A duplicate id fails with
// model.ErrConflict.
func (h *TransactionHistory) Record(ctx context.Context, tx *model.Transaction) error {
	_, err := h.pool.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		tx.ID(),
		tx.SubjectID(),
		tx.Amount(),
		tx.CategoryCode(),
		tx.CategoryRisk().String(),
		tx.MerchantName(),
		tx.Location(),
		tx.PaymentMethod().String(),
		tx.Timestamp(),
		tx.PersonalAverage(),
		tx.Description(),
		tx.IsFraudulent(),
		tx.RiskScore(),
		tx.Status().String(),
	)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return fmt.Errorf("%w: transaction %s already recorded", model.ErrConflict, tx.ID())
		}
		return fmt.Errorf("failed to record transaction %s: %w", tx.ID(), err)
	}
	return nil
}

func (h *TransactionHistory) FindBySubject(ctx context.Context, subjectID string, limit int) ([]*model.Transaction, error) {
	rows, err := h.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE subject_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`,
		subjectID, nullableLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions of %s: %w", subjectID, err)
	}
	defer rows.Close()

	var txs []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

func (h *TransactionHistory) Stats(ctx context.Context) (port.TransactionStats, error) {
	var stats port.TransactionStats
	err := h.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_fraudulent) FROM transactions`,
	).Scan(&stats.Total, &stats.Fraudulent)
	if err != nil {
		return port.TransactionStats{}, fmt.Errorf("failed to load transaction stats: %w", err)
	}
	return stats, nil
}

func (h *TransactionHistory) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := h.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		p                                      model.TransactionParams
		categoryRisk, paymentMethod, statusStr string
		fraudulent                             bool
		riskScore                              decimal.Decimal
	)

	err := row.Scan(
		&p.ID, &p.SubjectID, &p.Amount, &p.CategoryCode, &categoryRisk, &p.MerchantName,
		&p.Location, &paymentMethod, &p.Timestamp, &p.PersonalAverage, &p.Description,
		&fraudulent, &riskScore, &statusStr,
	)
	if err != nil {
		return nil, err
	}

	if categoryRisk != "" {
		level, err := valueobject.RiskLevelFromString(categoryRisk)
		if err != nil {
			return nil, fmt.Errorf("failed to parse category risk: %w", err)
		}
		p.CategoryRisk = level
	}
	status, err := valueobject.ProcessingStatusFromString(statusStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	p.PaymentMethod = valueobject.PaymentMethodOrDefault(paymentMethod)
	p.Timestamp = p.Timestamp.UTC()

	return model.ReconstructTransaction(p, fraudulent, riskScore, status), nil
}

var _ port.TransactionHistory = (*TransactionHistory)(nil)
