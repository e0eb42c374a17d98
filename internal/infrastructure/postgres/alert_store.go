package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

const alertColumns = `id, subject_id, transaction_id, alert_type, description, triggered_rules,
	severity, confidence, amount, alert_time, status, resolved_at, resolved_by`

// AlertStore implements port.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new PostgreSQL-backed alert store.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Save upserts an alert; only the investigation fields change on update.
func (s *AlertStore) Save(ctx context.Context, alert *model.FraudAlert) error {
	query := `
		INSERT INTO fraud_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			resolved_at = EXCLUDED.resolved_at,
			resolved_by = EXCLUDED.resolved_by
	`

	rules := alert.TriggeredRules()
	if rules == nil {
		rules = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		alert.ID(),
		alert.SubjectID(),
		alert.TransactionID(),
		alert.AlertType(),
		alert.Description(),
		rules,
		alert.Severity().String(),
		alert.Confidence(),
		alert.Amount(),
		alert.AlertTime(),
		alert.Status().String(),
		alert.ResolvedAt(),
		alert.ResolvedBy(),
	)
	if err != nil {
		return fmt.Errorf("failed to save alert %s: %w", alert.ID(), err)
	}
	return nil
}

func (s *AlertStore) FindByID(ctx context.Context, id uuid.UUID) (*model.FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE id = $1`

	alert, err := scanAlert(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("alert %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load alert %s: %w", id, err)
	}
	return alert, nil
}

func (s *AlertStore) FindBySubject(ctx context.Context, subjectID string) ([]*model.FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE subject_id = $1 ORDER BY alert_time DESC`
	return s.queryAlerts(ctx, query, subjectID)
}

func (s *AlertStore) FindOpen(ctx context.Context) ([]*model.FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE status = $1 ORDER BY alert_time DESC`
	return s.queryAlerts(ctx, query, valueobject.AlertOpen.String())
}

func (s *AlertStore) FindBySeverity(ctx context.Context, severity valueobject.AlertSeverity) ([]*model.FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE severity = $1 ORDER BY alert_time DESC`
	return s.queryAlerts(ctx, query, severity.String())
}

func (s *AlertStore) queryAlerts(ctx context.Context, query string, args ...any) ([]*model.FraudAlert, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*model.FraudAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (*model.FraudAlert, error) {
	var (
		id                                               uuid.UUID
		subjectID, transactionID, alertType, description string
		rules                                            []string
		severityStr, statusStr, resolvedBy               string
		confidence, amount                               decimal.Decimal
		alertTime                                        time.Time
		resolvedAt                                       *time.Time
	)

	err := row.Scan(
		&id, &subjectID, &transactionID, &alertType, &description, &rules,
		&severityStr, &confidence, &amount, &alertTime, &statusStr, &resolvedAt, &resolvedBy,
	)
	if err != nil {
		return nil, err
	}

	severity, err := valueobject.AlertSeverityFromString(severityStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse alert severity: %w", err)
	}
	status, err := valueobject.AlertStatusFromString(statusStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse alert status: %w", err)
	}
	if resolvedAt != nil {
		t := resolvedAt.UTC()
		resolvedAt = &t
	}

	return model.ReconstructFraudAlert(
		id, subjectID, transactionID, alertType, description, rules,
		severity, confidence, amount, alertTime.UTC(), status, resolvedAt, resolvedBy,
	), nil
}

var _ port.AlertStore = (*AlertStore)(nil)
