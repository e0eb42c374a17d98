package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

const policyColumns = `id, name, rule_description, action_type, threshold, description,
	is_active, created_at, last_executed_at, execution_count`

// PolicyStore implements port.PolicyStore using PostgreSQL. Store order is
// insertion order.
type PolicyStore struct {
	pool *pgxpool.Pool
}

// NewPolicyStore creates a new PostgreSQL-backed policy store.
func NewPolicyStore(pool *pgxpool.Pool) *PolicyStore {
	return &PolicyStore{pool: pool}
}

func (s *PolicyStore) FindActive(ctx context.Context) ([]*model.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM fraud_policies WHERE is_active ORDER BY seq`
	return s.queryPolicies(ctx, query)
}

func (s *PolicyStore) FindApplicable(ctx context.Context, score decimal.Decimal) ([]*model.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM fraud_policies
		WHERE is_active AND threshold <= $1
		ORDER BY seq`
	return s.queryPolicies(ctx, query, score)
}

func (s *PolicyStore) FindByID(ctx context.Context, id string) (*model.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM fraud_policies WHERE id = $1`

	policy, err := scanPolicy(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("policy %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load policy %s: %w", id, err)
	}
	return policy, nil
}

func (s *PolicyStore) FindAll(ctx context.Context) ([]*model.Policy, error) {
	return s.queryPolicies(ctx, `SELECT `+policyColumns+` FROM fraud_policies ORDER BY seq`)
}

// Save upserts a policy. Creation fields are never overwritten.
func (s *PolicyStore) Save(ctx context.Context, policy *model.Policy) error {
	query := `
		INSERT INTO fraud_policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			rule_description = EXCLUDED.rule_description,
			action_type = EXCLUDED.action_type,
			threshold = EXCLUDED.threshold,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			last_executed_at = EXCLUDED.last_executed_at,
			execution_count = EXCLUDED.execution_count
	`

	_, err := s.pool.Exec(ctx, query,
		policy.ID(),
		policy.Name(),
		policy.RuleDescription(),
		policy.ActionType().String(),
		policy.Threshold(),
		policy.Description(),
		policy.IsActive(),
		policy.CreatedAt(),
		policy.LastExecutedAt(),
		policy.ExecutionCount(),
	)
	if err != nil {
		return fmt.Errorf("failed to save policy %s: %w", policy.ID(), err)
	}
	return nil
}

func (s *PolicyStore) queryPolicies(ctx context.Context, query string, args ...any) ([]*model.Policy, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []*model.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policies: %w", err)
	}
	return policies, nil
}

func scanPolicy(row pgx.Row) (*model.Policy, error) {
	var (
		id, name, rule, action, description string
		threshold                           decimal.Decimal
		active                              bool
		createdAt                           time.Time
		lastExecutedAt                      *time.Time
		executionCount                      int64
	)

	err := row.Scan(
		&id, &name, &rule, &action, &threshold, &description,
		&active, &createdAt, &lastExecutedAt, &executionCount,
	)
	if err != nil {
		return nil, err
	}

	if lastExecutedAt != nil {
		t := lastExecutedAt.UTC()
		lastExecutedAt = &t
	}

	return model.ReconstructPolicy(
		id, name, rule,
		valueobject.NewActionType(action),
		threshold, description, active,
		createdAt.UTC(), lastExecutedAt, executionCount,
	), nil
}

var _ port.PolicyStore = (*PolicyStore)(nil)
