package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
	"github.com/bibbank/fraudledger/pkg/syncutil"
)

// ActionContext describes the transaction a policy fires for.
type ActionContext struct {
	RiskScore     decimal.Decimal
	TransactionID string
	SubjectID     string
}

// ActionResult records one policy dispatch.
type ActionResult struct {
	ExecutedAt     time.Time
	ActionType     valueobject.ActionType
	PolicyID       string
	PolicyName     string
	Description    string
	ExecutionCount int64
}

// PolicyStats counts policies by state.
type PolicyStats struct {
	Total    int
	Active   int
	Inactive int
}

// PolicyExecutor matches risk scores against registered policies and
// dispatches their actions. Counter updates are serialized per policy.
type PolicyExecutor struct {
	store  port.PolicyStore
	locks  syncutil.KeyedMutex
	logger *slog.Logger
	now    func() time.Time
}

// NewPolicyExecutor creates a PolicyExecutor backed by store.
func NewPolicyExecutor(store port.PolicyStore, logger *slog.Logger) *PolicyExecutor {
	return &PolicyExecutor{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates and stores a new active policy.
func (e *PolicyExecutor) Register(
	ctx context.Context,
	name, ruleDescription string,
	actionType valueobject.ActionType,
	threshold decimal.Decimal,
	description string,
) (*model.Policy, error) {
	policy, err := model.NewPolicy(name, ruleDescription, actionType, threshold, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}
	if err := e.store.Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	e.logger.Info("policy registered",
		slog.String("policy_id", policy.ID()),
		slog.String("name", policy.Name()),
		slog.String("action_type", policy.ActionType().String()),
		slog.String("threshold", policy.Threshold().String()),
	)
	return policy, nil
}

// Select returns the active policies whose threshold is at or below
// riskScore, in store order.
func (e *PolicyExecutor) Select(ctx context.Context, riskScore decimal.Decimal) ([]*model.Policy, error) {
	policies, err := e.store.FindApplicable(ctx, riskScore)
	if err != nil {
		return nil, fmt.Errorf("failed to find applicable policies: %w", err)
	}
	return policies, nil
}

// Execute dispatches the policy's action and bumps its execution counter.
// The stored policy is re-read under the policy's lock so concurrent
// executions never lose an increment.
func (e *PolicyExecutor) Execute(ctx context.Context, policy *model.Policy, ac ActionContext) (ActionResult, error) {
	unlock := e.locks.Lock(policy.ID())
	defer unlock()

	current, err := e.find(ctx, policy.ID())
	if err != nil {
		return ActionResult{}, err
	}

	description := DescribeAction(current.ActionType(), ac)
	executedAt := e.now().UTC()
	current.RecordExecution(executedAt)

	if err := e.store.Save(ctx, current); err != nil {
		return ActionResult{}, fmt.Errorf("failed to record execution of policy %s: %w", current.ID(), err)
	}

	e.logger.Info("policy executed",
		slog.String("policy_id", current.ID()),
		slog.String("action_type", current.ActionType().String()),
		slog.String("transaction_id", ac.TransactionID),
		slog.Int64("execution_count", current.ExecutionCount()),
	)

	return ActionResult{
		PolicyID:       current.ID(),
		PolicyName:     current.Name(),
		ActionType:     current.ActionType(),
		Description:    description,
		ExecutedAt:     executedAt,
		ExecutionCount: current.ExecutionCount(),
	}, nil
}

// Run selects and executes every policy matching the context's risk score.
// A failed dispatch is reported in the joined error; the others still run.
func (e *PolicyExecutor) Run(ctx context.Context, ac ActionContext) ([]ActionResult, error) {
	policies, err := e.Select(ctx, ac.RiskScore)
	if err != nil {
		return nil, err
	}

	results := make([]ActionResult, 0, len(policies))
	var errs []error
	for _, p := range policies {
		res, err := e.Execute(ctx, p, ac)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Deactivate soft-deletes a policy.
func (e *PolicyExecutor) Deactivate(ctx context.Context, id string) (*model.Policy, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	policy, err := e.find(ctx, id)
	if err != nil {
		return nil, err
	}
	policy.Deactivate()
	if err := e.store.Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to deactivate policy %s: %w", id, err)
	}

	e.logger.Info("policy deactivated", slog.String("policy_id", id))
	return policy, nil
}

// Get returns a policy by id.
func (e *PolicyExecutor) Get(ctx context.Context, id string) (*model.Policy, error) {
	return e.find(ctx, id)
}

// ListActive returns every active policy.
func (e *PolicyExecutor) ListActive(ctx context.Context) ([]*model.Policy, error) {
	policies, err := e.store.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active policies: %w", err)
	}
	return policies, nil
}

// Stats counts policies by state.
func (e *PolicyExecutor) Stats(ctx context.Context) (PolicyStats, error) {
	all, err := e.store.FindAll(ctx)
	if err != nil {
		return PolicyStats{}, fmt.Errorf("failed to list policies: %w", err)
	}

	stats := PolicyStats{Total: len(all)}
	for _, p := range all {
		if p.IsActive() {
			stats.Active++
		}
	}
	stats.Inactive = stats.Total - stats.Active
	return stats, nil
}

// SeedDefaults installs the standard policy set when the store holds no
// policies. It returns how many policies were created.
func (e *PolicyExecutor) SeedDefaults(ctx context.Context) (int, error) {
	existing, err := e.store.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list policies: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	defaults := []struct {
		name, rule, description string
		action                  valueobject.ActionType
		threshold               string
	}{
		{"High Risk Blocker", "risk_score >= 0.8", "Block accounts for very high risk transactions", valueobject.ActionBlockAccount, "0.8"},
		{"Medium Risk Alert", "risk_score >= 0.5", "Alert investigators about medium risk transactions", valueobject.ActionAlertAdmin, "0.5"},
		{"2FA Requirement", "risk_score >= 0.6", "Require two-factor authentication for elevated risk", valueobject.ActionRequire2FA, "0.6"},
	}

	for _, d := range defaults {
		if _, err := e.Register(ctx, d.name, d.rule, d.action, decimal.RequireFromString(d.threshold), d.description); err != nil {
			return 0, err
		}
	}
	return len(defaults), nil
}

func (e *PolicyExecutor) find(ctx context.Context, id string) (*model.Policy, error) {
	policy, err := e.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, id)
		}
		return nil, fmt.Errorf("failed to load policy %s: %w", id, err)
	}
	return policy, nil
}

// DescribeAction renders the human-readable outcome of an action.
func DescribeAction(action valueobject.ActionType, ac ActionContext) string {
	switch action {
	case valueobject.ActionBlockAccount:
		return fmt.Sprintf("Account %s has been temporarily blocked for review", ac.SubjectID)
	case valueobject.ActionFreezeFunds:
		return fmt.Sprintf("Transaction %s funds frozen pending investigation", ac.TransactionID)
	case valueobject.ActionAlertAdmin:
		return fmt.Sprintf("Alert sent to fraud investigation team for transaction %s", ac.TransactionID)
	case valueobject.ActionRequire2FA:
		return fmt.Sprintf("Two-factor authentication required for user %s", ac.SubjectID)
	case valueobject.ActionDeclineTransaction:
		return fmt.Sprintf("Transaction %s automatically declined", ac.TransactionID)
	default:
		return "Unknown action type: " + strings.TrimSpace(action.String())
	}
}
