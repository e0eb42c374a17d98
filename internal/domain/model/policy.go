package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

const policyIDPrefix = "POL-"

// ThresholdPlaces is the decimal precision kept for policy thresholds.
const ThresholdPlaces = 4

// Policy binds a risk threshold to a remediation action. Policies are
// soft-deleted by deactivation and never removed.
type Policy struct {
	createdAt       time.Time
	lastExecutedAt  *time.Time
	threshold       decimal.Decimal
	actionType      valueobject.ActionType
	id              string
	name            string
	ruleDescription string
	description     string
	executionCount  int64
	active          bool
}

// NewPolicy validates the inputs and returns an active policy with a fresh
// identifier and no executions.
func NewPolicy(
	name string,
	ruleDescription string,
	actionType valueobject.ActionType,
	threshold decimal.Decimal,
	description string,
) (*Policy, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: policy name is required", ErrValidation)
	}
	if actionType.IsZero() {
		return nil, fmt.Errorf("%w: action type is required", ErrValidation)
	}
	if threshold.IsNegative() || threshold.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: threshold must be between 0 and 1, got %s", ErrValidation, threshold)
	}
	if !threshold.Equal(threshold.Round(ThresholdPlaces)) {
		return nil, fmt.Errorf("%w: threshold allows at most %d decimal places, got %s", ErrValidation, ThresholdPlaces, threshold)
	}

	return &Policy{
		id:              NewPolicyID(),
		name:            name,
		ruleDescription: ruleDescription,
		actionType:      actionType,
		threshold:       threshold,
		description:     description,
		active:          true,
		createdAt:       time.Now().UTC(),
		executionCount:  0,
	}, nil
}

// NewPolicyID returns an identifier of the form POL-XXXXXXXX.
func NewPolicyID() string {
	return policyIDPrefix + strings.ToUpper(uuid.NewString()[:8])
}

// AppliesTo reports whether the policy should fire for riskScore.
func (p *Policy) AppliesTo(riskScore decimal.Decimal) bool {
	return p.active && p.threshold.LessThanOrEqual(riskScore)
}

// RecordExecution bumps the execution counter and stamps the dispatch time.
func (p *Policy) RecordExecution(at time.Time) {
	p.executionCount++
	t := at.UTC()
	p.lastExecutedAt = &t
}

// Deactivate excludes the policy from future selection.
func (p *Policy) Deactivate() {
	p.active = false
}

// ReconstructPolicy rebuilds a Policy from persisted data (no validation).
func ReconstructPolicy(
	id, name, ruleDescription string,
	actionType valueobject.ActionType,
	threshold decimal.Decimal,
	description string,
	active bool,
	createdAt time.Time,
	lastExecutedAt *time.Time,
	executionCount int64,
) *Policy {
	return &Policy{
		id:              id,
		name:            name,
		ruleDescription: ruleDescription,
		actionType:      actionType,
		threshold:       threshold,
		description:     description,
		active:          active,
		createdAt:       createdAt,
		lastExecutedAt:  lastExecutedAt,
		executionCount:  executionCount,
	}
}

// Clone returns an independent copy, so stores never share mutable state
// with callers.
func (p *Policy) Clone() *Policy {
	c := *p
	if p.lastExecutedAt != nil {
		t := *p.lastExecutedAt
		c.lastExecutedAt = &t
	}
	return &c
}

// --- Accessors ---

func (p *Policy) ID() string                         { return p.id }
func (p *Policy) Name() string                       { return p.name }
func (p *Policy) RuleDescription() string            { return p.ruleDescription }
func (p *Policy) ActionType() valueobject.ActionType { return p.actionType }
func (p *Policy) Threshold() decimal.Decimal         { return p.threshold }
func (p *Policy) Description() string                { return p.description }
func (p *Policy) IsActive() bool                     { return p.active }
func (p *Policy) CreatedAt() time.Time               { return p.createdAt }
func (p *Policy) LastExecutedAt() *time.Time         { return p.lastExecutedAt }
func (p *Policy) ExecutionCount() int64              { return p.executionCount }
