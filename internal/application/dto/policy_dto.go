package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/service"
)

// RegisterPolicyRequest is the input DTO for registering a policy.
type RegisterPolicyRequest struct {
	Threshold       decimal.Decimal `json:"threshold"`
	Name            string          `json:"name"`
	RuleDescription string          `json:"rule_description"`
	ActionType      string          `json:"action_type"`
	Description     string          `json:"description"`
}

// PolicyResponse is the output DTO for a policy.
type PolicyResponse struct {
	CreatedAt       time.Time  `json:"created_at"`
	LastExecutedAt  *time.Time `json:"last_executed_at,omitempty"`
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	RuleDescription string     `json:"rule_description"`
	ActionType      string     `json:"action_type"`
	Threshold       string     `json:"threshold"`
	Description     string     `json:"description"`
	ExecutionCount  int64      `json:"execution_count"`
	Active          bool       `json:"active"`
}

// FromPolicy maps a domain policy to the response DTO.
func FromPolicy(p *model.Policy) PolicyResponse {
	return PolicyResponse{
		ID:              p.ID(),
		Name:            p.Name(),
		RuleDescription: p.RuleDescription(),
		ActionType:      p.ActionType().String(),
		Threshold:       p.Threshold().String(),
		Description:     p.Description(),
		Active:          p.IsActive(),
		CreatedAt:       p.CreatedAt(),
		LastExecutedAt:  p.LastExecutedAt(),
		ExecutionCount:  p.ExecutionCount(),
	}
}

// FromPolicies maps a slice of policies.
func FromPolicies(policies []*model.Policy) []PolicyResponse {
	out := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, FromPolicy(p))
	}
	return out
}

// FromActionResult maps one dispatch to the response DTO.
func FromActionResult(r service.ActionResult) ActionResponse {
	return ActionResponse{
		PolicyID:    r.PolicyID,
		PolicyName:  r.PolicyName,
		ActionType:  r.ActionType.String(),
		Description: r.Description,
		ExecutedAt:  r.ExecutedAt,
	}
}

// PolicyStatsResponse counts policies by state.
type PolicyStatsResponse struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}
