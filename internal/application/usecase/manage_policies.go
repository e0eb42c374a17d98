package usecase

import (
	"context"

	"github.com/bibbank/fraudledger/internal/application/dto"
	"github.com/bibbank/fraudledger/internal/domain/service"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// ManagePolicies is the administrative surface over remediation policies.
type ManagePolicies struct {
	executor *service.PolicyExecutor
}

// NewManagePolicies creates a new ManagePolicies use case.
func NewManagePolicies(executor *service.PolicyExecutor) *ManagePolicies {
	return &ManagePolicies{executor: executor}
}

// Register creates a new active policy.
func (uc *ManagePolicies) Register(ctx context.Context, req dto.RegisterPolicyRequest) (dto.PolicyResponse, error) {
	p, err := uc.executor.Register(ctx,
		req.Name,
		req.RuleDescription,
		valueobject.NewActionType(req.ActionType),
		req.Threshold,
		req.Description,
	)
	if err != nil {
		return dto.PolicyResponse{}, err
	}
	return dto.FromPolicy(p), nil
}

// Deactivate soft-deletes a policy.
func (uc *ManagePolicies) Deactivate(ctx context.Context, id string) (dto.PolicyResponse, error) {
	p, err := uc.executor.Deactivate(ctx, id)
	if err != nil {
		return dto.PolicyResponse{}, err
	}
	return dto.FromPolicy(p), nil
}

// Get returns one policy.
func (uc *ManagePolicies) Get(ctx context.Context, id string) (dto.PolicyResponse, error) {
	p, err := uc.executor.Get(ctx, id)
	if err != nil {
		return dto.PolicyResponse{}, err
	}
	return dto.FromPolicy(p), nil
}

// ListActive returns all active policies.
func (uc *ManagePolicies) ListActive(ctx context.Context) ([]dto.PolicyResponse, error) {
	policies, err := uc.executor.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return dto.FromPolicies(policies), nil
}

// Stats counts policies by state.
func (uc *ManagePolicies) Stats(ctx context.Context) (dto.PolicyStatsResponse, error) {
	s, err := uc.executor.Stats(ctx)
	if err != nil {
		return dto.PolicyStatsResponse{}, err
	}
	return dto.PolicyStatsResponse{Total: s.Total, Active: s.Active, Inactive: s.Inactive}, nil
}
