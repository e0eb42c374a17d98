package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
)

// PolicyStore keeps policies in registration order.
type PolicyStore struct {
	mu       sync.RWMutex
	policies map[string]*model.Policy
	order    []string
}

// NewPolicyStore creates an empty in-memory policy store.
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{policies: make(map[string]*model.Policy)}
}

func (s *PolicyStore) FindActive(_ context.Context) ([]*model.Policy, error) {
	return s.filter(func(p *model.Policy) bool { return p.IsActive() }), nil
}

func (s *PolicyStore) FindApplicable(_ context.Context, score decimal.Decimal) ([]*model.Policy, error) {
	return s.filter(func(p *model.Policy) bool { return p.AppliesTo(score) }), nil
}

func (s *PolicyStore) FindByID(_ context.Context, id string) (*model.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[id]
	if !ok {
		return nil, fmt.Errorf("policy %s: %w", id, model.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *PolicyStore) FindAll(_ context.Context) ([]*model.Policy, error) {
	return s.filter(func(*model.Policy) bool { return true }), nil
}

func (s *PolicyStore) Save(_ context.Context, policy *model.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[policy.ID()]; !ok {
		s.order = append(s.order, policy.ID())
	}
	s.policies[policy.ID()] = policy.Clone()
	return nil
}

func (s *PolicyStore) filter(keep func(*model.Policy) bool) []*model.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Policy
	for _, id := range s.order {
		if p := s.policies[id]; keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

var _ port.PolicyStore = (*PolicyStore)(nil)
