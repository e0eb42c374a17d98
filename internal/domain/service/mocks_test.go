package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Rules ---

type stubRule struct {
	name       string
	hit        bool
	confidence string
	err        error
	panicMsg   string
}

func (r *stubRule) Name() string { return r.name }

func (r *stubRule) Evaluate(_ context.Context, _ *model.Transaction) (bool, error) {
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	return r.hit, r.err
}

func (r *stubRule) Confidence(_ context.Context, _ *model.Transaction) (decimal.Decimal, error) {
	return decimal.RequireFromString(r.confidence), nil
}

type mockModelClient struct {
	score float64
	err   error
}

func (m *mockModelClient) Predict(_ context.Context, _ map[string]interface{}) (float64, error) {
	return m.score, m.err
}

// --- Transaction history ---

type mockHistory struct {
	countInWindowFunc   func(ctx context.Context, subjectID string, from, to time.Time) (int64, error)
	countAtMerchantFunc func(ctx context.Context, subjectID, merchant string, from, to time.Time) (int64, error)
}

func (m *mockHistory) Exists(_ context.Context, _ string) (bool, error) { return false, nil }

func (m *mockHistory) Reserve(_ context.Context, _ string) (bool, error) { return true, nil }

func (m *mockHistory) Release(_ context.Context, _ string) error { return nil }

func (m *mockHistory) AverageAmount(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (m *mockHistory) CountInWindow(ctx context.Context, subjectID string, from, to time.Time) (int64, error) {
	if m.countInWindowFunc != nil {
		return m.countInWindowFunc(ctx, subjectID, from, to)
	}
	return 0, nil
}

func (m *mockHistory) CountAtMerchant(ctx context.Context, subjectID, merchant string, from, to time.Time) (int64, error) {
	if m.countAtMerchantFunc != nil {
		return m.countAtMerchantFunc(ctx, subjectID, merchant, from, to)
	}
	return 0, nil
}

func (m *mockHistory) Record(_ context.Context, _ *model.Transaction) error { return nil }

func (m *mockHistory) FindBySubject(_ context.Context, _ string, _ int) ([]*model.Transaction, error) {
	return nil, nil
}

func (m *mockHistory) Stats(_ context.Context) (port.TransactionStats, error) {
	return port.TransactionStats{}, nil
}

// --- Block store ---

type fakeBlockStore struct {
	mu        sync.Mutex
	blocks    []model.BlockRecord
	appendErr error
	invalid   []int64
}

func (s *fakeBlockStore) GetTip(_ context.Context) (*model.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blocks) == 0 {
		return nil, nil
	}
	return model.ReconstructBlock(s.blocks[len(s.blocks)-1]), nil
}

func (s *fakeBlockStore) Append(_ context.Context, b *model.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	if n := len(s.blocks); n > 0 && s.blocks[n-1].Index >= b.Index() {
		return fmt.Errorf("block index %d already taken", b.Index())
	}
	s.blocks = append(s.blocks, b.Record())
	return nil
}

func (s *fakeBlockStore) FindByTransactionID(_ context.Context, id string) ([]*model.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Block
	for _, r := range s.blocks {
		if r.TransactionID == id {
			out = append(out, model.ReconstructBlock(r))
		}
	}
	return out, nil
}

func (s *fakeBlockStore) FindAboveRiskScore(_ context.Context, floor decimal.Decimal, limit int) ([]*model.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Block
	for i := len(s.blocks) - 1; i >= 0; i-- {
		if s.blocks[i].RiskScore.GreaterThanOrEqual(floor) {
			out = append(out, model.ReconstructBlock(s.blocks[i]))
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeBlockStore) CountInvalid(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.blocks {
		if !r.Valid {
			n++
		}
	}
	return n, nil
}

func (s *fakeBlockStore) CountByDecision(_ context.Context, decision string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.blocks {
		if r.Decision == decision {
			n++
		}
	}
	return n, nil
}

func (s *fakeBlockStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.blocks)), nil
}

func (s *fakeBlockStore) RecentWindow(_ context.Context, n int) ([]*model.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Block
	for i := len(s.blocks) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, model.ReconstructBlock(s.blocks[i]))
	}
	return out, nil
}

func (s *fakeBlockStore) MarkInvalid(_ context.Context, index int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.blocks {
		if s.blocks[i].Index == index {
			s.blocks[i].Valid = false
		}
	}
	s.invalid = append(s.invalid, index)
	return nil
}

// tamper rewrites a stored block in place, bypassing the ledger.
func (s *fakeBlockStore) tamper(index int64, mutate func(r *model.BlockRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.blocks {
		if s.blocks[i].Index == index {
			mutate(&s.blocks[i])
		}
	}
}

func (s *fakeBlockStore) records() []model.BlockRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.BlockRecord, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// --- Policy store ---

type fakePolicyStore struct {
	mu       sync.Mutex
	order    []string
	policies map[string]*model.Policy
	saveErr  error
}

func newFakePolicyStore() *fakePolicyStore {
	return &fakePolicyStore{policies: make(map[string]*model.Policy)}
}

func (s *fakePolicyStore) FindActive(_ context.Context) ([]*model.Policy, error) {
	return s.filter(func(p *model.Policy) bool { return p.IsActive() }), nil
}

func (s *fakePolicyStore) FindApplicable(_ context.Context, score decimal.Decimal) ([]*model.Policy, error) {
	return s.filter(func(p *model.Policy) bool { return p.AppliesTo(score) }), nil
}

func (s *fakePolicyStore) FindByID(_ context.Context, id string) (*model.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok {
		return nil, fmt.Errorf("policy %s: %w", id, model.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *fakePolicyStore) FindAll(_ context.Context) ([]*model.Policy, error) {
	return s.filter(func(*model.Policy) bool { return true }), nil
}

func (s *fakePolicyStore) Save(_ context.Context, p *model.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.policies[p.ID()]; !ok {
		s.order = append(s.order, p.ID())
	}
	s.policies[p.ID()] = p.Clone()
	return nil
}

func (s *fakePolicyStore) filter(keep func(*model.Policy) bool) []*model.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Policy
	for _, id := range s.order {
		if p := s.policies[id]; keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *fakePolicyStore) put(p *model.Policy) {
	_ = s.Save(context.Background(), p)
}

// --- Fixtures ---

func newTx(amount string, mutate ...func(p *model.TransactionParams)) *model.Transaction {
	p := model.TransactionParams{
		ID:           "TX-1",
		SubjectID:    "user-1",
		Amount:       decimal.RequireFromString(amount),
		CategoryCode: "5411",
		CategoryRisk: valueobject.RiskLevelLow,
		MerchantName: "Corner Grocery",
		Timestamp:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, m := range mutate {
		m(&p)
	}
	tx, err := model.NewTransaction(p)
	if err != nil {
		panic(err)
	}
	return tx
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
