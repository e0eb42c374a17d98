package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudledger/internal/application/dto"
	"github.com/bibbank/fraudledger/internal/application/usecase"
	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/service"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
	"github.com/bibbank/fraudledger/internal/infrastructure/memory"
	"github.com/bibbank/fraudledger/pkg/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Rules ---

// amountOverRule triggers when the amount is at least over.
type amountOverRule struct {
	name       string
	over       decimal.Decimal
	confidence decimal.Decimal
}

func (r *amountOverRule) Name() string { return r.name }

func (r *amountOverRule) Evaluate(_ context.Context, tx *model.Transaction) (bool, error) {
	return tx.Amount().GreaterThanOrEqual(r.over), nil
}

func (r *amountOverRule) Confidence(_ context.Context, _ *model.Transaction) (decimal.Decimal, error) {
	return r.confidence, nil
}

// highCategoryRule triggers for HIGH and CRITICAL categories.
type highCategoryRule struct{}

func (highCategoryRule) Name() string { return "CATEGORY" }

func (highCategoryRule) Evaluate(_ context.Context, tx *model.Transaction) (bool, error) {
	return tx.CategoryRisk().AtLeast(valueobject.RiskLevelHigh), nil
}

func (highCategoryRule) Confidence(_ context.Context, _ *model.Transaction) (decimal.Decimal, error) {
	return decimal.RequireFromString("0.55"), nil
}

// slowRule always triggers after a pause long enough for concurrent
// requests to overlap, and counts its evaluations.
type slowRule struct {
	pause       time.Duration
	evaluations atomic.Int64
}

func (r *slowRule) Name() string { return "SLOW" }

func (r *slowRule) Evaluate(_ context.Context, _ *model.Transaction) (bool, error) {
	r.evaluations.Add(1)
	time.Sleep(r.pause)
	return true, nil
}

func (r *slowRule) Confidence(_ context.Context, _ *model.Transaction) (decimal.Decimal, error) {
	return decimal.RequireFromString("0.3"), nil
}

// --- Publisher ---

type mockPublisher struct {
	mu          sync.Mutex
	published   []events.DomainEvent
	publishFunc func(ctx context.Context, evts ...events.DomainEvent) error
}

func (m *mockPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	m.mu.Lock()
	m.published = append(m.published, evts...)
	m.mu.Unlock()
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	return nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.published))
	for _, e := range m.published {
		out = append(out, e.EventType())
	}
	return out
}

// --- Metrics ---

type recordingMetrics struct {
	mu            sync.Mutex
	processed     map[string]int
	sealed        int
	auditFailures int
	actions       map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{processed: map[string]int{}, actions: map[string]int{}}
}

func (m *recordingMetrics) TransactionProcessed(_ context.Context, status string, _ bool, _ float64, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[status]++
}

func (m *recordingMetrics) BlockSealed(_ context.Context, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sealed++
}

func (m *recordingMetrics) AuditFailed(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditFailures++
}

func (m *recordingMetrics) PolicyExecuted(_ context.Context, actionType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[actionType]++
}

// --- Block store ---

// flakyBlockStore fails appends once failAppend is set.
type flakyBlockStore struct {
	*memory.BlockStore
	mu         sync.Mutex
	failAppend error
}

func (s *flakyBlockStore) Append(ctx context.Context, block *model.Block) error {
	s.mu.Lock()
	err := s.failAppend
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.BlockStore.Append(ctx, block)
}

// --- Fixture ---

type fixture struct {
	blocks    *flakyBlockStore
	policies  *memory.PolicyStore
	history   *memory.TransactionHistory
	alerts    *memory.AlertStore
	publisher *mockPublisher
	metrics   *recordingMetrics
	ledger    *service.Ledger
	executor  *service.PolicyExecutor
	engine    *service.ScoringEngine
	process   *usecase.ProcessTransaction
}

// newFixture wires the pipeline over memory stores. The only rules are a
// 10000+ amount rule with confidence 0.85 and a HIGH-category rule with 0.55.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRules(t,
		&amountOverRule{name: "BIG_AMOUNT", over: decimal.NewFromInt(10000), confidence: decimal.RequireFromString("0.85")},
		highCategoryRule{},
	)
}

func newFixtureWithRules(t *testing.T, rules ...service.Rule) *fixture {
	t.Helper()
	logger := discardLogger()

	f := &fixture{
		blocks:    &flakyBlockStore{BlockStore: memory.NewBlockStore()},
		policies:  memory.NewPolicyStore(),
		history:   memory.NewTransactionHistory(),
		alerts:    memory.NewAlertStore(),
		publisher: &mockPublisher{},
		metrics:   newRecordingMetrics(),
	}

	f.ledger = service.NewLedger(f.blocks, service.LedgerConfig{Difficulty: 1}, logger)
	_, err := f.ledger.Initialize(context.Background())
	require.NoError(t, err)

	f.executor = service.NewPolicyExecutor(f.policies, logger)
	_, err = f.executor.SeedDefaults(context.Background())
	require.NoError(t, err)

	f.engine = service.NewScoringEngine(logger, rules...)

	f.process = usecase.NewProcessTransaction(usecase.ProcessTransactionDeps{
		History:          f.history,
		Categories:       memory.NewCategoryDirectory(memory.DefaultCategories()...),
		Alerts:           f.alerts,
		Publisher:        f.publisher,
		Engine:           f.engine,
		Ledger:           f.ledger,
		Policies:         f.executor,
		Metrics:          f.metrics,
		Logger:           logger,
		BatchConcurrency: 4,
	})
	return f
}

var baseTime = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func request(id, amount string) dto.ProcessTransactionRequest {
	return dto.ProcessTransactionRequest{
		TransactionID: id,
		SubjectID:     "user-42",
		Amount:        decimal.RequireFromString(amount),
		CategoryCode:  "GRO",
		MerchantName:  "Corner Grocery",
		Location:      "Lisbon",
		PaymentMethod: "DEBIT_CARD",
		Timestamp:     baseTime,
	}
}
