package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
)

// ScoringEngine runs registered rules against a transaction and folds their
// outcomes into one Decision. The engine owns its violation tally; nothing
// is shared at package level.
type ScoringEngine struct {
	logger *slog.Logger

	mu    sync.RWMutex
	rules []Rule
	tally map[string]*atomic.Int64
}

// NewScoringEngine creates an engine with the given rules registered in order.
func NewScoringEngine(logger *slog.Logger, rules ...Rule) *ScoringEngine {
	e := &ScoringEngine{
		logger: logger,
		tally:  make(map[string]*atomic.Int64),
	}
	for _, r := range rules {
		e.Register(r)
	}
	return e
}

// Register adds a rule. Registering a name twice resets that name's tally
// and keeps the rule list unchanged.
func (e *ScoringEngine) Register(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := rule.Name()
	if counter, ok := e.tally[name]; ok {
		counter.Store(0)
		e.logger.Warn("rule already registered, violation tally reset", slog.String("rule", name))
		return
	}

	e.rules = append(e.rules, rule)
	e.tally[name] = new(atomic.Int64)
	e.logger.Info("registered fraud rule", slog.String("rule", name))
}

// Analyze evaluates every rule in registration order and applies the
// resulting decision to tx. A failing rule is logged and counted as not
// triggered.
func (e *ScoringEngine) Analyze(ctx context.Context, tx *model.Transaction) model.Decision {
	e.mu.RLock()
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.RUnlock()

	triggered := make([]string, 0, len(rules))
	total := decimal.Zero

	for _, rule := range rules {
		confidence, hit, err := e.evaluate(ctx, rule, tx)
		if err != nil {
			e.logger.Error("fraud rule failed",
				slog.String("rule", rule.Name()),
				slog.String("transaction_id", tx.ID()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !hit {
			continue
		}

		triggered = append(triggered, rule.Name())
		e.increment(rule.Name())
		total = total.Add(confidence)

		e.logger.Debug("fraud rule triggered",
			slog.String("rule", rule.Name()),
			slog.String("transaction_id", tx.ID()),
			slog.String("confidence", confidence.String()),
		)
	}

	decision := model.Decision{
		Confidence:     decimal.Zero,
		TriggeredRules: triggered,
		Fraudulent:     len(triggered) > 0,
	}
	if decision.Fraudulent {
		decision.Confidence = total.Div(decimal.NewFromInt(int64(len(triggered)))).Round(2)
	}

	tx.ApplyDecision(decision)

	if decision.Fraudulent {
		e.logger.Warn("transaction flagged as fraudulent",
			slog.String("transaction_id", tx.ID()),
			slog.String("confidence", decision.Confidence.String()),
		)
	}

	return decision
}

// evaluate runs a single rule, converting errors and panics into
// ErrRuleEvaluation.
func (e *ScoringEngine) evaluate(ctx context.Context, rule Rule, tx *model.Transaction) (confidence decimal.Decimal, hit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			confidence, hit = decimal.Zero, false
			err = fmt.Errorf("%w: panic: %v", ErrRuleEvaluation, r)
		}
	}()

	hit, err = rule.Evaluate(ctx, tx)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: %w", ErrRuleEvaluation, err)
	}
	if !hit {
		return decimal.Zero, false, nil
	}

	confidence, err = rule.Confidence(ctx, tx)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: confidence: %w", ErrRuleEvaluation, err)
	}
	return clampUnit(confidence), true, nil
}

func (e *ScoringEngine) increment(name string) {
	e.mu.RLock()
	counter := e.tally[name]
	e.mu.RUnlock()
	if counter != nil {
		counter.Add(1)
	}
}

// RuleNames returns the registered rule names in evaluation order.
func (e *ScoringEngine) RuleNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// ViolationCounts returns a snapshot of how often each rule has triggered.
func (e *ScoringEngine) ViolationCounts() map[string]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]int64, len(e.tally))
	for name, counter := range e.tally {
		out[name] = counter.Load()
	}
	return out
}

// Report logs the active rules and their violation counts.
func (e *ScoringEngine) Report() {
	names := e.RuleNames()
	counts := e.ViolationCounts()

	e.logger.Info("fraud engine report", slog.Int("active_rules", len(names)))
	for _, name := range names {
		e.logger.Info("rule violations",
			slog.String("rule", name),
			slog.Int64("violations", counts[name]),
		)
	}
}
