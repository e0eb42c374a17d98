package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
)

// TransactionHistory indexes recorded transactions by id and by subject.
// Claims made by Reserve outlive Record; only Release removes them.
type TransactionHistory struct {
	mu        sync.RWMutex
	byID      map[string]*model.Transaction
	bySubject map[string][]*model.Transaction
	claimed   map[string]struct{}
}

// NewTransactionHistory creates an empty in-memory history.
func NewTransactionHistory() *TransactionHistory {
	return &TransactionHistory{
		byID:      make(map[string]*model.Transaction),
		bySubject: make(map[string][]*model.Transaction),
		claimed:   make(map[string]struct{}),
	}
}

func (h *TransactionHistory) Exists(_ context.Context, transactionID string) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.byID[transactionID]
	return ok, nil
}

func (h *TransactionHistory) Reserve(_ context.Context, transactionID string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.byID[transactionID]; ok {
		return false, nil
	}
	if _, ok := h.claimed[transactionID]; ok {
		return false, nil
	}
	h.claimed[transactionID] = struct{}{}
	return true, nil
}

func (h *TransactionHistory) Release(_ context.Context, transactionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byID[transactionID]; !ok {
		delete(h.claimed, transactionID)
	}
	return nil
}

func (h *TransactionHistory) AverageAmount(_ context.Context, subjectID string) (decimal.Decimal, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	txs := h.bySubject[subjectID]
	if len(txs) == 0 {
		return decimal.Zero, nil
	}
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount())
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(txs))), 2), nil
}

func (h *TransactionHistory) CountInWindow(_ context.Context, subjectID string, from, to time.Time) (int64, error) {
	return h.count(subjectID, from, to, func(*model.Transaction) bool { return true }), nil
}

func (h *TransactionHistory) CountAtMerchant(_ context.Context, subjectID, merchantName string, from, to time.Time) (int64, error) {
	return h.count(subjectID, from, to, func(tx *model.Transaction) bool {
		return tx.MerchantName() == merchantName
	}), nil
}

// Record stores tx. A second record for the same id fails with
// model.ErrConflict.
func (h *TransactionHistory) Record(_ context.Context, tx *model.Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.byID[tx.ID()]; ok {
		return fmt.Errorf("%w: transaction %s already recorded", model.ErrConflict, tx.ID())
	}
	h.byID[tx.ID()] = tx
	h.bySubject[tx.SubjectID()] = append(h.bySubject[tx.SubjectID()], tx)
	return nil
}

func (h *TransactionHistory) FindBySubject(_ context.Context, subjectID string, limit int) ([]*model.Transaction, error) {
	h.mu.RLock()
	out := make([]*model.Transaction, len(h.bySubject[subjectID]))
	copy(out, h.bySubject[subjectID])
	h.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp().After(out[j].Timestamp())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *TransactionHistory) Stats(_ context.Context) (port.TransactionStats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := port.TransactionStats{Total: int64(len(h.byID))}
	for _, tx := range h.byID {
		if tx.IsFraudulent() {
			stats.Fraudulent++
		}
	}
	return stats, nil
}

func (h *TransactionHistory) count(subjectID string, from, to time.Time, match func(*model.Transaction) bool) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var n int64
	for _, tx := range h.bySubject[subjectID] {
		ts := tx.Timestamp()
		if ts.Before(from) || ts.After(to) {
			continue
		}
		if match(tx) {
			n++
		}
	}
	return n
}

var _ port.TransactionHistory = (*TransactionHistory)(nil)
