package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
)

// BlockStore keeps the ledger in an index-ordered slice. Blocks are held as
// records and rebuilt on read so callers never share state with the store.
type BlockStore struct {
	mu      sync.RWMutex
	records []model.BlockRecord
}

// NewBlockStore creates an empty in-memory block store.
func NewBlockStore() *BlockStore {
	return &BlockStore{}
}

func (s *BlockStore) GetTip(_ context.Context) (*model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	return model.ReconstructBlock(s.records[len(s.records)-1]), nil
}

func (s *BlockStore) Append(_ context.Context, block *model.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := int64(len(s.records))
	if block.Index() != want {
		return fmt.Errorf("%w: block index %d, next free index is %d", model.ErrConflict, block.Index(), want)
	}
	s.records = append(s.records, block.Record())
	return nil
}

func (s *BlockStore) FindByTransactionID(_ context.Context, transactionID string) ([]*model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Block
	for _, r := range s.records {
		if r.TransactionID == transactionID {
			out = append(out, model.ReconstructBlock(r))
		}
	}
	return out, nil
}

func (s *BlockStore) FindAboveRiskScore(_ context.Context, minScore decimal.Decimal, limit int) ([]*model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Block
	for i := len(s.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if s.records[i].RiskScore.GreaterThanOrEqual(minScore) {
			out = append(out, model.ReconstructBlock(s.records[i]))
		}
	}
	return out, nil
}

func (s *BlockStore) CountInvalid(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if !r.Valid {
			n++
		}
	}
	return n, nil
}

func (s *BlockStore) CountByDecision(_ context.Context, decision string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if r.Decision == decision {
			n++
		}
	}
	return n, nil
}

func (s *BlockStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *BlockStore) RecentWindow(_ context.Context, n int) ([]*model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}
	out := make([]*model.Block, 0, n)
	for i := len(s.records) - 1; i >= len(s.records)-n; i-- {
		out = append(out, model.ReconstructBlock(s.records[i]))
	}
	return out, nil
}

func (s *BlockStore) MarkInvalid(_ context.Context, index int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.records), func(i int) bool { return s.records[i].Index >= index })
	if i == len(s.records) || s.records[i].Index != index {
		return fmt.Errorf("block %d: %w", index, model.ErrNotFound)
	}
	s.records[i].Valid = false
	return nil
}

// Tamper rewrites the stored record at index. It exists for integrity
// drills and tests; nothing in the service calls it.
func (s *BlockStore) Tamper(index int64, mutate func(*model.BlockRecord)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].Index == index {
			mutate(&s.records[i])
			return true
		}
	}
	return false
}

var _ port.BlockStore = (*BlockStore)(nil)
