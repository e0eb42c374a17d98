package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	pgutil "github.com/bibbank/fraudledger/pkg/postgres"
)

const blockColumns = `block_index, created_at, payload, previous_hash, hash, nonce,
	decision, transaction_id, risk_score, reasons, validator_tag, is_valid`

// BlockStore implements port.BlockStore using PostgreSQL.
type BlockStore struct {
	pool *pgxpool.Pool
}

// NewBlockStore creates a new PostgreSQL-backed block store.
func NewBlockStore(pool *pgxpool.Pool) *BlockStore {
	return &BlockStore{pool: pool}
}

// GetTip returns the highest-indexed block, or nil for an empty ledger.
func (s *BlockStore) GetTip(ctx context.Context) (*model.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM ledger_blocks ORDER BY block_index DESC LIMIT 1`

	block, err := scanBlock(s.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load ledger tip: %w", err)
	}
	return block, nil
}

// Append inserts a sealed block. The tip is re-read inside the transaction
// and the primary key rejects a concurrent writer that raced past it.
func (s *BlockStore) Append(ctx context.Context, block *model.Block) error {
	r := block.Record()

	err := pgutil.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		var tip int64
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(block_index), -1) FROM ledger_blocks`).Scan(&tip); err != nil {
			return fmt.Errorf("failed to read ledger tip: %w", err)
		}
		if r.Index != tip+1 {
			return fmt.Errorf("%w: block index %d, next free index is %d", model.ErrConflict, r.Index, tip+1)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO ledger_blocks (`+blockColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			r.Index, r.Timestamp, r.Payload, r.PreviousHash, r.Hash, r.Nonce,
			r.Decision, r.TransactionID, r.RiskScore, r.Reasons, r.ValidatorTag, r.Valid,
		)
		if err != nil {
			if pgutil.IsUniqueViolation(err) {
				return fmt.Errorf("%w: block index %d already taken", model.ErrConflict, r.Index)
			}
			return fmt.Errorf("failed to insert block %d: %w", r.Index, err)
		}
		return nil
	})
	return err
}

// FindByTransactionID returns every block sealing transactionID in index order.
func (s *BlockStore) FindByTransactionID(ctx context.Context, transactionID string) ([]*model.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM ledger_blocks WHERE transaction_id = $1 ORDER BY block_index`
	return s.queryBlocks(ctx, query, transactionID)
}

// FindAboveRiskScore returns blocks scored at or above minScore, newest first.
func (s *BlockStore) FindAboveRiskScore(ctx context.Context, minScore decimal.Decimal, limit int) ([]*model.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM ledger_blocks
		WHERE risk_score >= $1
		ORDER BY block_index DESC
		LIMIT $2`
	return s.queryBlocks(ctx, query, minScore, nullableLimit(limit))
}

func (s *BlockStore) CountInvalid(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM ledger_blocks WHERE NOT is_valid`)
}

func (s *BlockStore) CountByDecision(ctx context.Context, decision string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM ledger_blocks WHERE decision = $1`, decision)
}

func (s *BlockStore) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM ledger_blocks`)
}

// RecentWindow returns the newest n blocks, index descending.
func (s *BlockStore) RecentWindow(ctx context.Context, n int) ([]*model.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM ledger_blocks ORDER BY block_index DESC LIMIT $1`
	return s.queryBlocks(ctx, query, nullableLimit(n))
}

// MarkInvalid clears the validity flag of the block at index.
func (s *BlockStore) MarkInvalid(ctx context.Context, index int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE ledger_blocks SET is_valid = FALSE WHERE block_index = $1`, index)
	if err != nil {
		return fmt.Errorf("failed to flag block %d: %w", index, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("block %d: %w", index, model.ErrNotFound)
	}
	return nil
}

func (s *BlockStore) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count blocks: %w", err)
	}
	return n, nil
}

func (s *BlockStore) queryBlocks(ctx context.Context, query string, args ...any) ([]*model.Block, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*model.Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block row: %w", err)
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocks: %w", err)
	}
	return blocks, nil
}

func scanBlock(row pgx.Row) (*model.Block, error) {
	var r model.BlockRecord
	err := row.Scan(
		&r.Index, &r.Timestamp, &r.Payload, &r.PreviousHash, &r.Hash, &r.Nonce,
		&r.Decision, &r.TransactionID, &r.RiskScore, &r.Reasons, &r.ValidatorTag, &r.Valid,
	)
	if err != nil {
		return nil, err
	}
	return model.ReconstructBlock(r), nil
}

var _ port.BlockStore = (*BlockStore)(nil)
