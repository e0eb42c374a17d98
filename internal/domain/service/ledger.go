package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
	"github.com/bibbank/fraudledger/pkg/syncutil"
)

const (
	// DefaultDifficulty is the number of leading zero hex digits a sealed
	// block hash needs.
	DefaultDifficulty = 4
	// MaxDifficulty is the length of a hex SHA-256 digest.
	MaxDifficulty = 64
	// DefaultValidationWindow is how many recent blocks Validate inspects.
	DefaultValidationWindow = 100

	// miningCheckInterval is how many nonces are tried between context checks.
	miningCheckInterval = 1 << 12

	notAvailable = "N/A"
)

// LedgerConfig tunes the audit ledger.
type LedgerConfig struct {
	Difficulty       int
	ValidationWindow int
}

// ValidationReport is the outcome of a chain integrity check.
type ValidationReport struct {
	Reason            string
	Checked           int
	FirstInvalidIndex int64
	Valid             bool
}

// LedgerStats summarizes the chain for reporting.
type LedgerStats struct {
	LastBlockTimestamp *time.Time
	Decisions          map[string]int64
	LastBlockHash      string
	TotalBlocks        int64
	InvalidBlocks      int64
	LastBlockIndex     int64
	Difficulty         int
	Valid              bool
}

// Ledger is the single writer of the hash-chained audit log. Appends are
// serialized in-process; the store additionally rejects index collisions.
type Ledger struct {
	store      port.BlockStore
	lock       *syncutil.ContextMutex
	logger     *slog.Logger
	now        func() time.Time
	difficulty int
	window     int
}

// NewLedger creates a Ledger over store. Difficulty is clamped to
// [0, MaxDifficulty]; a non-positive window uses DefaultValidationWindow.
func NewLedger(store port.BlockStore, cfg LedgerConfig, logger *slog.Logger) *Ledger {
	difficulty := cfg.Difficulty
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > MaxDifficulty {
		difficulty = MaxDifficulty
	}
	window := cfg.ValidationWindow
	if window <= 0 {
		window = DefaultValidationWindow
	}

	return &Ledger{
		store:      store,
		lock:       syncutil.NewContextMutex(),
		logger:     logger,
		now:        time.Now,
		difficulty: difficulty,
		window:     window,
	}
}

// Difficulty returns the configured proof-of-work difficulty.
func (l *Ledger) Difficulty() int { return l.difficulty }

// Initialize returns the current tip, creating the genesis block when the
// store is empty.
func (l *Ledger) Initialize(ctx context.Context) (*model.Block, error) {
	unlock, err := l.lock.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ledger lock: %w", err)
	}
	defer unlock()

	return l.tipOrGenesis(ctx)
}

// Append seals a new block for the given transaction outcome and persists
// it. The payload is JSON-encoded; an encoding failure returns
// ErrSerialization without touching the chain.
func (l *Ledger) Append(
	ctx context.Context,
	transactionID string,
	payload interface{},
	decision string,
	riskScore decimal.Decimal,
	reasons string,
) (*model.Block, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s: %v", ErrSerialization, transactionID, err)
	}

	unlock, err := l.lock.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ledger lock: %w", err)
	}
	defer unlock()

	tip, err := l.tipOrGenesis(ctx)
	if err != nil {
		return nil, err
	}

	block := model.NewCandidateBlock(
		tip.Index(), tip.Hash(), transactionID, string(encoded),
		decision, riskScore, reasons, l.now(),
	)

	started := time.Now()
	nonce, hash, err := mine(ctx, block, l.difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to mine block %d: %w", block.Index(), err)
	}
	block.Seal(nonce, hash)

	if err := l.store.Append(ctx, block); err != nil {
		return nil, fmt.Errorf("failed to persist block %d: %w", block.Index(), err)
	}

	l.logger.Info("block sealed",
		slog.Int64("index", block.Index()),
		slog.String("hash", block.Hash()),
		slog.Int64("nonce", nonce),
		slog.String("transaction_id", transactionID),
		slog.Duration("mining_time", time.Since(started)),
	)

	return block, nil
}

// tipOrGenesis must be called with the ledger lock held.
func (l *Ledger) tipOrGenesis(ctx context.Context) (*model.Block, error) {
	tip, err := l.store.GetTip(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger tip: %w", err)
	}
	if tip != nil {
		return tip, nil
	}

	genesis := model.NewGenesisBlock(l.now())
	if err := l.store.Append(ctx, genesis); err != nil {
		return nil, fmt.Errorf("failed to persist genesis block: %w", err)
	}
	l.logger.Info("genesis block created", slog.String("hash", genesis.Hash()))
	return genesis, nil
}

// mine searches nonces from zero until the block hash meets difficulty.
func mine(ctx context.Context, block *model.Block, difficulty int) (int64, string, error) {
	for nonce := int64(0); ; nonce++ {
		if nonce%miningCheckInterval == 0 && nonce > 0 {
			if err := ctx.Err(); err != nil {
				return 0, "", err
			}
		}
		hash := block.HashWithNonce(nonce)
		if model.MeetsDifficulty(hash, difficulty) {
			return nonce, hash, nil
		}
	}
}

// Validate checks the newest window blocks (the configured default when
// window <= 0). Every block's hash and validator tag are recomputed and
// every adjacent pair's linkage is compared. The first failing block is
// flagged invalid in the store. Reasons are not part of the hash, so
// editing them alone is not detected.
func (l *Ledger) Validate(ctx context.Context, window int) (ValidationReport, error) {
	if window <= 0 {
		window = l.window
	}

	blocks, err := l.store.RecentWindow(ctx, window)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("failed to load validation window: %w", err)
	}
	slices.Reverse(blocks)

	report := ValidationReport{Valid: true, FirstInvalidIndex: -1, Checked: len(blocks)}

	for i, b := range blocks {
		reason := ""
		switch {
		case b.ComputeHash() != b.Hash():
			reason = "stored hash does not match block contents"
		case b.IsGenesis() && b.ValidatorTag() != model.GenesisValidator,
			!b.IsGenesis() && b.ValidatorTag() != model.ValidatorTag(b.Index(), b.Hash()):
			reason = "validator tag does not match block"
		case i > 0 && b.PreviousHash() != blocks[i-1].Hash():
			reason = "previous hash does not match predecessor"
		case i > 0 && b.Index() != blocks[i-1].Index()+1:
			reason = "block index is not contiguous"
		}
		if reason == "" {
			continue
		}

		report.Valid = false
		report.FirstInvalidIndex = b.Index()
		report.Reason = reason

		l.logger.Error("ledger integrity violation",
			slog.Int64("index", b.Index()),
			slog.String("reason", reason),
		)
		if err := l.store.MarkInvalid(ctx, b.Index()); err != nil {
			l.logger.Error("failed to flag invalid block",
				slog.Int64("index", b.Index()),
				slog.String("error", err.Error()),
			)
		}
		break
	}

	return report, nil
}

// History returns every block sealing the given transaction.
func (l *Ledger) History(ctx context.Context, transactionID string) ([]*model.Block, error) {
	blocks, err := l.store.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger history: %w", err)
	}
	return blocks, nil
}

// HighRiskBlocks returns blocks with risk score >= minScore, newest first.
func (l *Ledger) HighRiskBlocks(ctx context.Context, minScore decimal.Decimal, limit int) ([]*model.Block, error) {
	blocks, err := l.store.FindAboveRiskScore(ctx, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load high risk blocks: %w", err)
	}
	return blocks, nil
}

// Stats aggregates chain counters together with a fresh validation run.
func (l *Ledger) Stats(ctx context.Context) (LedgerStats, error) {
	stats := LedgerStats{
		Decisions:     make(map[string]int64),
		LastBlockHash: notAvailable,
		Difficulty:    l.difficulty,
	}

	var err error
	if stats.TotalBlocks, err = l.store.Count(ctx); err != nil {
		return LedgerStats{}, fmt.Errorf("failed to count blocks: %w", err)
	}
	if stats.InvalidBlocks, err = l.store.CountInvalid(ctx); err != nil {
		return LedgerStats{}, fmt.Errorf("failed to count invalid blocks: %w", err)
	}

	for _, status := range []valueobject.ProcessingStatus{
		valueobject.StatusApproved,
		valueobject.StatusUnderReview,
		valueobject.StatusDeclined,
	} {
		n, err := l.store.CountByDecision(ctx, status.String())
		if err != nil {
			return LedgerStats{}, fmt.Errorf("failed to count %s blocks: %w", status, err)
		}
		stats.Decisions[status.String()] = n
	}

	tip, err := l.store.GetTip(ctx)
	if err != nil {
		return LedgerStats{}, fmt.Errorf("failed to read ledger tip: %w", err)
	}
	if tip != nil {
		ts := tip.Timestamp()
		stats.LastBlockIndex = tip.Index()
		stats.LastBlockHash = tip.Hash()
		stats.LastBlockTimestamp = &ts
	}

	report, err := l.Validate(ctx, 0)
	if err != nil {
		return LedgerStats{}, err
	}
	stats.Valid = report.Valid

	return stats, nil
}
