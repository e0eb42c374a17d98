package dto

import (
	"time"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/service"
)

// BlockResponse is the audit view of a ledger block.
type BlockResponse struct {
	Timestamp     time.Time `json:"timestamp"`
	Payload       string    `json:"payload"`
	PreviousHash  string    `json:"previous_hash"`
	Hash          string    `json:"hash"`
	Decision      string    `json:"decision"`
	TransactionID string    `json:"transaction_id"`
	RiskScore     string    `json:"risk_score"`
	Reasons       string    `json:"reasons"`
	ValidatorTag  string    `json:"validator_tag"`
	Index         int64     `json:"index"`
	Nonce         int64     `json:"nonce"`
	Valid         bool      `json:"valid"`
}

// FromBlock maps a domain block to the response DTO.
func FromBlock(b *model.Block) BlockResponse {
	return BlockResponse{
		Index:         b.Index(),
		Timestamp:     b.Timestamp(),
		Payload:       b.Payload(),
		PreviousHash:  b.PreviousHash(),
		Hash:          b.Hash(),
		Nonce:         b.Nonce(),
		Decision:      b.Decision(),
		TransactionID: b.TransactionID(),
		RiskScore:     b.RiskScore().StringFixed(2),
		Reasons:       b.Reasons(),
		ValidatorTag:  b.ValidatorTag(),
		Valid:         b.IsValid(),
	}
}

// FromBlocks maps a slice of blocks.
func FromBlocks(blocks []*model.Block) []BlockResponse {
	out := make([]BlockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, FromBlock(b))
	}
	return out
}

// ValidationResponse reports a chain integrity check.
type ValidationResponse struct {
	Reason            string `json:"reason,omitempty"`
	Checked           int    `json:"checked"`
	FirstInvalidIndex int64  `json:"first_invalid_index"`
	Valid             bool   `json:"valid"`
}

// FromValidationReport maps the ledger report to the response DTO.
func FromValidationReport(r service.ValidationReport) ValidationResponse {
	return ValidationResponse{
		Valid:             r.Valid,
		FirstInvalidIndex: r.FirstInvalidIndex,
		Checked:           r.Checked,
		Reason:            r.Reason,
	}
}

// LedgerStatsResponse summarizes the chain.
type LedgerStatsResponse struct {
	LastBlockTimestamp *time.Time       `json:"last_block_timestamp,omitempty"`
	Decisions          map[string]int64 `json:"decisions"`
	LastBlockHash      string           `json:"last_block_hash"`
	TotalBlocks        int64            `json:"total_blocks"`
	InvalidBlocks      int64            `json:"invalid_blocks"`
	LastBlockIndex     int64            `json:"last_block_index"`
	Difficulty         int              `json:"difficulty"`
	Valid              bool             `json:"valid"`
}

// FromLedgerStats maps ledger stats to the response DTO.
func FromLedgerStats(s service.LedgerStats) LedgerStatsResponse {
	return LedgerStatsResponse{
		TotalBlocks:        s.TotalBlocks,
		InvalidBlocks:      s.InvalidBlocks,
		Decisions:          s.Decisions,
		LastBlockIndex:     s.LastBlockIndex,
		LastBlockHash:      s.LastBlockHash,
		LastBlockTimestamp: s.LastBlockTimestamp,
		Difficulty:         s.Difficulty,
		Valid:              s.Valid,
	}
}
