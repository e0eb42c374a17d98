package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// GenesisPreviousHash links the genesis block to nothing.
	GenesisPreviousHash = "0"
	// GenesisTransactionID marks the genesis block in transaction lookups.
	GenesisTransactionID = "GENESIS"
	// GenesisPayload is the fixed payload of the genesis block.
	GenesisPayload = "Genesis Block - Fraud Detection System Initialized"
	// GenesisReasons is the fixed reason text of the genesis block.
	GenesisReasons = "System Initialization"
	// GenesisValidator is the validator tag of the genesis block.
	GenesisValidator = "SYSTEM"
	// GenesisDecision is the decision label of the genesis block.
	GenesisDecision = "APPROVED"

	validatorPrefix = "VALIDATOR_"
)

// Block is one sealed audit record in the ledger's hash chain. Once
// persisted only its validity flag may change.
type Block struct {
	timestamp     time.Time
	riskScore     decimal.Decimal
	payload       string
	previousHash  string
	hash          string
	decision      string
	transactionID string
	reasons       string
	validatorTag  string
	index         int64
	nonce         int64
	valid         bool
}

// BlockRecord is the flat, persisted form of a Block.
type BlockRecord struct {
	Timestamp     time.Time
	RiskScore     decimal.Decimal
	Payload       string
	PreviousHash  string
	Hash          string
	Decision      string
	TransactionID string
	Reasons       string
	ValidatorTag  string
	Index         int64
	Nonce         int64
	Valid         bool
}

// NewGenesisBlock creates the sealed first block of a chain. Genesis is
// never mined.
func NewGenesisBlock(now time.Time) *Block {
	b := &Block{
		index:         0,
		timestamp:     normalizeBlockTime(now),
		payload:       GenesisPayload,
		previousHash:  GenesisPreviousHash,
		transactionID: GenesisTransactionID,
		decision:      GenesisDecision,
		riskScore:     decimal.Zero,
		reasons:       GenesisReasons,
		valid:         true,
	}
	b.hash = b.ComputeHash()
	b.validatorTag = GenesisValidator
	return b
}

// NewCandidateBlock creates an unsealed block that extends a chain whose
// tip has the given index and hash.
func NewCandidateBlock(
	tipIndex int64,
	tipHash string,
	transactionID string,
	payload string,
	decision string,
	riskScore decimal.Decimal,
	reasons string,
	now time.Time,
) *Block {
	return &Block{
		index:         tipIndex + 1,
		timestamp:     normalizeBlockTime(now),
		payload:       payload,
		previousHash:  tipHash,
		transactionID: transactionID,
		decision:      decision,
		riskScore:     riskScore,
		reasons:       reasons,
		valid:         true,
	}
}

// ReconstructBlock rebuilds a Block from persisted data (no validation).
func ReconstructBlock(r BlockRecord) *Block {
	return &Block{
		index:         r.Index,
		timestamp:     r.Timestamp.UTC(),
		payload:       r.Payload,
		previousHash:  r.PreviousHash,
		hash:          r.Hash,
		nonce:         r.Nonce,
		decision:      r.Decision,
		transactionID: r.TransactionID,
		riskScore:     r.RiskScore,
		reasons:       r.Reasons,
		validatorTag:  r.ValidatorTag,
		valid:         r.Valid,
	}
}

// Record returns the flat form of b.
func (b *Block) Record() BlockRecord {
	return BlockRecord{
		Index:         b.index,
		Timestamp:     b.timestamp,
		Payload:       b.payload,
		PreviousHash:  b.previousHash,
		Hash:          b.hash,
		Nonce:         b.nonce,
		Decision:      b.decision,
		TransactionID: b.transactionID,
		RiskScore:     b.riskScore,
		Reasons:       b.reasons,
		ValidatorTag:  b.validatorTag,
		Valid:         b.valid,
	}
}

// HashWithNonce returns the SHA-256 hex digest of the block's hashed fields
// using the given nonce.
func (b *Block) HashWithNonce(nonce int64) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(b.index, 10))
	sb.WriteString(b.timestamp.Format(time.RFC3339Nano))
	sb.WriteString(b.payload)
	sb.WriteString(b.previousHash)
	sb.WriteString(strconv.FormatInt(nonce, 10))
	sb.WriteString(b.decision)
	sb.WriteString(b.transactionID)
	sb.WriteString(b.riskScore.StringFixed(2))

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// ComputeHash recomputes the digest from the stored fields and nonce.
func (b *Block) ComputeHash() string {
	return b.HashWithNonce(b.nonce)
}

// Seal fixes the mined nonce and hash and derives the validator tag.
func (b *Block) Seal(nonce int64, hash string) {
	b.nonce = nonce
	b.hash = hash
	b.validatorTag = ValidatorTag(b.index, hash)
}

// IsSealed reports whether the stored hash matches the stored fields.
func (b *Block) IsSealed() bool {
	return b.hash != "" && b.hash == b.ComputeHash()
}

// ValidatorTag derives the opaque, non-cryptographic audit tag of a block.
func ValidatorTag(index int64, hash string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(index, 10) + hash))
	return fmt.Sprintf("%s%d", validatorPrefix, h.Sum32())
}

// MeetsDifficulty reports whether the first difficulty hex characters of
// hash are all '0'. Any hash meets difficulty zero.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}

// normalizeBlockTime truncates to the precision a timestamptz column keeps,
// so that hashes recompute identically after a database round trip.
func normalizeBlockTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// --- Accessors ---

func (b *Block) Index() int64               { return b.index }
func (b *Block) Timestamp() time.Time       { return b.timestamp }
func (b *Block) Payload() string            { return b.payload }
func (b *Block) PreviousHash() string       { return b.previousHash }
func (b *Block) Hash() string               { return b.hash }
func (b *Block) Nonce() int64               { return b.nonce }
func (b *Block) Decision() string           { return b.decision }
func (b *Block) TransactionID() string      { return b.transactionID }
func (b *Block) RiskScore() decimal.Decimal { return b.riskScore }
func (b *Block) Reasons() string            { return b.reasons }
func (b *Block) ValidatorTag() string       { return b.validatorTag }
func (b *Block) IsValid() bool              { return b.valid }
func (b *Block) IsGenesis() bool            { return b.index == 0 }
