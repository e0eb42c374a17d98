package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

const keyPrefix = "fraudledger:"

const (
	// ClaimTTL is how long a Reserve claim outlives its request. Recorded
	// ids are caught by the tx:<id> key once the claim expires.
	ClaimTTL = 10 * time.Minute

	// amountScale is the number of decimal places kept in the running sum.
	amountScale = 4
)

// TransactionHistory keeps scoring history in Redis:
//
//	claim:<id>                       Reserve marker, SET NX with ClaimTTL
//	tx:<id>                          JSON snapshot, written with SETNX
//	subject:<id>:tx                  sorted set of transaction ids by epoch ms
//	subject:<id>:merchant:<name>     same, per merchant
//	subject:<id>:agg                 hash of sum_units (amount * 10^4) and count
//	stats:total, stats:fraudulent    global counters
//
// Window queries therefore have millisecond resolution.
type TransactionHistory struct {
	client *goredis.Client
}

// NewTransactionHistory creates a history over client.
func NewTransactionHistory(client *goredis.Client) *TransactionHistory {
	return &TransactionHistory{client: client}
}

// NewClient opens a client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func claimKey(id string) string            { return keyPrefix + "claim:" + id }
func txKey(id string) string               { return keyPrefix + "tx:" + id }
func subjectKey(subject string) string     { return keyPrefix + "subject:" + subject + ":tx" }
func aggregateKey(subject string) string   { return keyPrefix + "subject:" + subject + ":agg" }
func merchantKey(subject, m string) string { return keyPrefix + "subject:" + subject + ":merchant:" + m }

var (
	statsTotalKey      = keyPrefix + "stats:total"
	statsFraudulentKey = keyPrefix + "stats:fraudulent"
)

func (h *TransactionHistory) Exists(ctx context.Context, transactionID string) (bool, error) {
	n, err := h.client.Exists(ctx, txKey(transactionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Reserve sets the claim key first and only then checks for a recorded
// transaction, so two requests can never both pass.
func (h *TransactionHistory) Reserve(ctx context.Context, transactionID string) (bool, error) {
	claimed, err := h.client.SetNX(ctx, claimKey(transactionID), "1", ClaimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim: %w", err)
	}
	if !claimed {
		return false, nil
	}

	recorded, err := h.Exists(ctx, transactionID)
	if err != nil {
		return false, err
	}
	return !recorded, nil
}

func (h *TransactionHistory) Release(ctx context.Context, transactionID string) error {
	if err := h.client.Del(ctx, claimKey(transactionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (h *TransactionHistory) AverageAmount(ctx context.Context, subjectID string) (decimal.Decimal, error) {
	vals, err := h.client.HMGet(ctx, aggregateKey(subjectID), "sum_units", "count").Result()
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis hmget: %w", err)
	}

	count := parseInt(vals[1])
	if count == 0 {
		return decimal.Zero, nil
	}
	units, err := strconv.ParseInt(asString(vals[0]), 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt amount sum for subject %s: %w", subjectID, err)
	}
	return decimal.New(units, -amountScale).DivRound(decimal.NewFromInt(count), 2), nil
}

func (h *TransactionHistory) CountInWindow(ctx context.Context, subjectID string, from, to time.Time) (int64, error) {
	return h.zcount(ctx, subjectKey(subjectID), from, to)
}

func (h *TransactionHistory) CountAtMerchant(ctx context.Context, subjectID, merchantName string, from, to time.Time) (int64, error) {
	return h.zcount(ctx, merchantKey(subjectID, merchantName), from, to)
}

// Record stores tx. The SETNX on the transaction key makes a second record
// for the same id fail with model.ErrConflict before any index is touched.
// The indexes are then written in one MULTI/EXEC; if that fails the
// transaction key is removed again so a retry is not taken for a duplicate.
func (h *TransactionHistory) Record(ctx context.Context, tx *model.Transaction) error {
	payload, err := json.Marshal(tx.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode transaction %s: %w", tx.ID(), err)
	}

	created, err := h.client.SetNX(ctx, txKey(tx.ID()), string(payload), 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: transaction %s already recorded", model.ErrConflict, tx.ID())
	}

	member := &goredis.Z{Score: float64(tx.Timestamp().UnixMilli()), Member: tx.ID()}
	units := tx.Amount().Shift(amountScale).Round(0).IntPart()

	_, err = h.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAdd(ctx, subjectKey(tx.SubjectID()), member)
		if strings.TrimSpace(tx.MerchantName()) != "" {
			pipe.ZAdd(ctx, merchantKey(tx.SubjectID(), tx.MerchantName()), member)
		}
		pipe.HIncrBy(ctx, aggregateKey(tx.SubjectID()), "sum_units", units)
		pipe.HIncrBy(ctx, aggregateKey(tx.SubjectID()), "count", 1)
		pipe.Incr(ctx, statsTotalKey)
		if tx.IsFraudulent() {
			pipe.Incr(ctx, statsFraudulentKey)
		}
		return nil
	})
	if err != nil {
		if delErr := h.client.Del(context.WithoutCancel(ctx), txKey(tx.ID())).Err(); delErr != nil {
			return fmt.Errorf("redis index transaction %s: %w (undo failed: %v)", tx.ID(), err, delErr)
		}
		return fmt.Errorf("redis index transaction %s: %w", tx.ID(), err)
	}
	return nil
}

func (h *TransactionHistory) FindBySubject(ctx context.Context, subjectID string, limit int) ([]*model.Transaction, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := h.client.ZRevRange(ctx, subjectKey(subjectID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = txKey(id)
	}
	vals, err := h.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	out := make([]*model.Transaction, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		tx, err := decodeTransaction(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt transaction %s: %w", ids[i], err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (h *TransactionHistory) Stats(ctx context.Context) (port.TransactionStats, error) {
	vals, err := h.client.MGet(ctx, statsTotalKey, statsFraudulentKey).Result()
	if err != nil {
		return port.TransactionStats{}, fmt.Errorf("redis mget: %w", err)
	}
	return port.TransactionStats{Total: parseInt(vals[0]), Fraudulent: parseInt(vals[1])}, nil
}

func (h *TransactionHistory) zcount(ctx context.Context, key string, from, to time.Time) (int64, error) {
	n, err := h.client.ZCount(ctx, key,
		strconv.FormatInt(from.UnixMilli(), 10),
		strconv.FormatInt(to.UnixMilli(), 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return n, nil
}

func decodeTransaction(raw string) (*model.Transaction, error) {
	var s model.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}

	level, _ := valueobject.RiskLevelFromString(s.CategoryRisk)
	status, err := valueobject.ProcessingStatusFromString(s.Status)
	if err != nil {
		return nil, err
	}

	return model.ReconstructTransaction(model.TransactionParams{
		ID:              s.TransactionID,
		SubjectID:       s.SubjectID,
		Amount:          s.Amount,
		CategoryCode:    s.CategoryCode,
		CategoryRisk:    level,
		MerchantName:    s.MerchantName,
		Location:        s.Location,
		PaymentMethod:   valueobject.PaymentMethodOrDefault(s.PaymentMethod),
		Timestamp:       s.Timestamp,
		PersonalAverage: s.PersonalAverage,
	}, s.Fraudulent, s.RiskScore, status), nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func parseInt(v interface{}) int64 {
	n, _ := strconv.ParseInt(asString(v), 10, 64)
	return n
}

var _ port.TransactionHistory = (*TransactionHistory)(nil)
