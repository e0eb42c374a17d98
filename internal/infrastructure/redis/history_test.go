package redis_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
	"github.com/bibbank/fraudledger/internal/infrastructure/redis"
)

var at = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTx(t *testing.T, id, amount string, fraudulent bool) *model.Transaction {
	t.Helper()
	tx, err := model.NewTransaction(model.TransactionParams{
		ID:            id,
		SubjectID:     "user-42",
		Amount:        decimal.RequireFromString(amount),
		CategoryCode:  "5411",
		CategoryRisk:  valueobject.RiskLevelLow,
		MerchantName:  "Shop",
		PaymentMethod: valueobject.PaymentDebitCard,
		Timestamp:     at,
	})
	require.NoError(t, err)
	if fraudulent {
		tx.ApplyDecision(model.Decision{
			Fraudulent:     true,
			Confidence:     decimal.RequireFromString("0.7"),
			TriggeredRules: []string{"Amount Threshold Rule"},
		})
	}
	return tx
}

func payload(t *testing.T, tx *model.Transaction) string {
	t.Helper()
	b, err := json.Marshal(tx.Snapshot())
	require.NoError(t, err)
	return string(b)
}

func TestTransactionHistory_Exists(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)
	ctx := context.Background()

	mock.ExpectExists("fraudledger:tx:T1").SetVal(1)
	mock.ExpectExists("fraudledger:tx:T2").SetVal(0)

	ok, err := h.Exists(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Exists(ctx, "T2")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory_AverageAmount(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)
	ctx := context.Background()

	mock.ExpectHMGet("fraudledger:subject:user-42:agg", "sum_units", "count").
		SetVal([]interface{}{"6010000", "3"})
	mock.ExpectHMGet("fraudledger:subject:new-user:agg", "sum_units", "count").
		SetVal([]interface{}{nil, nil})

	avg, err := h.AverageAmount(ctx, "user-42")
	require.NoError(t, err)
	assert.Equal(t, "200.33", avg.String())

	avg, err = h.AverageAmount(ctx, "new-user")
	require.NoError(t, err)
	assert.True(t, avg.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory_Windows(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)
	ctx := context.Background()
	from := at.Add(-30 * time.Minute)

	mock.ExpectZCount("fraudledger:subject:user-42:tx", "1741951800000", "1741953600000").SetVal(4)
	mock.ExpectZCount("fraudledger:subject:user-42:merchant:Shop", "1741951800000", "1741953600000").SetVal(2)

	n, err := h.CountInWindow(ctx, "user-42", from, at)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = h.CountAtMerchant(ctx, "user-42", "Shop", from, at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory_Record(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)
	tx := newTx(t, "T1", "100.5", true)
	member := &goredis.Z{Score: float64(at.UnixMilli()), Member: "T1"}

	mock.ExpectSetNX("fraudledger:tx:T1", payload(t, tx), 0).SetVal(true)
	mock.ExpectTxPipeline()
	mock.ExpectZAdd("fraudledger:subject:user-42:tx", member).SetVal(1)
	mock.ExpectZAdd("fraudledger:subject:user-42:merchant:Shop", member).SetVal(1)
	mock.ExpectHIncrBy("fraudledger:subject:user-42:agg", "sum_units", 1005000).SetVal(1005000)
	mock.ExpectHIncrBy("fraudledger:subject:user-42:agg", "count", 1).SetVal(1)
	mock.ExpectIncr("fraudledger:stats:total").SetVal(1)
	mock.ExpectIncr("fraudledger:stats:fraudulent").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, h.Record(context.Background(), tx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory_RecordKeepsFixedPointSum(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)
	tx := newTx(t, "T1", "0.1003", false)
	member := &goredis.Z{Score: float64(at.UnixMilli()), Member: "T1"}

	mock.ExpectSetNX("fraudledger:tx:T1", payload(t, tx), 0).SetVal(true)
	mock.ExpectTxPipeline()
	mock.ExpectZAdd("fraudledger:subject:user-42:tx", member).SetVal(1)
	mock.ExpectZAdd("fraudledger:subject:user-42:merchant:Shop", member).SetVal(1)
	mock.ExpectHIncrBy("fraudledger:subject:user-42:agg", "sum_units", 1003).SetVal(1003)
	mock.ExpectHIncrBy("fraudledger:subject:user-42:agg", "count", 1).SetVal(1)
	mock.ExpectIncr("fraudledger:stats:total").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, h.Record(context.Background(), tx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory_RecordUndoesFailedIndexWrite(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)
	tx := newTx(t, "T1", "10", false)
	member := &goredis.Z{Score: float64(at.UnixMilli()), Member: "T1"}

	mock.ExpectSetNX("fraudledger:tx:T1", payload(t, tx), 0).SetVal(true)
	mock.ExpectTxPipeline()
	mock.ExpectZAdd("fraudledger:subject:user-42:tx", member).SetErr(errors.New("OOM command not allowed"))
	mock.ExpectDel("fraudledger:tx:T1").SetVal(1)

	err := h.Record(context.Background(), tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OOM")
	assert.NotErrorIs(t, err, model.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory_Reserve(t *testing.T) {
	tests := []struct {
		name     string
		claimed  bool
		recorded int64
		want     bool
	}{
		{name: "fresh id", claimed: true, recorded: 0, want: true},
		{name: "claimed by another request", claimed: false, want: false},
		{name: "already recorded", claimed: true, recorded: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			h := redis.NewTransactionHistory(db)

			mock.ExpectSetNX("fraudledger:claim:T1", "1", redis.ClaimTTL).SetVal(tt.claimed)
			if tt.claimed {
				mock.ExpectExists("fraudledger:tx:T1").SetVal(tt.recorded)
			}

			ok, err := h.Reserve(context.Background(), "T1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransactionHistory_Release(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)

	mock.ExpectDel("fraudledger:claim:T1").SetVal(1)

	require.NoError(t, h.Release(context.Background(), "T1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory_RecordDuplicate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)
	tx := newTx(t, "T1", "10", false)

	mock.ExpectSetNX("fraudledger:tx:T1", payload(t, tx), 0).SetVal(false)

	err := h.Record(context.Background(), tx)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory_RecordRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)
	tx := newTx(t, "T1", "10", false)

	mock.ExpectSetNX("fraudledger:tx:T1", payload(t, tx), 0).SetErr(errors.New("READONLY"))

	err := h.Record(context.Background(), tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
	assert.NotErrorIs(t, err, model.ErrConflict)
}

func TestTransactionHistory_FindBySubject(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)
	stored := newTx(t, "T2", "75.25", true)

	mock.ExpectZRevRange("fraudledger:subject:user-42:tx", 0, 1).SetVal([]string{"T2", "T1"})
	mock.ExpectMGet("fraudledger:tx:T2", "fraudledger:tx:T1").
		SetVal([]interface{}{payload(t, stored), nil})

	txs, err := h.FindBySubject(context.Background(), "user-42", 2)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	got := txs[0]
	assert.Equal(t, "T2", got.ID())
	assert.True(t, got.Amount().Equal(decimal.RequireFromString("75.25")))
	assert.True(t, got.IsFraudulent())
	assert.True(t, got.Status().Equal(valueobject.StatusUnderReview))
	assert.True(t, got.CategoryRisk().Equal(valueobject.RiskLevelLow))
	assert.True(t, got.PaymentMethod().Equal(valueobject.PaymentDebitCard))
	assert.True(t, got.Timestamp().Equal(at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory_Stats(t *testing.T) {
	db, mock := redismock.NewClientMock()
	h := redis.NewTransactionHistory(db)

	mock.ExpectMGet("fraudledger:stats:total", "fraudledger:stats:fraudulent").
		SetVal([]interface{}{"10", nil})

	stats, err := h.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(0), stats.Fraudulent)
	assert.NoError(t, mock.ExpectationsWereMet())
}
