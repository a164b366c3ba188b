package fund

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sim.com/pkg/kafka"
	"sim.com/pkg/store"
	"sim.com/pkg/store/storetest"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var at = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func sampleLogs() []*FundLog {
	return []*FundLog{
		{ID: 1, UserID: 1, Amount: d("10000"), OperateType: OperateAdjust, CreatedAt: at},
		NewInvestLog(2, 1, d("2500"), "FD1", at),
		{ID: 3, UserID: 2, Amount: d("500"), OperateType: OperateAdjust, CreatedAt: at},
		{ID: 4, UserID: 1, Amount: d("-100.5"), OperateType: OperateWithdraw, CreatedAt: at},
	}
}

func TestNewInvestLog(t *testing.T) {
	l := NewInvestLog(9, 7, d("-300"), "FD123", at)
	assert.True(t, l.Amount.Equal(d("-300")))
	assert.Equal(t, OperateInvest, l.OperateType)
	assert.Contains(t, l.Remark, "FD123")
	assert.True(t, l.OperateType.Valid())
	assert.False(t, OperateType("bonus").Valid())
}

func TestNewCreditLog(t *testing.T) {
	l := NewCreditLog(9, 7, d("-1030.5"), "基金结算 FD123", at)
	assert.True(t, l.Amount.Equal(d("1030.5")))
	assert.Equal(t, OperateAdjust, l.OperateType)
	assert.Equal(t, int64(7), l.OperatorID)
	assert.True(t, BalanceOf(7, []*FundLog{NewInvestLog(8, 7, d("1000"), "FD123", at), l}).Equal(d("30.5")))
}

func TestFold(t *testing.T) {
	balances := Fold(sampleLogs())
	assert.True(t, balances[1].Equal(d("7399.5")))
	assert.True(t, balances[2].Equal(d("500")))
	assert.True(t, BalanceOf(1, sampleLogs()).Equal(d("7399.5")))
	assert.True(t, BalanceOf(3, sampleLogs()).IsZero())
}

func TestDrift(t *testing.T) {
	stored := map[int64]decimal.Decimal{
		1: d("7399.50"), // 一致
		2: d("800"),     // 被覆盖过
		3: d("50"),      // 没有流水
	}
	got := Drift(stored, sampleLogs())
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].UserID)
	assert.True(t, got[0].Drift.Equal(d("300")))
	assert.Equal(t, int64(3), got[1].UserID)
	assert.True(t, got[1].Folded.IsZero())
}

type captureSender struct {
	msgs []kafka.Message
}

func (c *captureSender) Send(_ context.Context, msg kafka.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

type other struct{}

func (other) TableName() string { return "others" }

func TestJournalPublisher(t *testing.T) {
	sender := &captureSender{}
	pub := NewJournalPublisher(sender)
	l := NewInvestLog(5, 42, d("100"), "FD9", at)

	require.NoError(t, pub.Publish(context.Background(), l))
	require.Len(t, sender.msgs, 1)
	assert.Equal(t, TopicFundLogEvents, sender.msgs[0].Topic())
	assert.Equal(t, "42", sender.msgs[0].Key())

	assert.Error(t, pub.Publish(context.Background(), other{}))
}

func TestPublishingStoreToProjector(t *testing.T) {
	// 写入 → 发布 → 投影 的整条链路 (Kafka 用内存转发代替)
	proj := NewProjector(nil)
	forward := store.SinkFunc(func(ctx context.Context, rec store.Record) error {
		data, err := rec.(*FundLog).Value()
		if err != nil {
			return err
		}
		return proj.Handle(ctx, nil, data)
	})
	s := store.NewPublishing(storetest.New(t, &FundLog{}), map[string]store.Sink{"fund_logs": forward}, nil)

	ctx := context.Background()
	for _, l := range sampleLogs() {
		require.NoError(t, s.Insert(ctx, l))
	}
	assert.True(t, proj.Balance(1).Equal(d("7399.5")))
	assert.True(t, proj.Balance(2).Equal(d("500")))
	assert.Equal(t, int64(4), proj.Stats().Applied)
}

func TestProjector_Idempotent(t *testing.T) {
	proj := NewProjector(nil)
	l := NewInvestLog(1, 1, d("100"), "FD1", at)
	data, err := json.Marshal(l)
	require.NoError(t, err)

	require.NoError(t, proj.Handle(context.Background(), nil, data))
	require.NoError(t, proj.Handle(context.Background(), nil, data))
	assert.True(t, proj.Balance(1).Equal(d("-100")))
	assert.Equal(t, int64(1), proj.Stats().Duplicates)

	assert.Error(t, proj.Handle(context.Background(), nil, []byte("{")))
	assert.Equal(t, int64(1), proj.Stats().Rejected)

	snap := proj.Snapshot()
	snap[1] = d("0")
	assert.True(t, proj.Balance(1).Equal(d("-100")))
}
