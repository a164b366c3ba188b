package ledger

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sim.com/pkg/account"
	"sim.com/pkg/fund"
	"sim.com/pkg/notify"
	"sim.com/pkg/order"
	"sim.com/pkg/outcome"
	"sim.com/pkg/product"
	"sim.com/pkg/store"
	"sim.com/pkg/store/storetest"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func roster(n int) []*account.User {
	users := make([]*account.User, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, &account.User{
			ID:          int64(i),
			Username:    "user" + string(rune('a'+i)),
			Role:        account.RoleMember,
			Permissions: account.AllowAll(),
			Limits:      account.LimitSet{MinTradeAmount: d("100"), SingleTradeMax: d("50000"), DailyTradeMax: d("100000")},
		})
	}
	return users
}

func fullCatalog() []*product.Product {
	return []*product.Product{
		{ID: 100, Code: "F001", Family: product.FamilyFund, YieldRateAnnualPercent: d("8")},
		{ID: 101, Code: "F002", Family: product.FamilyFund, YieldRateAnnualPercent: d("12.5")},
		{ID: 200, Code: "O001", Family: product.FamilyOption, BaseYieldPercent: d("85")},
		{ID: 300, Code: "C001", Family: product.FamilyContractSH, Market: product.MarketSH, LeverMin: 1, LeverMax: 20},
		{ID: 301, Code: "C002", Family: product.FamilyContractHK, Market: product.MarketHK, LeverMin: 5, LeverMax: 50},
		{ID: 400, Code: "B001", Family: product.FamilyBlock, MinAmount: d("500000")},
	}
}

func memStore(t *testing.T) *storetest.Store {
	return storetest.New(t, &account.User{}, &order.Order{}, &fund.FundLog{}, &notify.Notification{})
}

func seededStore(t *testing.T, users []*account.User) *storetest.Store {
	s := memStore(t)
	for _, u := range users {
		require.NoError(t, s.Insert(context.Background(), u))
	}
	return s
}

func newGen(t *testing.T, s store.Store, cfg Config, opts ...Option) *Generator {
	ids, err := order.NewIDGen(1)
	require.NoError(t, err)
	g, err := NewGenerator(s, ids, cfg, opts...)
	require.NoError(t, err)
	return g
}

func orderNos(t *testing.T, s store.Store) []string {
	var orders []*order.Order
	require.NoError(t, s.SelectAll(context.Background(), "orders", &orders, nil))
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.OrderNo)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// 配置错误
// =============================================================================

func TestGenerateHistory_ConfigurationErrors(t *testing.T) {
	s := memStore(t)
	g := newGen(t, s, DefaultConfig())
	ctx := context.Background()
	dr := DateRange{Start: day0, End: day0.AddDate(0, 0, 2)}

	_, err := g.GenerateHistory(ctx, nil, fullCatalog(), dr, 1)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = g.GenerateHistory(ctx, roster(1), nil, dr, 1)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = g.GenerateHistory(ctx, roster(1), fullCatalog(), DateRange{Start: day0, End: day0.AddDate(0, 0, -1)}, 1)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = g.GenerateHistory(ctx, roster(1), fullCatalog(), DateRange{Start: day0}, 1)
	assert.ErrorIs(t, err, ErrConfiguration)

	// 任何写入都没有发生
	assert.Zero(t, s.Count("orders"))
	assert.Zero(t, s.Count("notifications"))
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	ids, err := order.NewIDGen(1)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Workers = 0
	_, err = NewGenerator(memStore(t), ids, cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = DefaultConfig()
	cfg.FundProbability = 1.2
	_, err = NewGenerator(memStore(t), ids, cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = DefaultConfig()
	cfg.OptionWinProbability = math.NaN()
	_, err = NewGenerator(memStore(t), ids, cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = DefaultConfig()
	cfg.ContractProfitProbability = -0.1
	_, err = NewGenerator(memStore(t), ids, cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = DefaultConfig()
	cfg.ContractLoss = outcome.NewRange(500, 100)
	_, err = NewGenerator(memStore(t), ids, cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewGenerator(nil, ids, DefaultConfig())
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestDateRange(t *testing.T) {
	days, err := DateRange{Start: day0.Add(15 * time.Hour), End: day0.AddDate(0, 0, 2).Add(time.Hour)}.Days()
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, day0, days[0])
	assert.Equal(t, day0.AddDate(0, 0, 2), days[2])

	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	hr := HistoryRange(day0, now)
	days, err = hr.Days()
	require.NoError(t, err)
	assert.Len(t, days, 9)
	assert.Equal(t, time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC), days[8])

	// 同一天: 一天
	days, err = DateRange{Start: day0, End: day0}.Days()
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

// =============================================================================
// 确定性
// =============================================================================

func TestGenerateHistory_Deterministic(t *testing.T) {
	users := roster(5)
	dr := DateRange{Start: day0, End: day0.AddDate(0, 0, 9)}

	s1 := seededStore(t, users)
	r1, err := newGen(t, s1, DefaultConfig()).GenerateHistory(context.Background(), users, fullCatalog(), dr, 2024)
	require.NoError(t, err)

	s2 := seededStore(t, users)
	r2, err := newGen(t, s2, DefaultConfig()).GenerateHistory(context.Background(), users, fullCatalog(), dr, 2024)
	require.NoError(t, err)

	assert.Equal(t, r1.PerDay, r2.PerDay)
	assert.Equal(t, r1.OrdersWritten, r2.OrdersWritten)
	assert.Equal(t, r1.NotificationsWritten, r2.NotificationsWritten)
	assert.Equal(t, r1.BalanceUpdates, r2.BalanceUpdates)
	assert.Equal(t, orderNos(t, s1), orderNos(t, s2))
	assert.NotEqual(t, r1.RunID, r2.RunID)

	// 计数与库里一致
	assert.Equal(t, 10, r1.DaysCovered)
	assert.Equal(t, s1.Count("orders"), r1.OrdersWritten)
	assert.Equal(t, s1.Count("notifications"), r1.NotificationsWritten)
	assert.Equal(t, s1.Count("fund_logs"), r1.FundLogsWritten)
	assert.Zero(t, r1.Skipped)

	sumOrders, sumNotices := 0, 0
	for _, dc := range r1.PerDay {
		sumOrders += dc.Orders
		sumNotices += dc.Notifications
	}
	assert.Equal(t, r1.OrdersWritten, sumOrders)
	assert.Equal(t, r1.NotificationsWritten, sumNotices)

	// 50 个用户日，各类试验几乎不可能全部落空
	assert.Positive(t, r1.OrdersWritten)
	assert.Positive(t, r1.NotificationsWritten)

	r3, err := newGen(t, seededStore(t, users), DefaultConfig()).GenerateHistory(context.Background(), users, fullCatalog(), dr, 7)
	require.NoError(t, err)
	assert.NotEqual(t, r1.PerDay, r3.PerDay)
}

// =============================================================================
// 部分失败
// =============================================================================

func TestGenerateHistory_EveryFifthWriteFails(t *testing.T) {
	users := roster(4)
	s := seededStore(t, users)

	var attempts, failures atomic.Int64
	boom := errors.New("injected failure")
	s.SetInsertHook(func(rec store.Record) error {
		if attempts.Add(1)%5 == 0 {
			failures.Add(1)
			return boom
		}
		return nil
	})

	rep, err := newGen(t, s, DefaultConfig()).GenerateHistory(context.Background(), users, fullCatalog(),
		DateRange{Start: day0, End: day0.AddDate(0, 0, 13)}, 99)
	require.NoError(t, err)

	require.Positive(t, failures.Load())
	assert.Equal(t, s.Count("orders"), rep.OrdersWritten)
	assert.Equal(t, s.Count("notifications"), rep.NotificationsWritten)
	assert.Equal(t, s.Count("fund_logs"), rep.FundLogsWritten)
	assert.Equal(t, int(failures.Load()), rep.Skipped)
	assert.Equal(t, int(attempts.Load()-failures.Load()), rep.OrdersWritten+rep.NotificationsWritten+rep.FundLogsWritten)
}

// =============================================================================
// 端到端
// =============================================================================

func TestGenerateHistory_EndToEnd(t *testing.T) {
	u := &account.User{
		ID:          1,
		Username:    "solo",
		Role:        account.RoleMember,
		Permissions: &account.PermissionSet{Fund: true},
		Limits:      account.LimitSet{SingleTradeMax: d("5000"), DailyTradeMax: d("5000")},
	}
	catalog := []*product.Product{{ID: 1, Code: "F010", Family: product.FamilyFund, YieldRateAnnualPercent: d("10")}}
	s := seededStore(t, []*account.User{u})

	rep, err := newGen(t, s, DefaultConfig()).GenerateHistory(context.Background(), []*account.User{u}, catalog,
		DateRange{Start: day0, End: day0.AddDate(0, 0, 2)}, 5)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.DaysCovered)
	assert.GreaterOrEqual(t, rep.OrdersWritten, 0)
	assert.LessOrEqual(t, rep.OrdersWritten, 3)

	var orders []*order.Order
	require.NoError(t, s.SelectAll(context.Background(), "orders", &orders, nil))
	require.Len(t, orders, rep.OrdersWritten)

	var logs []*fund.FundLog
	require.NoError(t, s.SelectAll(context.Background(), "fund_logs", &logs, nil))
	require.Len(t, logs, len(orders))

	for _, o := range orders {
		assert.Equal(t, product.FamilyFund, o.Family)
		assert.Equal(t, order.StatusSettled, o.Status)
		assert.True(t, o.OpenedAt.Before(day0.AddDate(0, 0, 3)))

		want := o.Principal.Mul(d("10")).Mul(decimal.NewFromInt(int64(o.HoldingDays))).Div(d("36500")).Round(2)
		require.True(t, o.YieldAmount.Valid)
		assert.True(t, o.YieldAmount.Decimal.Equal(want), "yield %s want %s", o.YieldAmount.Decimal, want)

		require.True(t, o.ResultAmount.Valid)
		assert.True(t, o.ResultAmount.Decimal.GreaterThanOrEqual(o.Principal.Neg()))
		assert.GreaterOrEqual(t, o.HoldingDays, 30)
		assert.LessOrEqual(t, o.HoldingDays, 180)
		require.NotNil(t, o.SettleAt)
		assert.True(t, o.OpenedAt.AddDate(0, 0, o.HoldingDays).Equal(*o.SettleAt))
		assert.Regexp(t, `^FD\d+$`, o.OrderNo)
	}
	for _, l := range logs {
		assert.Equal(t, fund.OperateInvest, l.OperateType)
		assert.True(t, l.Amount.IsNegative())
	}
}

func TestGenerateHistory_ResultBounds(t *testing.T) {
	users := roster(3)
	s := seededStore(t, users)
	_, err := newGen(t, s, DefaultConfig()).GenerateHistory(context.Background(), users, fullCatalog(),
		DateRange{Start: day0, End: day0.AddDate(0, 0, 29)}, 11)
	require.NoError(t, err)

	var orders []*order.Order
	require.NoError(t, s.SelectAll(context.Background(), "orders", &orders, nil))
	require.NotEmpty(t, orders)
	for _, o := range orders {
		require.True(t, o.ResultAmount.Valid, o.OrderNo)
		assert.True(t, o.Status.Terminal())
		assert.True(t, o.ResultAmount.Decimal.GreaterThanOrEqual(o.Principal.Neg()), o.OrderNo)
		if o.Family.Base() == product.FamilyContract {
			assert.True(t, o.ResultAmount.Decimal.GreaterThanOrEqual(o.MarginAmount.Neg()))
			assert.GreaterOrEqual(t, o.Lever, 1)
			assert.LessOrEqual(t, o.Lever, 50)
		}
		assert.NotEqual(t, product.FamilyBlock, o.Family)
	}
}

func TestGenerateHistory_BalanceOverwrite(t *testing.T) {
	users := roster(2)
	s := seededStore(t, users)
	cfg := DefaultConfig()
	cfg.FundProbability, cfg.OptionProbability, cfg.ContractProbability, cfg.NotificationProbability = 0, 0, 0, 0
	cfg.BalanceProbability = 1

	rep, err := newGen(t, s, cfg).GenerateHistory(context.Background(), users, fullCatalog(),
		DateRange{Start: day0, End: day0}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.BalanceUpdates)
	assert.Zero(t, rep.OrdersWritten)

	var stored []*account.User
	require.NoError(t, s.SelectAll(context.Background(), "users", &stored, nil))
	for _, u := range stored {
		assert.True(t, u.CurrentBalance.GreaterThanOrEqual(d("10000")))
		assert.True(t, u.CurrentBalance.LessThanOrEqual(d("1000000")))
	}

	// 用户不在库里: 更新失败被跳过
	ghost := roster(3)[2:]
	rep, err = newGen(t, s, cfg).GenerateHistory(context.Background(), ghost, fullCatalog(),
		DateRange{Start: day0, End: day0}, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Skipped)
}

// claimNothing 所有订单号都视为已被占用
type claimNothing struct{}

func (claimNothing) Claim(context.Context, string) (bool, error) { return false, nil }

func TestGenerateHistory_DuplicateOrderNoIsFatal(t *testing.T) {
	users := roster(1)
	cfg := DefaultConfig()
	cfg.FundProbability = 1

	rep, err := newGen(t, seededStore(t, users), cfg, WithGuard(claimNothing{})).GenerateHistory(
		context.Background(), users, fullCatalog(), DateRange{Start: day0, End: day0.AddDate(0, 0, 5)}, 1)
	assert.ErrorIs(t, err, order.ErrDuplicateOrderNo)
	require.NotNil(t, rep)
	assert.Zero(t, rep.OrdersWritten)
}

func TestGenerateHistory_CancelledContext(t *testing.T) {
	users := roster(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newGen(t, seededStore(t, users), DefaultConfig()).GenerateHistory(ctx, users, fullCatalog(),
		DateRange{Start: day0, End: day0}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
