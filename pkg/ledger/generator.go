// 文件: pkg/ledger/generator.go
// 合成历史账本生成器
//
// 按天 → 按用户顺序推进，每个用户每天做五次独立试验:
// 基金 50% / 期权 30% / 合约 20% / 通知 40% / 余额覆盖 20%。
// 所有随机抽样都在主循环里顺序完成，写入交给协程池并发执行，
// 因此同一个种子总能得到同样的订单序列。
//
// 合成数据不走准入闸门: 所有用户对所有产品都可交易。
// 单条写入失败只记日志并跳过; 配置错误在写入前直接返回。

package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sim.com/pkg/account"
	"sim.com/pkg/fund"
	"sim.com/pkg/notify"
	"sim.com/pkg/order"
	"sim.com/pkg/outcome"
	"sim.com/pkg/product"
	"sim.com/pkg/store"
)

const secondsPerDay = 24 * 60 * 60

type Generator struct {
	store  store.Store
	ids    *order.IDGen
	cfg    Config
	guard  order.Guard
	logger *zap.Logger
}

type Option func(*Generator)

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithGuard 跨运行订单号去重 (例如 order.RedisGuard)
func WithGuard(guard order.Guard) Option {
	return func(g *Generator) { g.guard = guard }
}

func NewGenerator(s store.Store, ids *order.IDGen, cfg Config, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil || ids == nil {
		return nil, fmt.Errorf("%w: store and id generator are required", ErrConfiguration)
	}
	g := &Generator{store: s, ids: ids, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("ledger")
	return g, nil
}

// plan 一次成功试验要写入的内容
type plan struct {
	day     int
	userID  int64
	order   *order.Order
	log     *fund.FundLog
	notice  *notify.Notification
	balance *decimal.Decimal
}

// GenerateHistory 为名册里每个用户生成 [dr.Start, dr.End] 的历史数据
func (g *Generator) GenerateHistory(ctx context.Context, roster []*account.User, catalog []*product.Product, dr DateRange, seed int64) (*Report, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("%w: roster is empty", ErrConfiguration)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrConfiguration)
	}
	days, err := dr.Days()
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(g.cfg.Workers, ants.WithPanicHandler(func(p any) {
		g.logger.Error("write task panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: create pool: %w", ErrConfiguration, err)
	}
	defer pool.Release()

	runID := uuid.NewString()
	started := time.Now()
	log := g.logger.With(zap.String("run_id", runID), zap.Int64("seed", seed))
	log.Info("generation started",
		zap.Int("users", len(roster)),
		zap.Int("products", len(catalog)),
		zap.String("from", days[0].Format(time.DateOnly)),
		zap.String("to", days[len(days)-1].Format(time.DateOnly)))

	t := newTally(runID, seed, days)
	rng := rand.New(rand.NewSource(seed))
	run := &run{
		Generator: g,
		rng:       rng,
		numbers:   order.NewNumberGenerator(rng, g.guard),
		families:  product.ByFamily(catalog),
		tally:     t,
		log:       log,
	}

	var wg sync.WaitGroup
	var fatal error
loop:
	for i, day := range days {
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}
		for _, u := range roster {
			plans, err := run.planDay(ctx, i, day, u)
			if err != nil {
				fatal = err
				break loop
			}
			for _, p := range plans {
				p := p
				wg.Add(1)
				task := func() {
					defer wg.Done()
					run.apply(ctx, p)
				}
				if err := pool.Submit(task); err != nil {
					// 池已关闭等异常情况，退化为同步写
					task()
				}
			}
		}
		log.Debug("day planned", zap.String("day", day.Format(time.DateOnly)))
	}
	wg.Wait()

	rep := t.snapshot()
	rep.Elapsed = time.Since(started)
	log.Info("generation finished",
		zap.Int("orders", rep.OrdersWritten),
		zap.Int("notifications", rep.NotificationsWritten),
		zap.Int("fund_logs", rep.FundLogsWritten),
		zap.Int("balance_updates", rep.BalanceUpdates),
		zap.Int("skipped", rep.Skipped),
		zap.Int("days", rep.DaysCovered),
		zap.Duration("elapsed", rep.Elapsed))

	if fatal != nil {
		log.Error("generation aborted", zap.Error(fatal))
		return rep, fatal
	}
	return rep, nil
}

// =============================================================================
// 单次运行状态
// =============================================================================

type run struct {
	*Generator
	rng      *rand.Rand
	numbers  *order.NumberGenerator
	families map[product.Family][]*product.Product
	tally    *tally
	log      *zap.Logger
}

// planDay 顺序执行一个用户当天的五次试验; 只有订单号冲突会返回错误
func (r *run) planDay(ctx context.Context, dayIdx int, day time.Time, u *account.User) ([]plan, error) {
	var plans []plan

	if outcome.Bernoulli(r.rng, r.cfg.FundProbability) {
		p, err := r.planFund(ctx, day, u)
		if err != nil {
			return nil, err
		}
		plans = appendPlan(plans, p, dayIdx, u.ID)
	}
	if outcome.Bernoulli(r.rng, r.cfg.OptionProbability) {
		p, err := r.planOption(ctx, day, u)
		if err != nil {
			return nil, err
		}
		plans = appendPlan(plans, p, dayIdx, u.ID)
	}
	if outcome.Bernoulli(r.rng, r.cfg.ContractProbability) {
		p, err := r.planContract(ctx, day, u)
		if err != nil {
			return nil, err
		}
		plans = appendPlan(plans, p, dayIdx, u.ID)
	}
	if outcome.Bernoulli(r.rng, r.cfg.NotificationProbability) {
		n := notify.FromTemplate(r.ids.Next(), u.ID, r.rng.Intn(notify.Templates()), r.at(day))
		plans = append(plans, plan{day: dayIdx, userID: u.ID, notice: n})
	}
	if outcome.Bernoulli(r.rng, r.cfg.BalanceProbability) {
		v := r.cfg.Balance.Draw(r.rng)
		plans = append(plans, plan{day: dayIdx, userID: u.ID, balance: &v})
	}
	return plans, nil
}

func appendPlan(plans []plan, p *plan, day int, userID int64) []plan {
	if p == nil {
		return plans
	}
	p.day = day
	p.userID = userID
	return append(plans, *p)
}

// at 当天内的随机时刻
func (r *run) at(day time.Time) time.Time {
	return day.Add(time.Duration(r.rng.Intn(secondsPerDay)) * time.Second)
}

func (r *run) pick(f product.Family) *product.Product {
	list := r.families[f]
	if len(list) == 0 {
		return nil
	}
	return list[r.rng.Intn(len(list))]
}

// 计算器拒绝的输入 (目录数据异常) 记一次跳过
func (r *run) rejected(family product.Family, prod *product.Product, userID int64, err error) {
	r.tally.add(0, kindSkipped)
	r.log.Warn("outcome rejected",
		zap.String("family", string(family)),
		zap.String("product", prod.Code),
		zap.Int64("user_id", userID),
		zap.Error(err))
}

func (r *run) planFund(ctx context.Context, day time.Time, u *account.User) (*plan, error) {
	prod := r.pick(product.FamilyFund)
	if prod == nil {
		return nil, nil
	}
	principal := r.cfg.FundPrincipal.Draw(r.rng)
	holding := r.cfg.FundHoldingDays.Draw(r.rng)
	opened := r.at(day)

	res, err := outcome.Fund(outcome.FundRequest{
		Principal:              principal,
		YieldRateAnnualPercent: prod.YieldRateAnnualPercent,
		HoldingDays:            holding,
		OpenedAt:               opened,
	})
	if err != nil {
		r.rejected(product.FamilyFund, prod, u.ID, err)
		return nil, nil
	}
	no, err := r.numbers.Next(ctx, product.FamilyFund, opened)
	if err != nil {
		return nil, err
	}

	settle := res.SettleAt
	o := &order.Order{
		ID:          r.ids.Next(),
		OrderNo:     no,
		UserID:      u.ID,
		ProductID:   prod.ID,
		Family:      prod.Family,
		Principal:   principal,
		OpenedAt:    opened,
		HoldingDays: holding,
		SettleAt:    &settle,
		YieldAmount: decimal.NewNullDecimal(res.YieldAmount),
	}
	o.Settle(res.YieldAmount, settle, order.StatusSettled)

	return &plan{
		order: o,
		log:   fund.NewInvestLog(r.ids.Next(), u.ID, principal, no, opened),
	}, nil
}

func (r *run) planOption(ctx context.Context, day time.Time, u *account.User) (*plan, error) {
	prod := r.pick(product.FamilyOption)
	if prod == nil {
		return nil, nil
	}
	principal := r.cfg.OptionPrincipal.Draw(r.rng)
	opened := r.at(day)

	res, err := outcome.Option(outcome.OptionRequest{
		Principal:        principal,
		BaseYieldPercent: prod.BaseYieldPercent,
		OpenedAt:         opened,
		WinProbability:   outcome.Prob(r.cfg.OptionWinProbability),
	}, r.rng)
	if err != nil {
		r.rejected(product.FamilyOption, prod, u.ID, err)
		return nil, nil
	}
	no, err := r.numbers.Next(ctx, product.FamilyOption, opened)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:               r.ids.Next(),
		OrderNo:          no,
		UserID:           u.ID,
		ProductID:        prod.ID,
		Family:           prod.Family,
		Principal:        principal,
		OpenedAt:         opened,
		PredictDirection: res.Direction,
		ProfitStatus:     res.Status,
	}
	o.Settle(res.Profit, res.EndAt, order.StatusSettled)
	return &plan{order: o}, nil
}

func (r *run) planContract(ctx context.Context, day time.Time, u *account.User) (*plan, error) {
	prod := r.pick(product.FamilyContract)
	if prod == nil {
		return nil, nil
	}
	price := r.cfg.ContractPrice.Draw(r.rng)
	qty := int64(r.cfg.ContractQuantity.Draw(r.rng))
	lever := leverRange(prod).Draw(r.rng)
	opened := r.at(day)

	res, err := outcome.Contract(outcome.ContractRequest{
		OrderPrice:        price,
		Quantity:          qty,
		Lever:             lever,
		OpenedAt:          opened,
		ProfitProbability: outcome.Prob(r.cfg.ContractProfitProbability),
		ProfitRange:       r.cfg.ContractProfit,
		LossRange:         r.cfg.ContractLoss,
	}, r.rng)
	if err != nil {
		r.rejected(product.FamilyContract, prod, u.ID, err)
		return nil, nil
	}
	no, err := r.numbers.Next(ctx, product.FamilyContract, opened)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:           r.ids.Next(),
		OrderNo:      no,
		UserID:       u.ID,
		ProductID:    prod.ID,
		Family:       prod.Family,
		Principal:    res.Notional,
		OpenedAt:     opened,
		OrderPrice:   price,
		Quantity:     qty,
		Lever:        lever,
		MarginAmount: res.MarginAmount,
		Direction:    res.Direction,
	}
	o.Settle(res.PnL, res.CloseAt, order.StatusClosed)
	return &plan{order: o}, nil
}

// leverRange 产品杠杆区间，截到 [1, 100]
func leverRange(p *product.Product) outcome.IntRange {
	lo, hi := p.LeverMin, p.LeverMax
	if lo < outcome.MinLever {
		lo = outcome.MinLever
	}
	if hi > outcome.MaxLever {
		hi = outcome.MaxLever
	}
	if hi < lo {
		return outcome.IntRange{Min: 1, Max: 10}
	}
	return outcome.IntRange{Min: lo, Max: hi}
}

// =============================================================================
// 写入 (在协程池中执行)
// =============================================================================

func (r *run) apply(ctx context.Context, p plan) {
	switch {
	case p.order != nil:
		if err := r.store.Insert(ctx, p.order); err != nil {
			r.skip(p, "order", p.order.OrderNo, err)
			return
		}
		r.tally.add(p.day, kindOrder)
		if p.log == nil {
			return
		}
		if err := r.store.Insert(ctx, p.log); err != nil {
			r.skip(p, "fund_log", p.order.OrderNo, err)
			return
		}
		r.tally.add(p.day, kindFundLog)

	case p.notice != nil:
		if err := r.store.Insert(ctx, p.notice); err != nil {
			r.skip(p, "notification", "", err)
			return
		}
		r.tally.add(p.day, kindNotification)

	case p.balance != nil:
		patch := store.Patch{"current_balance": *p.balance}
		if err := r.store.Update(ctx, account.User{}.TableName(), p.userID, patch); err != nil {
			r.skip(p, "balance", "", err)
			return
		}
		r.tally.add(p.day, kindBalance)
	}
}

func (r *run) skip(p plan, what, orderNo string, err error) {
	r.tally.add(p.day, kindSkipped)
	fields := []zap.Field{
		zap.String("record", what),
		zap.Int64("user_id", p.userID),
		zap.String("day", r.tally.rep.PerDay[p.day].Date),
		zap.Error(err),
	}
	if orderNo != "" {
		fields = append(fields, zap.String("order_no", orderNo))
	}
	if errors.Is(err, store.ErrDuplicate) {
		r.log.Warn("duplicate record skipped", fields...)
		return
	}
	r.log.Warn("write failed, record skipped", fields...)
}
