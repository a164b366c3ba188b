// 文件: pkg/broker/engine.go
// 在线下单门面
//
// Engine 由宿主构造一次后显式传递，持有时钟、随机源、持久化层和闸门，
// 不存在包级单例。
// 同一用户的并发下单不在这里串行化，单日限额可能被两笔并发请求同时通过。

package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sim.com/pkg/account"
	"sim.com/pkg/catalog"
	"sim.com/pkg/fund"
	"sim.com/pkg/order"
	"sim.com/pkg/outcome"
	"sim.com/pkg/product"
	"sim.com/pkg/risk"
	"sim.com/pkg/store"
)

type Engine struct {
	now     func() time.Time
	store   store.Store
	orders  order.Repository
	catalog catalog.Provider
	ids     *order.IDGen
	numbers *order.NumberGenerator
	gate    *risk.Gate
	calc    *outcome.Calculator
	logger  *zap.Logger
}

type options struct {
	clock  func() time.Time
	rng    outcome.Rand
	guard  order.Guard
	params outcome.Params
	logger *zap.Logger
}

type Option func(*options)

// WithClock 注入时钟 (测试用固定时间)
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithRand 注入随机源; 在线服务需并发安全，见 outcome.LockedRand
func WithRand(rng outcome.Rand) Option {
	return func(o *options) { o.rng = rng }
}

func WithGuard(guard order.Guard) Option {
	return func(o *options) { o.guard = guard }
}

func WithParams(p outcome.Params) Option {
	return func(o *options) { o.params = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func NewEngine(s store.Store, cat catalog.Provider, ids *order.IDGen, opts ...Option) (*Engine, error) {
	if s == nil || cat == nil || ids == nil {
		return nil, errors.New("broker: store, catalog and id generator are required")
	}
	o := options{clock: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = outcome.NewLockedRand(o.clock().UnixNano())
	}
	return &Engine{
		now:     o.clock,
		store:   s,
		orders:  order.NewStoreRepository(s),
		catalog: cat,
		ids:     ids,
		numbers: order.NewNumberGenerator(o.rng, o.guard),
		gate:    risk.NewGate(o.clock),
		calc:    outcome.NewCalculator(o.rng, o.params),
		logger:  o.logger.Named("broker"),
	}, nil
}

// =============================================================================
// 请求
// =============================================================================

// OrderRequest 下单/预览请求，按产品类别读取对应字段
type OrderRequest struct {
	UserID    int64           `json:"user_id"`
	ProductID int64           `json:"product_id"`
	Amount    decimal.Decimal `json:"amount"` // 基金本金 / 期权权利金 / 大宗成交额 / IPO 申购额

	HoldingDays int `json:"holding_days,omitempty"` // 基金

	Direction  order.Direction `json:"direction,omitempty"` // 期权/合约
	OrderPrice decimal.Decimal `json:"order_price"`         // 合约
	Quantity   int64           `json:"quantity,omitempty"`
	Lever      int             `json:"lever,omitempty"`
}

// Placement 下单结果
type Placement struct {
	Order   *order.Order   `json:"order"`
	Outcome outcome.Result `json:"outcome"`
	FundLog *fund.FundLog  `json:"fund_log,omitempty"`
}

// admissionAmount 计入限额的金额: 合约按保证金，其余按申报金额
// 杠杆非法时退回名义价值，让闸门走到杠杆检查给出原因
func admissionAmount(p *product.Product, req OrderRequest) decimal.Decimal {
	if p.Family.Base() != product.FamilyContract {
		return req.Amount
	}
	margin, err := outcome.Margin(req.OrderPrice, req.Quantity, req.Lever)
	if err != nil {
		return req.OrderPrice.Mul(decimal.NewFromInt(req.Quantity))
	}
	return margin
}

func (e *Engine) resolve(ctx context.Context, req OrderRequest) (*account.User, *product.Product, error) {
	user, err := e.catalog.User(ctx, req.UserID)
	if err != nil {
		return nil, nil, err
	}
	prod, err := e.catalog.Product(ctx, req.ProductID)
	if err != nil {
		return nil, nil, err
	}
	return user, prod, nil
}

// =============================================================================
// 准入
// =============================================================================

// CanPlaceOrder 准入结论; 只有加载用户/产品/当日订单失败才返回 error
func (e *Engine) CanPlaceOrder(ctx context.Context, req OrderRequest) (risk.Decision, error) {
	_, _, _, err := e.admit(ctx, req, e.now())
	var ae *risk.AdmissionError
	if err != nil && !errors.As(err, &ae) {
		return risk.Decision{}, err
	}
	return risk.DecisionOf(err), nil
}

func (e *Engine) admit(ctx context.Context, req OrderRequest, now time.Time) (*account.User, *product.Product, decimal.Decimal, error) {
	user, prod, err := e.resolve(ctx, req)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	todays, err := e.orders.TodaysByUser(ctx, user.ID, now)
	if err != nil {
		return nil, nil, decimal.Zero, fmt.Errorf("load today's orders: %w", err)
	}
	amount := admissionAmount(prod, req)
	err = e.gate.Admit(user, prod.PermissionFamily(), amount, todays, risk.Options{
		Product: prod,
		Lever:   req.Lever,
		Now:     now,
	})
	return user, prod, amount, err
}

// =============================================================================
// 结果计算
// =============================================================================

// ComputeOutcome 调用对应类别的计算器; OpenedAt 为空取当前时间
func (e *Engine) ComputeOutcome(family product.Family, req outcome.Request) (outcome.Result, error) {
	if req.OpenedAt.IsZero() {
		req.OpenedAt = e.now()
	}
	return e.calc.Compute(family, req)
}

// Preview 下单页预览，不做准入也不落库
func (e *Engine) Preview(ctx context.Context, req OrderRequest) (outcome.Result, error) {
	prod, err := e.catalog.Product(ctx, req.ProductID)
	if err != nil {
		return outcome.Result{}, err
	}
	return e.ComputeOutcome(prod.Family, outcomeRequest(prod, req, e.now()))
}

func outcomeRequest(p *product.Product, req OrderRequest, at time.Time) outcome.Request {
	return outcome.Request{
		Product:     p,
		Amount:      req.Amount,
		OpenedAt:    at,
		HoldingDays: req.HoldingDays,
		Direction:   req.Direction,
		OrderPrice:  req.OrderPrice,
		Quantity:    req.Quantity,
		Lever:       req.Lever,
	}
}

// =============================================================================
// 下单
// =============================================================================

// PlaceOrder 准入 → 计算 → 落库
// 落库失败返回错误，订单不算下成功; 基金扣款流水写失败时订单改为撤销
func (e *Engine) PlaceOrder(ctx context.Context, req OrderRequest) (*Placement, error) {
	now := e.now()
	user, prod, _, err := e.admit(ctx, req, now)
	if err != nil {
		return nil, err
	}
	res, err := e.ComputeOutcome(prod.Family, outcomeRequest(prod, req, now))
	if err != nil {
		return nil, err
	}
	no, err := e.numbers.Next(ctx, prod.Family, now)
	if err != nil {
		return nil, err
	}

	o := newOrder(e.ids.Next(), no, user.ID, prod, req, res, now)
	if err := e.orders.Create(ctx, o); err != nil {
		e.logger.Error("insert order failed", zap.String("order_no", no), zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("place order %s: %w", no, err)
	}

	placed := &Placement{Order: o, Outcome: res}
	if prod.Family.Base() == product.FamilyFund {
		log := fund.NewInvestLog(e.ids.Next(), user.ID, o.Principal, no, now)
		if err := e.store.Insert(ctx, log); err != nil {
			e.logger.Error("insert fund log failed, reverting order",
				zap.String("order_no", no), zap.Int64("user_id", user.ID), zap.Error(err))
			if rerr := e.orders.Transition(ctx, o.ID, o.Status, order.StatusCancelled); rerr != nil {
				e.logger.Error("revert order failed", zap.String("order_no", no), zap.Error(rerr))
			}
			return nil, fmt.Errorf("place order %s: write fund log: %w", no, err)
		}
		placed.FundLog = log
	}

	e.logger.Info("order placed",
		zap.String("order_no", no),
		zap.Int64("user_id", user.ID),
		zap.String("family", string(prod.Family)),
		zap.String("principal", o.Principal.StringFixed(2)),
		zap.String("status", string(o.Status)))
	return placed, nil
}

// newOrder 按类别填充专属字段
// 期权输赢、合约盈亏在开仓时抽定并落库，到期由 Settle 兑现
func newOrder(id int64, no string, userID int64, p *product.Product, req OrderRequest, res outcome.Result, now time.Time) *order.Order {
	o := &order.Order{
		ID:        id,
		OrderNo:   no,
		UserID:    userID,
		ProductID: p.ID,
		Family:    p.Family,
		Principal: req.Amount,
		OpenedAt:  now,
	}
	switch {
	case res.Fund != nil:
		settle := res.Fund.SettleAt
		o.Status = order.StatusHolding
		o.HoldingDays = res.Fund.HoldingDays
		o.SettleAt = &settle
		o.YieldAmount = decimal.NewNullDecimal(res.Fund.YieldAmount)
	case res.Option != nil:
		end := res.Option.EndAt
		o.Status = order.StatusOpen
		o.PredictDirection = res.Option.Direction
		o.ProfitStatus = res.Option.Status
		o.SettleAt = &end
	case res.Contract != nil:
		closeAt := res.Contract.CloseAt
		o.Status = order.StatusOpen
		o.SettleAt = &closeAt
		o.PnL = decimal.NewNullDecimal(res.Contract.PnL)
		o.Principal = res.Contract.Notional
		o.OrderPrice = req.OrderPrice
		o.Quantity = req.Quantity
		o.Lever = req.Lever
		o.MarginAmount = res.Contract.MarginAmount
		o.Direction = res.Contract.Direction
	case res.Block != nil:
		o.Status = order.StatusHolding
		o.Fee = res.Block.Fee
	case res.IPO != nil:
		o.Status = order.StatusPending
		o.Shares = res.IPO.Shares
	}
	return o
}

// =============================================================================
// 撤单 / 查询
// =============================================================================

// Cancel 只能撤待确认或持有中的订单; 基金撤单退回本金
// 状态按比较并交换迁移，并发撤同一笔只有一个成功; 退款流水写失败时恢复原状态
func (e *Engine) Cancel(ctx context.Context, orderID int64) error {
	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != order.StatusPending && o.Status != order.StatusHolding {
		return fmt.Errorf("%w: %s is %s", order.ErrNotCancelable, o.OrderNo, o.Status)
	}
	if err := e.orders.Transition(ctx, o.ID, o.Status, order.StatusCancelled); err != nil {
		if errors.Is(err, order.ErrStatusConflict) {
			return fmt.Errorf("%w: %s: %w", order.ErrNotCancelable, o.OrderNo, err)
		}
		return err
	}
	if o.Family.Base() == product.FamilyFund {
		refund := fund.NewCreditLog(e.ids.Next(), o.UserID, o.Principal, "撤单退款 "+o.OrderNo, e.now())
		if err := e.store.Insert(ctx, refund); err != nil {
			e.logger.Error("insert refund log failed, restoring order",
				zap.String("order_no", o.OrderNo), zap.Int64("user_id", o.UserID), zap.Error(err))
			if rerr := e.orders.Transition(ctx, o.ID, order.StatusCancelled, o.Status); rerr != nil {
				e.logger.Error("restore order failed", zap.String("order_no", o.OrderNo), zap.Error(rerr))
			}
			return fmt.Errorf("cancel %s: write refund log: %w", o.OrderNo, err)
		}
	}
	e.logger.Info("order cancelled", zap.String("order_no", o.OrderNo), zap.Int64("user_id", o.UserID))
	return nil
}

// Orders 用户订单，新的在前
func (e *Engine) Orders(ctx context.Context, userID int64) ([]*order.Order, error) {
	return e.orders.ListByUser(ctx, userID)
}
