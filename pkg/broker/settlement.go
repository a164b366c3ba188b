// 文件: pkg/broker/settlement.go
// 到期结算
//
// 基金按实际持有天数计息; 期权、合约在开仓时已抽定结果，到期兑现。
// 定时扫描只是把 Settle 逐笔跑一遍，状态迁移是比较并交换，
// 和接口上手动结算并发也不会重复入账。

package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sim.com/pkg/fund"
	"sim.com/pkg/order"
	"sim.com/pkg/outcome"
	"sim.com/pkg/product"
)

// Settlement 结算结果; 只有基金有到账流水
type Settlement struct {
	Order   *order.Order  `json:"order"`
	FundLog *fund.FundLog `json:"fund_log,omitempty"`
}

// Settle 结算一笔持仓
//
// 基金: 按实际持有天数 (最多到约定的结算日) 计息，本息一笔入账，可提前赎回。
// 期权: 到期后按开仓时抽定的输赢兑现。
// 合约: 到期后按开仓时抽定的盈亏平仓。
// 大宗、IPO 不走这里。
func (e *Engine) Settle(ctx context.Context, orderID int64) (*Settlement, error) {
	o, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := e.now()

	var (
		result decimal.Decimal
		to     order.Status
		at     = now
		credit *fund.FundLog
	)
	switch o.Family.Base() {
	case product.FamilyFund:
		if o.Status != order.StatusHolding {
			return nil, fmt.Errorf("%w: %s is %s", order.ErrNotSettleable, o.OrderNo, o.Status)
		}
		prod, err := e.catalog.Product(ctx, o.ProductID)
		if err != nil {
			return nil, err
		}
		if o.SettleAt != nil && o.SettleAt.Before(at) {
			at = *o.SettleAt
		}
		res, err := outcome.Fund(outcome.FundRequest{
			Principal:              o.Principal,
			YieldRateAnnualPercent: prod.YieldRateAnnualPercent,
			HoldingDays:            outcome.HoldingDaysBetween(o.OpenedAt, at),
			OpenedAt:               o.OpenedAt,
		})
		if err != nil {
			return nil, err
		}
		result, to = res.YieldAmount, order.StatusSettled
		credit = fund.NewCreditLog(e.ids.Next(), o.UserID, o.Principal.Add(result), "基金结算 "+o.OrderNo, now)

	case product.FamilyOption:
		if err := settleable(o, now); err != nil {
			return nil, err
		}
		prod, err := e.catalog.Product(ctx, o.ProductID)
		if err != nil {
			return nil, err
		}
		at = *o.SettleAt
		result = outcome.OptionPayout(o.Principal, prod.BaseYieldPercent, o.ProfitStatus == order.ProfitWin)
		to = order.StatusSettled

	case product.FamilyContract:
		if err := settleable(o, now); err != nil {
			return nil, err
		}
		if !o.PnL.Valid {
			return nil, fmt.Errorf("%w: %s has no drawn pnl", order.ErrNotSettleable, o.OrderNo)
		}
		at = *o.SettleAt
		result, to = o.PnL.Decimal, order.StatusClosed

	default:
		return nil, fmt.Errorf("%w: %s family %s", order.ErrNotSettleable, o.OrderNo, o.Family)
	}

	from := o.Status
	if err := e.orders.Settle(ctx, o.ID, from, result, at, to); err != nil {
		if errors.Is(err, order.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: %s: %w", order.ErrNotSettleable, o.OrderNo, err)
		}
		return nil, err
	}
	if credit != nil {
		if err := e.store.Insert(ctx, credit); err != nil {
			e.logger.Error("insert settlement log failed, reopening order",
				zap.String("order_no", o.OrderNo), zap.Int64("user_id", o.UserID), zap.Error(err))
			if rerr := e.orders.Reopen(ctx, o.ID, to, from); rerr != nil {
				e.logger.Error("reopen order failed", zap.String("order_no", o.OrderNo), zap.Error(rerr))
			}
			return nil, fmt.Errorf("settle %s: write fund log: %w", o.OrderNo, err)
		}
	}
	o.Settle(result, at, to)

	e.logger.Info("order settled",
		zap.String("order_no", o.OrderNo),
		zap.Int64("user_id", o.UserID),
		zap.String("status", string(to)),
		zap.String("result", result.StringFixed(2)))
	return &Settlement{Order: o, FundLog: credit}, nil
}

// settleable 期权/合约: 持仓中且已到期
func settleable(o *order.Order, now time.Time) error {
	if o.Status != order.StatusOpen || o.SettleAt == nil {
		return fmt.Errorf("%w: %s is %s", order.ErrNotSettleable, o.OrderNo, o.Status)
	}
	if now.Before(*o.SettleAt) {
		return fmt.Errorf("%w: %s settles at %s", order.ErrNotDue, o.OrderNo, o.SettleAt.Format(time.DateTime))
	}
	return nil
}

// SettleDue 结算所有已到期的订单，返回成功笔数
// 单笔失败不中断，状态已被别处改掉的静默跳过，其余错误合并返回
func (e *Engine) SettleDue(ctx context.Context) (int, error) {
	due, err := e.orders.Due(ctx, e.now())
	if err != nil {
		return 0, fmt.Errorf("load due orders: %w", err)
	}
	var (
		settled int
		errs    []error
	)
	for _, o := range due {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		if _, err := e.Settle(ctx, o.ID); err != nil {
			if errors.Is(err, order.ErrNotSettleable) {
				e.logger.Debug("skip settlement", zap.String("order_no", o.OrderNo), zap.Error(err))
				continue
			}
			errs = append(errs, err)
			continue
		}
		settled++
	}
	return settled, errors.Join(errs...)
}

// RunSettlement 按 interval 定时结算到期订单，阻塞到 ctx 结束
func (e *Engine) RunSettlement(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := e.SettleDue(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("settle due orders failed", zap.Int("settled", n), zap.Error(err))
				continue
			}
			if n > 0 {
				e.logger.Info("due orders settled", zap.Int("settled", n))
			}
		}
	}
}
