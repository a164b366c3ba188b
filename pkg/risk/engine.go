package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sim.com/pkg/account"
	"sim.com/pkg/order"
	"sim.com/pkg/outcome"
	"sim.com/pkg/product"
)

// Gate 是下单前的准入闸门。
// 纯计算、无共享可变状态，可以被多个协程并发调用。
// 同一用户的并发下单可能同时通过单日限额检查，串行化由持久化层负责。
type Gate struct {
	now func() time.Time
}

// NewGate clock 为空时使用 time.Now
func NewGate(clock func() time.Time) *Gate {
	if clock == nil {
		clock = time.Now
	}
	return &Gate{now: clock}
}

// CheckPermission 查用户对该类别的开关
func (g *Gate) CheckPermission(user *account.User, family product.Family) error {
	if user == nil || user.Permissions == nil {
		return reject(CodePermissionDenied, "用户未开通任何交易权限")
	}
	if !user.Permissions.Allows(family) {
		return reject(CodePermissionDenied, fmt.Sprintf("您没有%s交易权限", familyLabel(family)))
	}
	return nil
}

// CheckLimits 顺序: 最低额 → 单笔 → 单日 → 品种专属
func (g *Gate) CheckLimits(user *account.User, amount decimal.Decimal, todaysOrders []*order.Order, family product.Family, opts Options) error {
	if user == nil {
		return reject(CodePermissionDenied, "用户不存在")
	}
	now := opts.Now
	if now.IsZero() {
		now = g.now()
	}
	limits := user.Limits
	base := family.Base()

	// 1. 最低额: 大宗/IPO 用产品起点，其余用用户最低交易额
	switch {
	case base == product.FamilyBlock || base == product.FamilyIPO:
		if err := checkProductFloor(amount, base, opts.Product); err != nil {
			return err
		}
	case !opts.SkipMinimum:
		if amount.LessThan(limits.MinTradeAmount) {
			return reject(CodeBelowMinimum, fmt.Sprintf("交易金额不能低于最低交易额 %s", limits.MinTradeAmount.StringFixed(2)))
		}
	}

	// 2. 单笔
	if amount.GreaterThan(limits.SingleTradeMax) {
		return reject(CodeExceedsSingleLimit, fmt.Sprintf("单笔交易金额不能超过 %s", limits.SingleTradeMax.StringFixed(2)))
	}

	// 3. 单日 (含边界)
	used := DailyUsed(user.ID, todaysOrders, base, now)
	if used.Add(amount).GreaterThan(limits.DailyTradeMax) {
		remain := decimal.Max(limits.DailyTradeMax.Sub(used), decimal.Zero)
		return reject(CodeExceedsDailyLimit, fmt.Sprintf("今日%s交易已用 %s，剩余额度 %s", familyLabel(base), used.StringFixed(2), remain.StringFixed(2)))
	}

	// 4. 品种专属
	switch base {
	case product.FamilyContract:
		return checkLever(opts.Lever, opts.Product)
	case product.FamilyIPO:
		return checkSubscription(amount, opts.Product, now)
	}
	return nil
}

// Admit 权限与限额都通过才放行 (AND)，返回第一个失败
func (g *Gate) Admit(user *account.User, family product.Family, amount decimal.Decimal, todaysOrders []*order.Order, opts Options) error {
	if opts.Product != nil {
		family = opts.Product.PermissionFamily()
	}
	if err := g.CheckPermission(user, family); err != nil {
		return err
	}
	return g.CheckLimits(user, amount, todaysOrders, family, opts)
}

// CanPlaceOrder 返回 {ok, reason?} 形式的结论
func (g *Gate) CanPlaceOrder(user *account.User, family product.Family, amount decimal.Decimal, todaysOrders []*order.Order, opts Options) Decision {
	return DecisionOf(g.Admit(user, family, amount, todaysOrders, opts))
}

// DailyUsed 当天 (本地日历日) 同类别已用额度; 只计 pending/holding/open，终态订单不占额度
func DailyUsed(userID int64, orders []*order.Order, family product.Family, now time.Time) decimal.Decimal {
	used := decimal.Zero
	for _, o := range orders {
		if o == nil || !o.IsActive() {
			continue
		}
		if userID != 0 && o.UserID != 0 && o.UserID != userID {
			continue
		}
		if o.Family.Base() != family.Base() {
			continue
		}
		if !isSameDay(o.OpenedAt.In(now.Location()), now) {
			continue
		}
		used = used.Add(o.CountedAmount())
	}
	return used
}

func isSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// =============================================================================
// 品种专属检查
// =============================================================================

func checkLever(lever int, p *product.Product) error {
	lo, hi := outcome.MinLever, outcome.MaxLever
	if p != nil {
		if p.LeverMin > lo {
			lo = p.LeverMin
		}
		if p.LeverMax > 0 && p.LeverMax < hi {
			hi = p.LeverMax
		}
	}
	if lever < lo || lever > hi {
		return reject(CodeLeverageOutOfRange, fmt.Sprintf("杠杆倍数须在 %d-%d 之间", lo, hi))
	}
	return nil
}

func checkProductFloor(amount decimal.Decimal, family product.Family, p *product.Product) error {
	if p == nil {
		return nil
	}
	floor := p.MinAmount
	if family == product.FamilyIPO {
		floor = p.MinSubscription
	}
	if amount.LessThan(floor) {
		return reject(CodeBelowProductMinimum, fmt.Sprintf("%s起点金额为 %s", familyLabel(family), floor.StringFixed(2)))
	}
	return nil
}

func checkSubscription(amount decimal.Decimal, p *product.Product, now time.Time) error {
	if p == nil {
		return nil
	}
	if p.MaxSubscription.IsPositive() && amount.GreaterThan(p.MaxSubscription) {
		return reject(CodeAboveProductMaximum, fmt.Sprintf("申购金额不能超过 %s", p.MaxSubscription.StringFixed(2)))
	}
	if !p.SubscriptionOpen(now) {
		return reject(CodeSubscriptionClosed, "不在申购时间内")
	}
	return nil
}

func familyLabel(f product.Family) string {
	switch f {
	case product.FamilyFund:
		return "基金"
	case product.FamilyOption:
		return "期权"
	case product.FamilyContract:
		return "合约"
	case product.FamilyContractSH:
		return "沪市合约"
	case product.FamilyContractHK:
		return "港股合约"
	case product.FamilyBlock:
		return "大宗交易"
	case product.FamilyIPO:
		return "新股申购"
	}
	return string(f)
}
