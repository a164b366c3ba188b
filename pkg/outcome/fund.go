// 文件: pkg/outcome/fund.go
// 基金收益计算
//
// 公式: 收益 = 本金 × (年化收益率 / 100) × (持有天数 / 365)
// 结算时间 = 开仓时间 + 持有天数

package outcome

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var daysPerYearPercent = decimal.NewFromInt(365 * 100)

type FundRequest struct {
	Principal              decimal.Decimal
	YieldRateAnnualPercent decimal.Decimal
	HoldingDays            int
	OpenedAt               time.Time
}

type FundResult struct {
	YieldAmount decimal.Decimal `json:"yield_amount"`
	HoldingDays int             `json:"holding_days"`
	SettleAt    time.Time       `json:"settle_at"`
}

// Fund 计算基金收益 (纯函数)
func Fund(req FundRequest) (FundResult, error) {
	if !req.Principal.IsPositive() {
		return FundResult{}, fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidInput, req.Principal)
	}
	if req.HoldingDays <= 0 {
		return FundResult{}, fmt.Errorf("%w: holding days must be positive, got %d", ErrInvalidInput, req.HoldingDays)
	}
	if req.YieldRateAnnualPercent.IsNegative() {
		return FundResult{}, fmt.Errorf("%w: yield rate must not be negative, got %s", ErrInvalidInput, req.YieldRateAnnualPercent)
	}

	// 先乘后除，避免中间结果截断
	yield := req.Principal.
		Mul(req.YieldRateAnnualPercent).
		Mul(decimal.NewFromInt(int64(req.HoldingDays))).
		Div(daysPerYearPercent).
		Round(2)

	return FundResult{
		YieldAmount: yield,
		HoldingDays: req.HoldingDays,
		SettleAt:    req.OpenedAt.AddDate(0, 0, req.HoldingDays),
	}, nil
}

// HoldingDaysBetween 真实持仓天数 (按自然日，不足一天按一天)
func HoldingDaysBetween(openedAt, settledAt time.Time) int {
	y1, m1, d1 := openedAt.Date()
	y2, m2, d2 := settledAt.Date()
	start := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	end := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}
