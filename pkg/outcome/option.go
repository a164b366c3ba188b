// 文件: pkg/outcome/option.go
// 期权输赢计算
//
// 二元结果: 赢 → 收益 = 本金 × 基础收益率 / 100; 输 → 亏损全部本金
// 预测方向与输赢相互独立

package outcome

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sim.com/pkg/order"
)

// 默认参数
const (
	DefaultOptionWinProbability = 0.55
	DefaultOptionDuration       = 24 * time.Hour
)

type OptionRequest struct {
	Principal        decimal.Decimal
	BaseYieldPercent decimal.Decimal
	OpenedAt         time.Time
	Direction        order.Direction // 为空时随机抽取
	WinProbability   *float64        // nil 取默认
	Duration         time.Duration   // <=0 时取默认
}

type OptionResult struct {
	Direction order.Direction    `json:"direction"`
	Status    order.ProfitStatus `json:"status"`
	Profit    decimal.Decimal    `json:"profit"`
	EndAt     time.Time          `json:"end_at"`
}

// Option 抽取输赢并计算盈亏
func Option(req OptionRequest, rng Rand) (OptionResult, error) {
	if !req.Principal.IsPositive() {
		return OptionResult{}, fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidInput, req.Principal)
	}
	if req.BaseYieldPercent.IsNegative() {
		return OptionResult{}, fmt.Errorf("%w: base yield must not be negative, got %s", ErrInvalidInput, req.BaseYieldPercent)
	}
	winP, err := probability("win", req.WinProbability, DefaultOptionWinProbability)
	if err != nil {
		return OptionResult{}, err
	}
	duration := req.Duration
	if duration <= 0 {
		duration = DefaultOptionDuration
	}

	direction := req.Direction
	if direction == "" {
		direction = order.DirectionUp
		if rng.Intn(2) == 1 {
			direction = order.DirectionDown
		}
	}
	win := Bernoulli(rng, winP)

	return OptionResult{
		Direction: direction,
		Status:    statusOf(win),
		Profit:    OptionPayout(req.Principal, req.BaseYieldPercent, win),
		EndAt:     req.OpenedAt.Add(duration),
	}, nil
}

// OptionPayout 给定输赢的确定性盈亏 (下单页预览用)
func OptionPayout(principal, baseYieldPercent decimal.Decimal, win bool) decimal.Decimal {
	if !win {
		return principal.Neg()
	}
	return principal.Mul(baseYieldPercent).Div(decimal.NewFromInt(100)).Round(2)
}

func statusOf(win bool) order.ProfitStatus {
	if win {
		return order.ProfitWin
	}
	return order.ProfitLoss
}
