// 文件: pkg/outcome/contract.go
// 杠杆合约 - 保证金与盈亏
//
// 保证金 = (价格 × 数量) / 杠杆
// 盈亏与杠杆、价格无关: 按概率抽盈/亏，金额在各自区间内均匀抽取。
// 亏损额以保证金为上限，单笔最多亏光保证金。

package outcome

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sim.com/pkg/order"
)

// 默认参数
const (
	DefaultContractProfitProbability = 0.60
	DefaultContractMaxHoldDays       = 7
)

var (
	DefaultContractProfitRange = NewRange(100, 2000)
	DefaultContractLossRange   = NewRange(100, 1000)
)

type ContractRequest struct {
	OrderPrice decimal.Decimal
	Quantity   int64
	Lever      int
	OpenedAt   time.Time
	Direction  order.Direction // 为空时随机抽取 long/short

	ProfitProbability *float64 // nil 取默认
	ProfitRange       Range   // 零值取默认
	LossRange         Range   // 零值取默认
	MaxHoldDays       int     // <=0 取默认
}

type ContractResult struct {
	Notional     decimal.Decimal `json:"notional"`
	MarginAmount decimal.Decimal `json:"margin_amount"`
	Direction    order.Direction `json:"direction"`
	PnL          decimal.Decimal `json:"pnl"`
	CloseAt      time.Time       `json:"close_at"`
}

// Margin 保证金 (纯函数)
func Margin(price decimal.Decimal, quantity int64, lever int) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: order price must be positive, got %s", ErrInvalidInput, price)
	}
	if quantity <= 0 {
		return decimal.Zero, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, quantity)
	}
	if lever < MinLever || lever > MaxLever {
		return decimal.Zero, fmt.Errorf("%w: lever must be within [%d, %d], got %d", ErrInvalidInput, MinLever, MaxLever, lever)
	}
	notional := price.Mul(decimal.NewFromInt(quantity))
	return notional.Div(decimal.NewFromInt(int64(lever))).Round(2), nil
}

// Contract 计算保证金并抽取平仓盈亏
func Contract(req ContractRequest, rng Rand) (ContractResult, error) {
	margin, err := Margin(req.OrderPrice, req.Quantity, req.Lever)
	if err != nil {
		return ContractResult{}, err
	}
	profitP, err := probability("profit", req.ProfitProbability, DefaultContractProfitProbability)
	if err != nil {
		return ContractResult{}, err
	}
	profitRange := req.ProfitRange
	if !profitRange.Valid() {
		profitRange = DefaultContractProfitRange
	}
	lossRange := req.LossRange
	if !lossRange.Valid() {
		lossRange = DefaultContractLossRange
	}
	maxDays := req.MaxHoldDays
	if maxDays <= 0 {
		maxDays = DefaultContractMaxHoldDays
	}

	direction := req.Direction
	if direction == "" {
		direction = order.DirectionLong
		if rng.Intn(2) == 1 {
			direction = order.DirectionShort
		}
	}

	var pnl decimal.Decimal
	if Bernoulli(rng, profitP) {
		pnl = profitRange.Draw(rng)
	} else {
		loss := decimal.Min(lossRange.Draw(rng), margin)
		pnl = loss.Neg()
	}

	holdDays := IntRange{Min: 1, Max: maxDays}.Draw(rng)

	return ContractResult{
		Notional:     req.OrderPrice.Mul(decimal.NewFromInt(req.Quantity)),
		MarginAmount: margin,
		Direction:    direction,
		PnL:          pnl,
		CloseAt:      req.OpenedAt.AddDate(0, 0, holdDays),
	}, nil
}
