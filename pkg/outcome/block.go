// 文件: pkg/outcome/block.go
// 大宗交易手续费 / IPO 配售

package outcome

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sim.com/pkg/product"
)

type BlockResult struct {
	Amount  decimal.Decimal `json:"amount"`
	FeeRate decimal.Decimal `json:"fee_rate"`
	Fee     decimal.Decimal `json:"fee"`
}

// BlockFee 手续费 = 成交额 × 费率 (目录未配置费率时取市场默认)
func BlockFee(amount decimal.Decimal, p *product.Product) (BlockResult, error) {
	if !amount.IsPositive() {
		return BlockResult{}, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, amount)
	}
	rate := p.EffectiveFeeRate()
	return BlockResult{
		Amount:  amount,
		FeeRate: rate,
		Fee:     amount.Mul(rate).Round(2),
	}, nil
}

type IPOResult struct {
	Shares int64           `json:"shares"`
	Cost   decimal.Decimal `json:"cost"`
	Refund decimal.Decimal `json:"refund"` // 申购金额中不足一股的部分
}

// IPOAllocation 按发行价折算可配股数
func IPOAllocation(amount, issuePrice decimal.Decimal) (IPOResult, error) {
	if !amount.IsPositive() {
		return IPOResult{}, fmt.Errorf("%w: subscription amount must be positive, got %s", ErrInvalidInput, amount)
	}
	if !issuePrice.IsPositive() {
		return IPOResult{}, fmt.Errorf("%w: issue price must be positive, got %s", ErrInvalidInput, issuePrice)
	}
	shares := amount.Div(issuePrice).Floor()
	cost := shares.Mul(issuePrice).Round(2)
	return IPOResult{
		Shares: shares.IntPart(),
		Cost:   cost,
		Refund: amount.Sub(cost),
	}, nil
}
