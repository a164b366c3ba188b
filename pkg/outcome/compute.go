// 文件: pkg/outcome/compute.go
// 按产品类别分发到对应计算器

package outcome

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sim.com/pkg/order"
	"sim.com/pkg/product"
)

// Params 随机结果的可调参数，零值字段取默认 (概率为 nil 时取默认)
type Params struct {
	OptionWinProbability      *float64
	OptionDuration            time.Duration
	ContractProfitProbability *float64
	ContractProfitRange       Range
	ContractLossRange         Range
	ContractMaxHoldDays       int
}

// Request 统一计算请求，按类别读取对应字段
type Request struct {
	Product  *product.Product
	Amount   decimal.Decimal // 基金本金 / 期权权利金 / 大宗成交额 / IPO 申购额
	OpenedAt time.Time

	HoldingDays int // 基金

	Direction  order.Direction // 期权/合约，可空
	OrderPrice decimal.Decimal // 合约
	Quantity   int64
	Lever      int
}

// Result 只有与类别对应的字段非空
type Result struct {
	Family   product.Family  `json:"family"`
	Fund     *FundResult     `json:"fund,omitempty"`
	Option   *OptionResult   `json:"option,omitempty"`
	Contract *ContractResult `json:"contract,omitempty"`
	Block    *BlockResult    `json:"block,omitempty"`
	IPO      *IPOResult      `json:"ipo,omitempty"`
}

// Calculator 持有随机源与参数
type Calculator struct {
	rng    Rand
	params Params
}

func NewCalculator(rng Rand, params Params) *Calculator {
	return &Calculator{rng: rng, params: params}
}

// Compute 计算一笔订单的结果
func (c *Calculator) Compute(family product.Family, req Request) (Result, error) {
	if req.Product == nil {
		return Result{}, fmt.Errorf("%w: product is required", ErrInvalidInput)
	}
	base := family.Base()
	if base != req.Product.Family.Base() {
		return Result{}, fmt.Errorf("%w: product %s is %s, not %s", ErrInvalidInput, req.Product.Code, req.Product.Family, family)
	}

	res := Result{Family: base}
	switch base {
	case product.FamilyFund:
		r, err := Fund(FundRequest{
			Principal:              req.Amount,
			YieldRateAnnualPercent: req.Product.YieldRateAnnualPercent,
			HoldingDays:            req.HoldingDays,
			OpenedAt:               req.OpenedAt,
		})
		if err != nil {
			return Result{}, err
		}
		res.Fund = &r

	case product.FamilyOption:
		r, err := Option(OptionRequest{
			Principal:        req.Amount,
			BaseYieldPercent: req.Product.BaseYieldPercent,
			OpenedAt:         req.OpenedAt,
			Direction:        req.Direction,
			WinProbability:   c.params.OptionWinProbability,
			Duration:         c.params.OptionDuration,
		}, c.rng)
		if err != nil {
			return Result{}, err
		}
		res.Option = &r

	case product.FamilyContract:
		r, err := Contract(ContractRequest{
			OrderPrice:        req.OrderPrice,
			Quantity:          req.Quantity,
			Lever:             req.Lever,
			OpenedAt:          req.OpenedAt,
			Direction:         req.Direction,
			ProfitProbability: c.params.ContractProfitProbability,
			ProfitRange:       c.params.ContractProfitRange,
			LossRange:         c.params.ContractLossRange,
			MaxHoldDays:       c.params.ContractMaxHoldDays,
		}, c.rng)
		if err != nil {
			return Result{}, err
		}
		res.Contract = &r

	case product.FamilyBlock:
		r, err := BlockFee(req.Amount, req.Product)
		if err != nil {
			return Result{}, err
		}
		res.Block = &r

	case product.FamilyIPO:
		r, err := IPOAllocation(req.Amount, req.Product.IssuePrice)
		if err != nil {
			return Result{}, err
		}
		res.IPO = &r

	default:
		return Result{}, fmt.Errorf("%w: unknown family %q", ErrInvalidInput, family)
	}
	return res, nil
}
