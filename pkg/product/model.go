// 文件: pkg/product/model.go
// 产品目录 - 五类只读产品
//
// 产品由外部维护，本模块只读不写。
// 各类产品的专属字段放在同一张表里，按 Family 区分。

package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// 产品类别
// =============================================================================

// Family 产品类别 (同时也是权限维度)
type Family string

const (
	FamilyFund       Family = "fund"
	FamilyOption     Family = "option"
	FamilyContract   Family = "contract"    // 通用合约 (权限 = SH || HK)
	FamilyContractSH Family = "contract_sh" // 沪市合约
	FamilyContractHK Family = "contract_hk" // 港股合约
	FamilyBlock      Family = "block"
	FamilyIPO        Family = "ipo"
)

// Base 归并到五大类 (合约子类 → contract)
func (f Family) Base() Family {
	switch f {
	case FamilyContractSH, FamilyContractHK:
		return FamilyContract
	}
	return f
}

// Valid 是否为已知类别
func (f Family) Valid() bool {
	switch f {
	case FamilyFund, FamilyOption, FamilyContract, FamilyContractSH, FamilyContractHK, FamilyBlock, FamilyIPO:
		return true
	}
	return false
}

// Market 交易市场
type Market string

const (
	MarketSH Market = "SH"
	MarketHK Market = "HK"
)

// 大宗交易默认费率
var (
	DefaultBlockFeeRate   = decimal.RequireFromString("0.001")
	DefaultBlockFeeRateHK = decimal.RequireFromString("0.0015")
)

// =============================================================================
// Product
// =============================================================================

type Product struct {
	ID     int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Code   string `gorm:"column:code;type:varchar(32);uniqueIndex" json:"code"`
	Name   string `gorm:"column:name;type:varchar(64)" json:"name"`
	Family Family `gorm:"column:family;type:varchar(16);index" json:"family"`
	Market Market `gorm:"column:market;type:varchar(8)" json:"market,omitempty"`

	// ===== 基金 =====
	YieldRateAnnualPercent decimal.Decimal `gorm:"column:yield_rate_annual_percent;type:decimal(10,4)" json:"yield_rate_annual_percent"`

	// ===== 期权 =====
	BaseYieldPercent decimal.Decimal `gorm:"column:base_yield_percent;type:decimal(10,4)" json:"base_yield_percent"`

	// ===== 合约 =====
	LeverMin    int             `gorm:"column:lever_min" json:"lever_min"`
	LeverMax    int             `gorm:"column:lever_max" json:"lever_max"`
	MarginRatio decimal.Decimal `gorm:"column:margin_ratio;type:decimal(10,4)" json:"margin_ratio"`

	// ===== 大宗交易 =====
	MinAmount decimal.Decimal `gorm:"column:min_amount;type:decimal(20,2)" json:"min_amount"`
	FeeRate   decimal.Decimal `gorm:"column:fee_rate;type:decimal(10,6)" json:"fee_rate"`

	// ===== IPO =====
	IssuePrice        decimal.Decimal `gorm:"column:issue_price;type:decimal(20,4)" json:"issue_price"`
	MinSubscription   decimal.Decimal `gorm:"column:min_subscription;type:decimal(20,2)" json:"min_subscription"`
	MaxSubscription   decimal.Decimal `gorm:"column:max_subscription;type:decimal(20,2)" json:"max_subscription"`
	SubscriptionStart time.Time       `gorm:"column:subscription_start" json:"subscription_start"`
	SubscriptionEnd   time.Time       `gorm:"column:subscription_end" json:"subscription_end"`
}

func (Product) TableName() string {
	return "products"
}

// PermissionFamily 下单时要检查的权限维度
// 合约按市场细分; 未标市场的合约走通用 contract (SH || HK)
func (p *Product) PermissionFamily() Family {
	if p.Family.Base() != FamilyContract {
		return p.Family
	}
	switch p.Market {
	case MarketSH:
		return FamilyContractSH
	case MarketHK:
		return FamilyContractHK
	}
	return FamilyContract
}

// EffectiveFeeRate 大宗交易费率，目录未配置时按市场取默认值
func (p *Product) EffectiveFeeRate() decimal.Decimal {
	if p.FeeRate.IsPositive() {
		return p.FeeRate
	}
	if p.Market == MarketHK {
		return DefaultBlockFeeRateHK
	}
	return DefaultBlockFeeRate
}

// SubscriptionOpen IPO 申购窗口是否包含 t (左闭右开)
func (p *Product) SubscriptionOpen(t time.Time) bool {
	if p.SubscriptionStart.IsZero() && p.SubscriptionEnd.IsZero() {
		return true
	}
	if !p.SubscriptionStart.IsZero() && t.Before(p.SubscriptionStart) {
		return false
	}
	if !p.SubscriptionEnd.IsZero() && !t.Before(p.SubscriptionEnd) {
		return false
	}
	return true
}

// ByFamily 按大类分组 (合约子类归入 contract)
func ByFamily(products []*Product) map[Family][]*Product {
	out := make(map[Family][]*Product)
	for _, p := range products {
		f := p.Family.Base()
		out[f] = append(out[f], p)
	}
	return out
}
