// 文件: pkg/config/generator.go
// 生成器配置 → ledger.Config
//
// YAML 里金额写成普通数字，这里统一转成 decimal。
// 概率用指针区分 "没写" 和 "写了 0"。

package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"sim.com/pkg/ledger"
	"sim.com/pkg/outcome"
)

type Generator struct {
	StartDate string        `yaml:"start_date" validate:"nonzero"` // 平台上线日 2006-01-02
	Location  string        `yaml:"location"`                      // 为空取本地时区
	Seed      int64         `yaml:"seed"`                          // 0 表示按当前时间取种子
	Workers   int           `yaml:"workers"`
	GuardTTL  time.Duration `yaml:"guard_ttl"` // Redis 订单号占用的保留时长

	Probabilities Probabilities `yaml:"probabilities"`

	FundPrincipal             *Span             `yaml:"fund_principal"`
	FundHoldingDays           *outcome.IntRange `yaml:"fund_holding_days"`
	OptionPrincipal           *Span             `yaml:"option_principal"`
	OptionWinProbability      *float64          `yaml:"option_win_probability"`
	ContractPrice             *Span             `yaml:"contract_price"`
	ContractQuantity          *outcome.IntRange `yaml:"contract_quantity"`
	ContractProfitProbability *float64          `yaml:"contract_profit_probability"`
	ContractProfit            *Span             `yaml:"contract_profit"`
	ContractLoss              *Span             `yaml:"contract_loss"`
	Balance                   *Span             `yaml:"balance"`
}

type Probabilities struct {
	Fund         *float64 `yaml:"fund"`
	Option       *float64 `yaml:"option"`
	Contract     *float64 `yaml:"contract"`
	Notification *float64 `yaml:"notification"`
	Balance      *float64 `yaml:"balance"`
}

// Span 金额区间
type Span struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (s Span) Range() outcome.Range {
	return outcome.Range{
		Min: decimal.NewFromFloat(s.Min).Round(2),
		Max: decimal.NewFromFloat(s.Max).Round(2),
	}
}

// Ledger 在默认值上覆盖已配置的项，并校验
func (g Generator) Ledger() (ledger.Config, error) {
	c := ledger.DefaultConfig()
	if g.Workers > 0 {
		c.Workers = g.Workers
	}

	setFloat(&c.FundProbability, g.Probabilities.Fund)
	setFloat(&c.OptionProbability, g.Probabilities.Option)
	setFloat(&c.ContractProbability, g.Probabilities.Contract)
	setFloat(&c.NotificationProbability, g.Probabilities.Notification)
	setFloat(&c.BalanceProbability, g.Probabilities.Balance)
	setFloat(&c.OptionWinProbability, g.OptionWinProbability)
	setFloat(&c.ContractProfitProbability, g.ContractProfitProbability)

	setRange(&c.FundPrincipal, g.FundPrincipal)
	setRange(&c.OptionPrincipal, g.OptionPrincipal)
	setRange(&c.ContractPrice, g.ContractPrice)
	setRange(&c.ContractProfit, g.ContractProfit)
	setRange(&c.ContractLoss, g.ContractLoss)
	setRange(&c.Balance, g.Balance)

	if g.FundHoldingDays != nil {
		c.FundHoldingDays = *g.FundHoldingDays
	}
	if g.ContractQuantity != nil {
		c.ContractQuantity = *g.ContractQuantity
	}
	return c, c.Validate()
}

// Start 上线日零点 (Location 时区)
func (g Generator) Start() (time.Time, error) {
	loc := time.Local
	if g.Location != "" {
		l, err := time.LoadLocation(g.Location)
		if err != nil {
			return time.Time{}, fmt.Errorf("load location %q: %w", g.Location, err)
		}
		loc = l
	}
	t, err := time.ParseInLocation(time.DateOnly, g.StartDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start_date %q: %w", g.StartDate, err)
	}
	return t, nil
}

// HistoryRange [上线日, now 的前一天]
func (g Generator) HistoryRange(now time.Time) (ledger.DateRange, error) {
	start, err := g.Start()
	if err != nil {
		return ledger.DateRange{}, err
	}
	return ledger.HistoryRange(start, now.In(start.Location())), nil
}

// SeedOr 未配置种子时取 fallback
func (g Generator) SeedOr(fallback int64) int64 {
	if g.Seed != 0 {
		return g.Seed
	}
	return fallback
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setRange(dst *outcome.Range, v *Span) {
	if v != nil {
		*dst = v.Range()
	}
}
