// 文件: pkg/ledger/config.go
// 生成器参数

package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"sim.com/pkg/outcome"
)

// ErrConfiguration 致命配置错误，在写入任何数据之前返回
var ErrConfiguration = errors.New("generator configuration error")

// Config 每用户每天的试验概率与各类抽样区间
type Config struct {
	// 每个用户每天独立进行的五次试验
	FundProbability         float64
	OptionProbability       float64
	ContractProbability     float64
	NotificationProbability float64
	BalanceProbability      float64

	FundPrincipal   outcome.Range
	FundHoldingDays outcome.IntRange

	OptionPrincipal      outcome.Range
	OptionWinProbability float64

	ContractPrice             outcome.Range
	ContractQuantity          outcome.IntRange
	ContractProfitProbability float64
	ContractProfit            outcome.Range
	ContractLoss              outcome.Range

	Balance outcome.Range

	// 并发写入上限
	Workers int
}

func DefaultConfig() Config {
	return Config{
		FundProbability:         0.5,
		OptionProbability:       0.3,
		ContractProbability:     0.2,
		NotificationProbability: 0.4,
		BalanceProbability:      0.2,

		FundPrincipal:   outcome.NewRange(1000, 50000),
		FundHoldingDays: outcome.IntRange{Min: 30, Max: 180},

		OptionPrincipal:      outcome.NewRange(100, 5000),
		OptionWinProbability: outcome.DefaultOptionWinProbability,

		ContractPrice:             outcome.NewRange(1000, 50000),
		ContractQuantity:          outcome.IntRange{Min: 1, Max: 10},
		ContractProfitProbability: outcome.DefaultContractProfitProbability,
		ContractProfit:            outcome.DefaultContractProfitRange,
		ContractLoss:              outcome.DefaultContractLossRange,

		Balance: outcome.NewRange(10000, 1000000),

		Workers: 8,
	}
}

func (c Config) Validate() error {
	probs := []struct {
		name string
		p    float64
	}{
		{"fund", c.FundProbability},
		{"option", c.OptionProbability},
		{"contract", c.ContractProbability},
		{"notification", c.NotificationProbability},
		{"balance", c.BalanceProbability},
		{"option_win", c.OptionWinProbability},
		{"contract_profit", c.ContractProfitProbability},
	}
	for _, p := range probs {
		if math.IsNaN(p.p) || p.p < 0 || p.p > 1 {
			return fmt.Errorf("%w: %s probability %v out of [0, 1]", ErrConfiguration, p.name, p.p)
		}
	}

	ranges := []struct {
		name string
		r    outcome.Range
	}{
		{"fund_principal", c.FundPrincipal},
		{"option_principal", c.OptionPrincipal},
		{"contract_price", c.ContractPrice},
		{"contract_profit", c.ContractProfit},
		{"contract_loss", c.ContractLoss},
		{"balance", c.Balance},
	}
	for _, r := range ranges {
		if !r.r.Valid() {
			return fmt.Errorf("%w: %s range [%s, %s] invalid", ErrConfiguration, r.name, r.r.Min, r.r.Max)
		}
	}
	if !c.FundHoldingDays.Valid() {
		return fmt.Errorf("%w: fund holding days [%d, %d] invalid", ErrConfiguration, c.FundHoldingDays.Min, c.FundHoldingDays.Max)
	}
	if !c.ContractQuantity.Valid() {
		return fmt.Errorf("%w: contract quantity [%d, %d] invalid", ErrConfiguration, c.ContractQuantity.Min, c.ContractQuantity.Max)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrConfiguration, c.Workers)
	}
	return nil
}

// =============================================================================
// 日期区间
// =============================================================================

// DateRange 闭区间，按自然日计
type DateRange struct {
	Start time.Time
	End   time.Time
}

// HistoryRange [start, 昨天]
func HistoryRange(start, now time.Time) DateRange {
	return DateRange{Start: start, End: midnight(now).AddDate(0, 0, -1)}
}

// Days 区间内每一天的零点 (按 Start 所在时区)
func (r DateRange) Days() ([]time.Time, error) {
	if r.Start.IsZero() || r.End.IsZero() {
		return nil, fmt.Errorf("%w: date range bounds must be set", ErrConfiguration)
	}
	start := midnight(r.Start)
	end := midnight(r.End.In(r.Start.Location()))
	if end.Before(start) {
		return nil, fmt.Errorf("%w: date range end %s before start %s", ErrConfiguration, end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
