// 文件: pkg/outcome/rand.go
// 随机源抽象
//
// 计算器不直接调用全局随机数，随机源由调用方注入，
// 固定种子即可复现同一份结果。

package outcome

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// Rand 计算器需要的最小随机源接口 (*rand.Rand 天然满足)
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// LockedRand 并发安全的随机源，供在线服务多协程共用
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Bernoulli 以概率 p 返回 true
func Bernoulli(rng Rand, p float64) bool {
	return rng.Float64() < p
}

// Prob 取概率的地址，用于可选参数
func Prob(p float64) *float64 {
	return &p
}

// probability nil 取默认; 0 表示必不发生; NaN 或超出 [0, 1] 报错
func probability(name string, p *float64, def float64) (float64, error) {
	if p == nil {
		return def, nil
	}
	if math.IsNaN(*p) || *p < 0 || *p > 1 {
		return 0, fmt.Errorf("%w: %s probability %v out of [0, 1]", ErrInvalidInput, name, *p)
	}
	return *p, nil
}

// =============================================================================
// 取值区间
// =============================================================================

// Range 金额区间 [Min, Max]
type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

func NewRange(min, max int64) Range {
	return Range{Min: decimal.NewFromInt(min), Max: decimal.NewFromInt(max)}
}

// Draw 均匀取值，保留 2 位小数
func (r Range) Draw(rng Rand) decimal.Decimal {
	span := r.Max.Sub(r.Min)
	return r.Min.Add(span.Mul(decimal.NewFromFloat(rng.Float64()))).Round(2)
}

// Valid Min > 0 且 Min <= Max
func (r Range) Valid() bool {
	return r.Min.IsPositive() && r.Min.LessThanOrEqual(r.Max)
}

// IntRange 整数区间 [Min, Max]
type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Draw 均匀取整数 (含两端)
func (r IntRange) Draw(rng Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

func (r IntRange) Valid() bool {
	return r.Min > 0 && r.Min <= r.Max
}
