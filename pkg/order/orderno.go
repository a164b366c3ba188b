// 文件: pkg/order/orderno.go
// 订单号生成
//
// 格式: {类别前缀}{毫秒时间戳}{4位随机数}{运行内序号}
// 序号保证单次运行内不重复; 仍然做一次显式查重，
// 撞号视为致命错误，绝不静默覆盖。

package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sim.com/pkg/product"
)

var ErrDuplicateOrderNo = errors.New("duplicate order number")

// Prefix 订单号前缀
func Prefix(f product.Family) string {
	switch f.Base() {
	case product.FamilyFund:
		return "FD"
	case product.FamilyOption:
		return "OP"
	case product.FamilyContract:
		return "CT"
	case product.FamilyBlock:
		return "BT"
	case product.FamilyIPO:
		return "IP"
	}
	return "XX"
}

// Guard 跨运行的订单号占用检查 (例如 Redis)
type Guard interface {
	// Claim 占用成功返回 true; 已被占用返回 false
	Claim(ctx context.Context, orderNo string) (bool, error)
}

// Rand 随机后缀的来源 (*rand.Rand 满足)
type Rand interface {
	Intn(n int) int
}

// NumberGenerator 订单号生成器
type NumberGenerator struct {
	mu    sync.Mutex
	rng   Rand
	seq   uint64
	seen  map[string]struct{}
	guard Guard
}

// NewNumberGenerator rng 由调用方注入; guard 可为 nil
func NewNumberGenerator(rng Rand, guard Guard) *NumberGenerator {
	return &NumberGenerator{
		rng:   rng,
		seen:  make(map[string]struct{}),
		guard: guard,
	}
}

// Next 生成订单号
func (g *NumberGenerator) Next(ctx context.Context, f product.Family, at time.Time) (string, error) {
	g.mu.Lock()
	g.seq++
	no := fmt.Sprintf("%s%d%04d%d", Prefix(f), at.UnixMilli(), g.rng.Intn(10000), g.seq)
	if _, dup := g.seen[no]; dup {
		g.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrDuplicateOrderNo, no)
	}
	g.seen[no] = struct{}{}
	g.mu.Unlock()

	if g.guard != nil {
		claimed, err := g.guard.Claim(ctx, no)
		if err != nil {
			return "", fmt.Errorf("claim order number %s: %w", no, err)
		}
		if !claimed {
			return "", fmt.Errorf("%w: %s", ErrDuplicateOrderNo, no)
		}
	}
	return no, nil
}

// Issued 本次运行已发出的订单号数量
func (g *NumberGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
