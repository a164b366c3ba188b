// 文件: pkg/fund/projector.go
// 流水投影
//
// 消费 fund_log_events，把流水折叠成每个用户的实时余额 (读模型)。
// 同一条流水 (按 ID) 只计一次，重复投递不会重复入账。

package fund

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProjectorStats struct {
	Applied    int64 `json:"applied"`
	Duplicates int64 `json:"duplicates"`
	Rejected   int64 `json:"rejected"`
}

type Projector struct {
	mu       sync.RWMutex
	balances map[int64]decimal.Decimal
	seen     map[int64]struct{}
	stats    ProjectorStats
	logger   *zap.Logger
}

func NewProjector(logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{
		balances: make(map[int64]decimal.Decimal),
		seen:     make(map[int64]struct{}),
		logger:   logger.Named("projector"),
	}
}

// Handle 符合 kafka.Handler 签名
func (p *Projector) Handle(_ context.Context, _, value []byte) error {
	var l FundLog
	if err := json.Unmarshal(value, &l); err != nil {
		p.mu.Lock()
		p.stats.Rejected++
		p.mu.Unlock()
		return fmt.Errorf("decode fund log: %w", err)
	}
	p.Apply(&l)
	return nil
}

// Apply 入账一条流水
func (p *Projector) Apply(l *FundLog) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l.ID != 0 {
		if _, dup := p.seen[l.ID]; dup {
			p.stats.Duplicates++
			return
		}
		p.seen[l.ID] = struct{}{}
	}
	p.balances[l.UserID] = p.balances[l.UserID].Add(l.Amount)
	p.stats.Applied++
	p.logger.Debug("fund log applied",
		zap.Int64("user_id", l.UserID),
		zap.String("amount", l.Amount.String()),
		zap.String("type", string(l.OperateType)))
}

// Balance 当前投影余额
func (p *Projector) Balance(userID int64) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balances[userID]
}

// Snapshot 全部投影余额的副本
func (p *Projector) Snapshot() map[int64]decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[int64]decimal.Decimal, len(p.balances))
	for k, v := range p.balances {
		out[k] = v
	}
	return out
}

func (p *Projector) Stats() ProjectorStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}
