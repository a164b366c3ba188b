// 文件: pkg/order/guard.go
// 订单号占用检查 - 内存版 / Redis 版

package order

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryGuard 进程内查重
type MemoryGuard struct {
	mu   sync.Mutex
	used map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{used: make(map[string]struct{})}
}

func (g *MemoryGuard) Claim(_ context.Context, orderNo string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.used[orderNo]; ok {
		return false, nil
	}
	g.used[orderNo] = struct{}{}
	return true, nil
}

// Reserve 预先登记已存在的订单号 (例如从库里加载)
func (g *MemoryGuard) Reserve(orderNos ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, no := range orderNos {
		g.used[no] = struct{}{}
	}
}

// RedisGuard 跨进程/跨运行查重
// SETNX orderno:{no}，多次重跑时拒绝上次已经发出的订单号
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

const orderNoKeyPrefix = "orderno:"

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, orderNo string) (bool, error) {
	return g.client.SetNX(ctx, orderNoKeyPrefix+orderNo, 1, g.ttl).Result()
}
