// 文件: pkg/catalog/cache.go
// 目录 Redis 缓存层
//
// 装饰 Provider:
// - 读: 先查 Redis，miss 则查底层并异步回填
// - 产品目录是只读数据，TTL 较长; 用户含余额、权限，TTL 较短

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sim.com/pkg/account"
	"sim.com/pkg/product"
	"sim.com/pkg/store"
)

// 确保实现了接口
var (
	_ Provider    = (*CachedProvider)(nil)
	_ Invalidator = (*CachedProvider)(nil)
	_ store.Store = (*InvalidatingStore)(nil)
)

const (
	cacheKeyPrefix   = "catalog:"
	cacheKeyProducts = cacheKeyPrefix + "products"
	cacheKeyUsers    = cacheKeyPrefix + "users"
	cacheKeyProduct  = cacheKeyPrefix + "product:%d"
	cacheKeyUser     = cacheKeyPrefix + "user:%d"

	productTTL = time.Hour
	userTTL    = time.Minute
)

type CachedProvider struct {
	inner Provider
	redis *redis.Client
}

func NewCachedProvider(inner Provider, rds *redis.Client) *CachedProvider {
	return &CachedProvider{inner: inner, redis: rds}
}

func (c *CachedProvider) Products(ctx context.Context) ([]*product.Product, error) {
	return cached(ctx, c.redis, cacheKeyProducts, productTTL, func() ([]*product.Product, error) {
		return c.inner.Products(ctx)
	})
}

func (c *CachedProvider) Users(ctx context.Context) ([]*account.User, error) {
	return cached(ctx, c.redis, cacheKeyUsers, userTTL, func() ([]*account.User, error) {
		return c.inner.Users(ctx)
	})
}

func (c *CachedProvider) Product(ctx context.Context, id int64) (*product.Product, error) {
	return cached(ctx, c.redis, fmt.Sprintf(cacheKeyProduct, id), productTTL, func() (*product.Product, error) {
		return c.inner.Product(ctx, id)
	})
}

func (c *CachedProvider) User(ctx context.Context, id int64) (*account.User, error) {
	return cached(ctx, c.redis, fmt.Sprintf(cacheKeyUser, id), userTTL, func() (*account.User, error) {
		return c.inner.User(ctx, id)
	})
}

// InvalidateUser 余额/权限变更后调用
func (c *CachedProvider) InvalidateUser(ctx context.Context, id int64) {
	c.redis.Del(ctx, fmt.Sprintf(cacheKeyUser, id), cacheKeyUsers)
}

// InvalidateAll 清空目录缓存
func (c *CachedProvider) InvalidateAll(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// =============================================================================
// 写路径失效
// =============================================================================

// Invalidator 缓存失效钩子
type Invalidator interface {
	InvalidateUser(ctx context.Context, id int64)
	InvalidateAll(ctx context.Context) error
}

// InvalidatingStore 装饰 Store: 写用户表后删该用户的缓存，
// 新增用户或产品后清空整个目录缓存。失效失败只记日志。
type InvalidatingStore struct {
	store.Store
	inv    Invalidator
	logger *zap.Logger
}

func NewInvalidatingStore(inner store.Store, inv Invalidator, logger *zap.Logger) *InvalidatingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvalidatingStore{Store: inner, inv: inv, logger: logger}
}

func (s *InvalidatingStore) Insert(ctx context.Context, rec store.Record) error {
	if err := s.Store.Insert(ctx, rec); err != nil {
		return err
	}
	switch rec.TableName() {
	case account.User{}.TableName(), product.Product{}.TableName():
		if err := s.inv.InvalidateAll(ctx); err != nil {
			s.logger.Warn("invalidate catalog cache failed", zap.String("table", rec.TableName()), zap.Error(err))
		}
	}
	return nil
}

func (s *InvalidatingStore) Update(ctx context.Context, table string, id int64, patch store.Patch) error {
	if err := s.Store.Update(ctx, table, id, patch); err != nil {
		return err
	}
	s.touched(ctx, table, id)
	return nil
}

func (s *InvalidatingStore) UpdateIf(ctx context.Context, table string, id int64, cond store.Filters, patch store.Patch) error {
	if err := s.Store.UpdateIf(ctx, table, id, cond, patch); err != nil {
		return err
	}
	s.touched(ctx, table, id)
	return nil
}

func (s *InvalidatingStore) touched(ctx context.Context, table string, id int64) {
	switch table {
	case account.User{}.TableName():
		s.inv.InvalidateUser(ctx, id)
	case product.Product{}.TableName():
		if err := s.inv.InvalidateAll(ctx); err != nil {
			s.logger.Warn("invalidate catalog cache failed", zap.String("table", table), zap.Error(err))
		}
	}
}

// cached 缓存读穿; Redis 故障时降级直接读底层
func cached[T any](ctx context.Context, rds *redis.Client, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	data, err := rds.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if json.Unmarshal(data, &v) == nil {
			return v, nil
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	go func() {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		rds.Set(context.Background(), key, data, ttl)
	}()
	return v, nil
}
