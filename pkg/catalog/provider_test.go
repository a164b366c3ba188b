package catalog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sim.com/pkg/account"
	"sim.com/pkg/product"
	"sim.com/pkg/store"
	"sim.com/pkg/store/storetest"
)

func seedStore(t *testing.T) store.Store {
	s := storetest.New(t, &account.User{}, &product.Product{})
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, &account.User{ID: 1, Username: "alice", Role: account.RoleMember, Permissions: account.AllowAll(),
		Limits: account.LimitSet{SingleTradeMax: decimal.NewFromInt(5000), DailyTradeMax: decimal.NewFromInt(5000)}}))
	require.NoError(t, s.Insert(ctx, &account.User{ID: 2, Username: "bob", Role: account.RoleAdmin}))
	require.NoError(t, s.Insert(ctx, &product.Product{ID: 10, Code: "F001", Family: product.FamilyFund, YieldRateAnnualPercent: decimal.NewFromInt(10)}))
	return s
}

func TestStoreProvider(t *testing.T) {
	p := NewStoreProvider(seedStore(t))
	ctx := context.Background()

	users, err := p.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	u, err := p.User(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.Permissions.Fund)

	_, err = p.User(ctx, 99)
	assert.ErrorIs(t, err, ErrUserNotFound)

	prod, err := p.Product(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, product.FamilyFund, prod.Family)

	_, err = p.Product(ctx, 11)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

// countingProvider 统计底层调用次数
type countingProvider struct {
	Provider
	products atomic.Int32
}

func (c *countingProvider) Products(ctx context.Context) ([]*product.Product, error) {
	c.products.Add(1)
	return c.Provider.Products(ctx)
}

func setupRedis(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skipping test; redis not available: %v", err)
	}
	return rdb
}

func TestCachedProvider(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	inner := &countingProvider{Provider: NewStoreProvider(seedStore(t))}
	c := NewCachedProvider(inner, rdb)
	require.NoError(t, c.InvalidateAll(ctx))

	products, err := c.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)

	// 等待异步回填
	require.Eventually(t, func() bool {
		return rdb.Exists(ctx, cacheKeyProducts).Val() == 1
	}, time.Second, 10*time.Millisecond)

	products, err = c.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].YieldRateAnnualPercent.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int32(1), inner.products.Load())

	u, err := c.User(ctx, 1)
	require.NoError(t, err)
	assert.True(t, u.Permissions.IPO)
	c.InvalidateUser(ctx, 1)

	_, err = c.User(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, c.InvalidateAll(ctx))
}

// recordingInvalidator 记录失效调用
type recordingInvalidator struct {
	users []int64
	all   int
}

func (r *recordingInvalidator) InvalidateUser(_ context.Context, id int64) { r.users = append(r.users, id) }

func (r *recordingInvalidator) InvalidateAll(context.Context) error {
	r.all++
	return nil
}

func TestInvalidatingStore(t *testing.T) {
	ctx := context.Background()
	inv := &recordingInvalidator{}
	s := NewInvalidatingStore(seedStore(t), inv, nil)

	require.NoError(t, s.Update(ctx, "users", 1, store.Patch{"current_balance": decimal.NewFromInt(88)}))
	assert.Equal(t, []int64{1}, inv.users)

	require.NoError(t, s.UpdateIf(ctx, "users", 2, store.Filters{"role": string(account.RoleAdmin)}, store.Patch{"username": "bobby"}))
	assert.Equal(t, []int64{1, 2}, inv.users)

	// 写失败不失效
	assert.ErrorIs(t, s.Update(ctx, "users", 404, store.Patch{"username": "x"}), store.ErrNotFound)
	assert.Len(t, inv.users, 2)

	require.NoError(t, s.Insert(ctx, &product.Product{ID: 11, Code: "F011", Family: product.FamilyFund}))
	assert.Equal(t, 1, inv.all)
	require.NoError(t, s.Update(ctx, "products", 11, store.Patch{"code": "F012"}))
	assert.Equal(t, 2, inv.all)
	assert.Len(t, inv.users, 2)
}

func TestInvalidatingStore_RefreshesCachedUser(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	base := seedStore(t)
	c := NewCachedProvider(NewStoreProvider(base), rdb)
	require.NoError(t, c.InvalidateAll(ctx))
	s := NewInvalidatingStore(base, c, nil)

	u, err := c.User(ctx, 1)
	require.NoError(t, err)
	assert.True(t, u.CurrentBalance.IsZero())
	require.Eventually(t, func() bool {
		return rdb.Exists(ctx, "catalog:user:1").Val() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Update(ctx, "users", 1, store.Patch{"current_balance": decimal.NewFromInt(500)}))
	u, err = c.User(ctx, 1)
	require.NoError(t, err)
	assert.True(t, u.CurrentBalance.Equal(decimal.NewFromInt(500)))

	require.NoError(t, c.InvalidateAll(ctx))
}
