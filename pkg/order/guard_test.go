package order

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sim.com/pkg/product"
)

// 假设本地 Redis 运行在 localhost:6379，连不上就跳过
func setupRedis(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skipping test; redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisGuard_Claim(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	no := "FD" + time.Now().Format("150405.000000")
	t.Cleanup(func() { rdb.Del(ctx, orderNoKeyPrefix+no) })

	guard := NewRedisGuard(rdb, time.Minute)
	ok, err := guard.Claim(ctx, no)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Claim(ctx, no)
	require.NoError(t, err)
	assert.False(t, ok, "second run must not reuse the number")

	ttl, err := rdb.TTL(ctx, orderNoKeyPrefix+no).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

// 相同种子的第二次运行会撞上 Redis 里上次的号
func TestNumberGenerator_RedisAcrossRuns(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	at := time.Now()

	first := NewNumberGenerator(rand.New(rand.NewSource(99)), NewRedisGuard(rdb, time.Minute))
	no, err := first.Next(ctx, product.FamilyOption, at)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Del(ctx, orderNoKeyPrefix+no) })

	second := NewNumberGenerator(rand.New(rand.NewSource(99)), NewRedisGuard(rdb, time.Minute))
	_, err = second.Next(ctx, product.FamilyOption, at)
	assert.True(t, errors.Is(err, ErrDuplicateOrderNo))
}

func TestMemoryGuard_Reserve(t *testing.T) {
	g := NewMemoryGuard()
	g.Reserve("CT1")
	ok, err := g.Claim(context.Background(), "CT1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = g.Claim(context.Background(), "CT2")
	require.NoError(t, err)
	assert.True(t, ok)
}
