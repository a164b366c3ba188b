// 文件: pkg/infra/infra.go
// 进程级依赖装配: 数据库、Redis、NATS、Kafka
//
// Redis / NATS / Kafka 都是可选的，配置为空就不连接，
// 对应功能 (目录缓存、订单号跨运行查重、事件扇出) 随之关闭。

package infra

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sim.com/pkg/account"
	"sim.com/pkg/catalog"
	"sim.com/pkg/config"
	"sim.com/pkg/fund"
	"sim.com/pkg/kafka"
	"sim.com/pkg/nats"
	"sim.com/pkg/notify"
	"sim.com/pkg/order"
	"sim.com/pkg/product"
	"sim.com/pkg/store"
)

type Infra struct {
	DB       *gorm.DB
	Base     store.Store // 直连数据库
	Store    store.Store // 写后发布
	Redis    *redis.Client
	NATS     *natsgo.Conn
	Producer *kafka.Producer

	catalog   catalog.Provider
	publisher *nats.Publisher
	logger    *zap.Logger
	closers []func() error
}

// Open 按配置连接各依赖; 任一步失败会关闭已经打开的连接
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Infra, err error) {
	in := &Infra{logger: logger.Named("infra")}
	defer func() {
		if err != nil {
			in.Close()
		}
	}()

	in.DB, err = store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if sqlDB, derr := in.DB.DB(); derr == nil {
		in.closers = append(in.closers, sqlDB.Close)
	}
	if cfg.Database.AutoMigrate {
		if err = store.Migrate(in.DB, &account.User{}, &product.Product{}, &order.Order{}, &fund.FundLog{}, &notify.Notification{}); err != nil {
			return nil, err
		}
	}
	in.Base = store.NewGormStore(in.DB)

	if cfg.Redis.Addr != "" {
		if err = in.openRedis(ctx, cfg.Redis); err != nil {
			return nil, err
		}
	}

	sinks := make(map[string]store.Sink)
	if len(cfg.Kafka.Brokers) > 0 {
		in.Producer, err = kafka.NewProducer(cfg.Kafka, logger)
		if err != nil {
			return nil, err
		}
		in.closers = append(in.closers, in.Producer.Close)
		sinks[fund.FundLog{}.TableName()] = fund.NewJournalPublisher(in.Producer)
	}
	if cfg.NATS.URL != "" {
		in.NATS, err = nats.Connect(cfg.NATS, logger)
		if err != nil {
			return nil, err
		}
		conn := in.NATS
		in.closers = append(in.closers, func() error {
			return conn.Drain()
		})
		in.publisher = nats.NewPublisher(conn)
		sinks[notify.Notification{}.TableName()] = notify.NewPublisher(in.publisher)
	}
	in.Store = store.NewPublishing(in.Base, sinks, logger)

	in.catalog = catalog.NewStoreProvider(in.Base)
	if in.Redis != nil {
		cache := catalog.NewCachedProvider(in.catalog, in.Redis)
		in.catalog = cache
		in.Store = catalog.NewInvalidatingStore(in.Store, cache, logger)
	}

	in.logger.Info("infrastructure ready",
		zap.String("db", cfg.Database.Driver),
		zap.Bool("redis", in.Redis != nil),
		zap.Bool("kafka", in.Producer != nil),
		zap.Bool("nats", in.NATS != nil))
	return in, nil
}

// openRedis 先登记关闭再 ping，ping 失败时客户端也会被 Close 释放
func (in *Infra) openRedis(ctx context.Context, cfg config.Redis) error {
	in.Redis = redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	in.closers = append(in.closers, in.Redis.Close)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := in.Redis.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return nil
}

// Catalog 名册/目录来源; 有 Redis 时加一层缓存，经 Store 的写入会让缓存失效
func (in *Infra) Catalog() catalog.Provider {
	return in.catalog
}

// Flush 等待已发布的 NATS 消息送达; 没有 NATS 时直接返回
func (in *Infra) Flush(ctx context.Context) error {
	if in.publisher == nil {
		return nil
	}
	return in.publisher.Flush(ctx)
}

// Guard 订单号跨运行查重; 没有 Redis 时为 nil
func (in *Infra) Guard(ttl time.Duration) order.Guard {
	if in.Redis == nil {
		return nil
	}
	return order.NewRedisGuard(in.Redis, ttl)
}

// Close 逆序关闭
func (in *Infra) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i](); err != nil {
			in.logger.Warn("close failed", zap.Error(err))
		}
	}
	in.closers = nil
}
