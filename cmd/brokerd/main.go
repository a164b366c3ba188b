// 文件: cmd/brokerd/main.go
// 下单服务: 准入检查 / 预览 / 下单 / 撤单 HTTP 接口
//
// Kafka 可用时消费资金流水维护余额投影，
// NATS 可用时订阅实时通知并接收管理端撤单请求。

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sim.com/pkg/api"
	"sim.com/pkg/broker"
	"sim.com/pkg/config"
	"sim.com/pkg/fund"
	"sim.com/pkg/infra"
	"sim.com/pkg/kafka"
	"sim.com/pkg/logx"
	"sim.com/pkg/nats"
	"sim.com/pkg/notify"
	"sim.com/pkg/order"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "brokerd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	logger, err := logx.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := infra.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer in.Close()

	ids, err := order.NewIDGen(cfg.NodeID)
	if err != nil {
		return err
	}
	engine, err := broker.NewEngine(in.Store, in.Catalog(), ids,
		broker.WithGuard(in.Guard(cfg.Generator.GuardTTL)),
		broker.WithLogger(logger))
	if err != nil {
		return err
	}

	// ==================== 到期结算 ====================
	if cfg.Broker.SettleInterval > 0 {
		go engine.RunSettlement(ctx, cfg.Broker.SettleInterval)
		logger.Info("settlement loop started", zap.Duration("interval", cfg.Broker.SettleInterval))
	}

	// ==================== 读模型 ====================
	var balances api.Balances
	if len(cfg.Kafka.Brokers) > 0 {
		projector := fund.NewProjector(logger)
		consumer, err := kafka.NewConsumer(cfg.Kafka, []string{fund.TopicFundLogEvents}, projector.Handle, logger)
		if err != nil {
			return err
		}
		consumer.Start(ctx)
		defer func() { _ = consumer.Stop() }()
		balances = projector
	}

	var feed api.Notifications
	if in.NATS != nil {
		sub := nats.NewSubscriber(in.NATS, logger)
		defer func() { _ = sub.Close() }()
		f := notify.NewFeed(notify.DefaultFeedSize)
		if err := sub.Subscribe(notify.SubjectNotifications+".>", "", f.Handle); err != nil {
			return err
		}
		if err := order.NewCancelConsumer(engine, sub, logger).Start(); err != nil {
			return err
		}
		feed = f
	}

	// ==================== HTTP ====================
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewRouter(engine, feed, balances, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
