// 文件: pkg/store/publishing.go
// 写后发布装饰器
//
// 包装底层 Store，插入成功后按表名把记录发给对应的 Sink
// (流水 → Kafka，通知 → NATS)。
// 发布失败只记日志，不影响写入结果。

package store

import (
	"context"

	"go.uber.org/zap"
)

// 确保实现了接口
var _ Store = (*Publishing)(nil)

// Sink 记录发布目标
type Sink interface {
	Publish(ctx context.Context, rec Record) error
}

// SinkFunc 函数适配
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Publish(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

type Publishing struct {
	Store
	sinks  map[string]Sink
	logger *zap.Logger
}

// NewPublishing sinks: 表名 → 发布目标
func NewPublishing(inner Store, sinks map[string]Sink, logger *zap.Logger) *Publishing {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publishing{Store: inner, sinks: sinks, logger: logger}
}

func (p *Publishing) Insert(ctx context.Context, rec Record) error {
	if err := p.Store.Insert(ctx, rec); err != nil {
		return err
	}
	sink, ok := p.sinks[rec.TableName()]
	if !ok {
		return nil
	}
	if err := sink.Publish(ctx, rec); err != nil {
		p.logger.Warn("publish after insert failed",
			zap.String("table", rec.TableName()),
			zap.Error(err))
	}
	return nil
}
