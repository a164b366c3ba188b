// 文件: pkg/order/consumer.go
// 撤单事件消费者 - 监听管理端发出的撤单请求
// 使用 NATS 队列订阅，多实例只会有一个处理

package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sim.com/pkg/nats"
)

const (
	SubjectOrderCancel = "order.cancel"
	cancelQueue        = "order-service"
)

// CancelEvent 撤单请求
type CancelEvent struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// Canceler 执行撤单的一方 (broker.Engine)
type Canceler interface {
	Cancel(ctx context.Context, orderID int64) error
}

type CancelConsumer struct {
	canceler   Canceler
	subscriber *nats.Subscriber
	logger     *zap.Logger
}

func NewCancelConsumer(canceler Canceler, subscriber *nats.Subscriber, logger *zap.Logger) *CancelConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CancelConsumer{canceler: canceler, subscriber: subscriber, logger: logger.Named("order.cancel")}
}

// Start 启动消费
func (c *CancelConsumer) Start() error {
	return c.subscriber.Subscribe(SubjectOrderCancel, cancelQueue, c.HandleMessage)
}

// HandleMessage 处理一条撤单请求; 不可撤的订单只记日志
func (c *CancelConsumer) HandleMessage(subject string, data []byte) error {
	event, err := nats.Decode[CancelEvent](data)
	if err != nil {
		return fmt.Errorf("unmarshal cancel event: %w", err)
	}
	if event.OrderID == 0 {
		return fmt.Errorf("cancel event on %s without order id", subject)
	}
	if err := c.canceler.Cancel(context.Background(), event.OrderID); err != nil {
		c.logger.Warn("cancel order failed",
			zap.Int64("order_id", event.OrderID),
			zap.String("reason", event.Reason),
			zap.Error(err))
		return err
	}
	c.logger.Info("order cancelled", zap.Int64("order_id", event.OrderID), zap.String("reason", event.Reason))
	return nil
}
