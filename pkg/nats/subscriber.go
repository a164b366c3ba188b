// 文件: pkg/nats/subscriber.go
// NATS 订阅者

package nats

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Handler 消息处理函数
type Handler func(subject string, data []byte) error

type Subscriber struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *zap.Logger
}

func NewSubscriber(conn *nats.Conn, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{conn: conn, logger: logger.Named("nats")}
}

// Subscribe 订阅主题; queue 非空时为队列订阅 (多实例负载均衡)
func (s *Subscriber) Subscribe(subject, queue string, h Handler) error {
	cb := func(msg *nats.Msg) {
		if err := h(msg.Subject, msg.Data); err != nil {
			s.logger.Warn("handle error", zap.String("subject", msg.Subject), zap.Error(err))
		}
	}
	var (
		sub *nats.Subscription
		err error
	)
	if queue == "" {
		sub, err = s.conn.Subscribe(subject, cb)
	} else {
		sub, err = s.conn.QueueSubscribe(subject, queue, cb)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close 退订 (连接由创建方关闭)
func (s *Subscriber) Close() error {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			return err
		}
	}
	s.subs = nil
	return nil
}

// Decode 反序列化 JSON
func Decode[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
