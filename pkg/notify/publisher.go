// 文件: pkg/notify/publisher.go
// 通知推送 (NATS)，挂在 store.Publishing 上，写入成功后推送

package notify

import (
	"context"
	"fmt"

	"sim.com/pkg/store"
)

// Bus 发布通道 (*nats.Publisher 满足)
type Bus interface {
	Publish(ctx context.Context, subject string, v any) error
}

type Publisher struct {
	bus     Bus
	subject string
}

var _ store.Sink = (*Publisher)(nil)

func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus, subject: SubjectNotifications}
}

func (p *Publisher) Publish(ctx context.Context, rec store.Record) error {
	n, ok := rec.(*Notification)
	if !ok {
		return fmt.Errorf("notify publisher: unexpected record %T", rec)
	}
	return p.bus.Publish(ctx, fmt.Sprintf("%s.%d", p.subject, n.UserID), n)
}
