// 文件: pkg/fund/publisher.go
// 流水事件发布
//
// FundLog 实现 kafka.Message，按 UserID 分区保证同一用户的流水有序。

package fund

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"sim.com/pkg/kafka"
	"sim.com/pkg/store"
)

func (l *FundLog) Topic() string {
	return TopicFundLogEvents
}

func (l *FundLog) Key() string {
	return strconv.FormatInt(l.UserID, 10)
}

func (l *FundLog) Value() ([]byte, error) {
	return json.Marshal(l)
}

// JournalPublisher 把写入成功的流水发往 Kafka，挂在 store.Publishing 上使用
type JournalPublisher struct {
	sender kafka.Sender
}

var _ store.Sink = (*JournalPublisher)(nil)

func NewJournalPublisher(sender kafka.Sender) *JournalPublisher {
	return &JournalPublisher{sender: sender}
}

func (p *JournalPublisher) Publish(ctx context.Context, rec store.Record) error {
	l, ok := rec.(*FundLog)
	if !ok {
		return fmt.Errorf("journal publisher: unexpected record %T", rec)
	}
	return p.sender.Send(ctx, l)
}
