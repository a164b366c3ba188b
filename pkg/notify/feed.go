// 文件: pkg/notify/feed.go
// 实时通知缓存
//
// 订阅 notifications.* ，每个用户只保留最近 N 条，供接口直接读取。

package notify

import (
	"fmt"
	"sync"

	"sim.com/pkg/nats"
)

const DefaultFeedSize = 20

type Feed struct {
	mu    sync.RWMutex
	size  int
	items map[int64][]*Notification
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{size: size, items: make(map[int64][]*Notification)}
}

// Handle 符合 nats.Handler 签名
func (f *Feed) Handle(_ string, data []byte) error {
	n, err := nats.Decode[Notification](data)
	if err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	f.Push(n)
	return nil
}

func (f *Feed) Push(n *Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := append(f.items[n.UserID], n)
	if len(list) > f.size {
		list = list[len(list)-f.size:]
	}
	f.items[n.UserID] = list
}

// Recent 最新的在前
func (f *Feed) Recent(userID int64) []*Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	list := f.items[userID]
	out := make([]*Notification, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	return out
}
