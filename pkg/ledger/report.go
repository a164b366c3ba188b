package ledger

import (
	"sync"
	"time"
)

// Report 一次生成的结果统计
type Report struct {
	RunID                string        `json:"run_id"`
	Seed                 int64         `json:"seed"`
	OrdersWritten        int           `json:"orders_written"`
	NotificationsWritten int           `json:"notifications_written"`
	FundLogsWritten      int           `json:"fund_logs_written"`
	BalanceUpdates       int           `json:"balance_updates"`
	Skipped              int           `json:"skipped"`
	DaysCovered          int           `json:"days_covered"`
	PerDay               []DayCount    `json:"per_day"`
	Elapsed              time.Duration `json:"elapsed"`
}

// DayCount 单日写入数
type DayCount struct {
	Date          string `json:"date"`
	Orders        int    `json:"orders"`
	Notifications int    `json:"notifications"`
}

type kind int

const (
	kindOrder kind = iota
	kindNotification
	kindFundLog
	kindBalance
	kindSkipped
)

// tally 写入协程并发计数
type tally struct {
	mu  sync.Mutex
	rep *Report
}

func newTally(runID string, seed int64, days []time.Time) *tally {
	rep := &Report{RunID: runID, Seed: seed, DaysCovered: len(days), PerDay: make([]DayCount, len(days))}
	for i, d := range days {
		rep.PerDay[i].Date = d.Format(time.DateOnly)
	}
	return &tally{rep: rep}
}

func (t *tally) add(day int, k kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch k {
	case kindOrder:
		t.rep.OrdersWritten++
		t.rep.PerDay[day].Orders++
	case kindNotification:
		t.rep.NotificationsWritten++
		t.rep.PerDay[day].Notifications++
	case kindFundLog:
		t.rep.FundLogsWritten++
	case kindBalance:
		t.rep.BalanceUpdates++
	case kindSkipped:
		t.rep.Skipped++
	}
}

// snapshot 返回副本
func (t *tally) snapshot() *Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := *t.rep
	cp.PerDay = append([]DayCount(nil), t.rep.PerDay...)
	return &cp
}
