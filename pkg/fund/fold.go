// 文件: pkg/fund/fold.go
// 余额折叠 / 对账
//
// User.CurrentBalance 是冗余字段，没有事务保证它等于流水之和。
// 这里只负责发现差异，不负责修复。

package fund

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Fold 按用户汇总流水
func Fold(logs []*FundLog) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal)
	for _, l := range logs {
		out[l.UserID] = out[l.UserID].Add(l.Amount)
	}
	return out
}

// BalanceOf 单个用户的流水余额
func BalanceOf(userID int64, logs []*FundLog) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range logs {
		if l.UserID == userID {
			sum = sum.Add(l.Amount)
		}
	}
	return sum
}

// Mismatch 冗余余额与流水余额不一致的记录
type Mismatch struct {
	UserID int64           `json:"user_id"`
	Stored decimal.Decimal `json:"stored"`
	Folded decimal.Decimal `json:"folded"`
	Drift  decimal.Decimal `json:"drift"` // stored - folded
}

// Drift 对账: stored 为 userID → CurrentBalance
// 没有流水的用户按 0 计。
func Drift(stored map[int64]decimal.Decimal, logs []*FundLog) []Mismatch {
	folded := Fold(logs)
	var out []Mismatch
	for uid, s := range stored {
		f := folded[uid]
		if s.Equal(f) {
			continue
		}
		out = append(out, Mismatch{UserID: uid, Stored: s, Folded: f, Drift: s.Sub(f)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
