// 文件: pkg/fund/model.go
// 资金流水
//
// 流水只追加，不修改不删除。
// 用户余额 = 该用户全部流水金额之和 (见 Fold)。

package fund

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kafka Topic
const TopicFundLogEvents = "fund_log_events"

// OperateType 流水类型
type OperateType string

const (
	OperateInvest   OperateType = "invest"   // 申购/下单扣款 (金额为负)
	OperateWithdraw OperateType = "withdraw" // 出金 (金额为负)
	OperateAdjust   OperateType = "adjust"   // 人工调账 / 结算入账 (可正可负)
)

func (t OperateType) Valid() bool {
	switch t {
	case OperateInvest, OperateWithdraw, OperateAdjust:
		return true
	}
	return false
}

// FundLog 资金流水
type FundLog struct {
	ID          int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID      int64           `gorm:"column:user_id;index" json:"user_id"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(20,2)" json:"amount"` // 带符号
	OperateType OperateType     `gorm:"column:operate_type;type:varchar(16)" json:"operate_type"`
	OperatorID  int64           `gorm:"column:operator_id" json:"operator_id"`
	Remark      string          `gorm:"column:remark;type:varchar(255)" json:"remark"`
	CreatedAt   time.Time       `gorm:"column:created_at;index" json:"created_at"`
}

func (FundLog) TableName() string {
	return "fund_logs"
}

// NewInvestLog 下单扣款流水 (amount 取正数传入)
func NewInvestLog(id, userID int64, amount decimal.Decimal, orderNo string, at time.Time) *FundLog {
	return &FundLog{
		ID:          id,
		UserID:      userID,
		Amount:      amount.Abs().Neg(),
		OperateType: OperateInvest,
		OperatorID:  userID,
		Remark:      "投资 " + orderNo,
		CreatedAt:   at,
	}
}

// NewCreditLog 入账流水: 撤单退款、结算本息 (amount 取正数传入)
func NewCreditLog(id, userID int64, amount decimal.Decimal, remark string, at time.Time) *FundLog {
	return &FundLog{
		ID:          id,
		UserID:      userID,
		Amount:      amount.Abs(),
		OperateType: OperateAdjust,
		OperatorID:  userID,
		Remark:      remark,
		CreatedAt:   at,
	}
}
