// 文件: pkg/order/model.go
// 统一订单模型，按产品类别区分专属字段 (基金/期权/合约/大宗/IPO)

package order

import (
	"time"

	"github.com/shopspring/decimal"

	"sim.com/pkg/product"
)

// =============================================================================
// 订单状态
// =============================================================================

// Status 生命周期: pending → holding/open → settled/closed/cancelled
type Status string

const (
	StatusPending   Status = "pending"   // 待确认 (IPO 申购)
	StatusHolding   Status = "holding"   // 持有中 (基金)
	StatusOpen      Status = "open"      // 持仓中 (期权/合约)
	StatusSettled   Status = "settled"   // 已结算
	StatusClosed    Status = "closed"    // 已平仓
	StatusCancelled Status = "cancelled" // 已撤销
)

// Terminal 终态订单只读
func (s Status) Terminal() bool {
	return s == StatusSettled || s == StatusClosed || s == StatusCancelled
}

// =============================================================================
// 方向
// =============================================================================

// Direction 期权预测方向 / 合约开仓方向
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ProfitStatus 期权结果
type ProfitStatus string

const (
	ProfitWin  ProfitStatus = "win"
	ProfitLoss ProfitStatus = "loss"
)

// =============================================================================
// Order
// =============================================================================

type Order struct {
	ID        int64          `gorm:"primaryKey;autoIncrement:false" json:"id"` // 雪花ID
	OrderNo   string         `gorm:"column:order_no;type:varchar(40);uniqueIndex" json:"order_no"`
	UserID    int64          `gorm:"column:user_id;index" json:"user_id"`
	ProductID int64          `gorm:"column:product_id;index" json:"product_id"`
	Family    product.Family `gorm:"column:family;type:varchar(16);index" json:"family"`

	// 本金 / 投入金额 (期权为权利金，合约为名义价值)
	Principal decimal.Decimal `gorm:"column:principal;type:decimal(20,2)" json:"principal"`

	Status   Status     `gorm:"column:status;type:varchar(16);index" json:"status"`
	OpenedAt time.Time  `gorm:"column:opened_at;index" json:"opened_at"`
	ClosedAt *time.Time `gorm:"column:closed_at" json:"closed_at,omitempty"`

	// 结算前为 NULL
	ResultAmount decimal.NullDecimal `gorm:"column:result_amount;type:decimal(20,2)" json:"result_amount"`

	// ===== 基金 ===== (SettleAt 期权/合约共用)
	HoldingDays int                 `gorm:"column:holding_days" json:"holding_days,omitempty"`
	SettleAt    *time.Time          `gorm:"column:settle_at" json:"settle_at,omitempty"`
	YieldAmount decimal.NullDecimal `gorm:"column:yield_amount;type:decimal(20,2)" json:"yield_amount"`

	// ===== 期权 ===== (到期时间记在 SettleAt)
	PredictDirection Direction    `gorm:"column:predict_direction;type:varchar(8)" json:"predict_direction,omitempty"`
	ProfitStatus     ProfitStatus `gorm:"column:profit_status;type:varchar(8)" json:"profit_status,omitempty"`

	// ===== 合约 =====
	OrderPrice   decimal.Decimal `gorm:"column:order_price;type:decimal(20,4)" json:"order_price"`
	Quantity     int64           `gorm:"column:quantity" json:"quantity,omitempty"`
	Lever        int             `gorm:"column:lever" json:"lever,omitempty"`
	MarginAmount decimal.Decimal `gorm:"column:margin_amount;type:decimal(20,2)" json:"margin_amount"`
	Direction    Direction       `gorm:"column:direction;type:varchar(8)" json:"direction,omitempty"`
	// 开仓时抽定的平仓盈亏，平仓前不对外
	PnL decimal.NullDecimal `gorm:"column:pnl;type:decimal(20,2)" json:"-"`

	// ===== 大宗 / IPO =====
	Fee    decimal.Decimal `gorm:"column:fee;type:decimal(20,2)" json:"fee"`
	Shares int64           `gorm:"column:shares" json:"shares,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// =============================================================================
// 便捷方法
// =============================================================================

func (o *Order) IsActive() bool {
	return !o.Status.Terminal()
}

// CountedAmount 计入单日限额的金额
// 合约按保证金计，不按名义价值; 其他按本金/权利金计
func (o *Order) CountedAmount() decimal.Decimal {
	if o.Family.Base() == product.FamilyContract {
		return o.MarginAmount
	}
	return o.Principal
}

// Settle 写入结算结果并转入终态
func (o *Order) Settle(result decimal.Decimal, at time.Time, status Status) {
	closed := at
	o.ResultAmount = decimal.NewNullDecimal(result)
	o.ClosedAt = &closed
	o.Status = status
}
