// 文件: pkg/account/model.go
// 用户账户 - 权限开关 + 交易限额 + 余额快照

package account

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"sim.com/pkg/product"
	"sim.com/pkg/validate"
)

// Role 用户角色
type Role string

const (
	RoleAdmin  Role = "admin"  // 基金经理
	RoleMember Role = "member" // 普通会员
)

// =============================================================================
// 权限
// =============================================================================

// PermissionSet 各产品类别独立的交易开关
type PermissionSet struct {
	Fund       bool `gorm:"column:fund" json:"fund"`
	Option     bool `gorm:"column:option" json:"option"`
	ContractSH bool `gorm:"column:contract_sh" json:"contract_sh"`
	ContractHK bool `gorm:"column:contract_hk" json:"contract_hk"`
	BlockTrade bool `gorm:"column:block_trade" json:"block_trade"`
	IPO        bool `gorm:"column:ipo" json:"ipo"`
}

// Allows 查询某类别的开关; 通用合约 = SH || HK
func (p *PermissionSet) Allows(f product.Family) bool {
	if p == nil {
		return false
	}
	switch f {
	case product.FamilyFund:
		return p.Fund
	case product.FamilyOption:
		return p.Option
	case product.FamilyContract:
		return p.ContractSH || p.ContractHK
	case product.FamilyContractSH:
		return p.ContractSH
	case product.FamilyContractHK:
		return p.ContractHK
	case product.FamilyBlock:
		return p.BlockTrade
	case product.FamilyIPO:
		return p.IPO
	}
	return false
}

// AllowAll 全部打开 (合成数据用)
func AllowAll() *PermissionSet {
	return &PermissionSet{Fund: true, Option: true, ContractSH: true, ContractHK: true, BlockTrade: true, IPO: true}
}

// =============================================================================
// 限额
// =============================================================================

// LimitSet 交易限额 (金额均 >= 0)
type LimitSet struct {
	SingleTradeMax decimal.Decimal `gorm:"column:single_trade_max;type:decimal(20,2)" json:"single_trade_max"`
	DailyTradeMax  decimal.Decimal `gorm:"column:daily_trade_max;type:decimal(20,2)" json:"daily_trade_max"`
	MinTradeAmount decimal.Decimal `gorm:"column:min_trade_amount;type:decimal(20,2)" json:"min_trade_amount"`
}

var ErrInconsistentLimits = errors.New("limits must satisfy min <= single <= daily")

// ValidateLimits 检查 min <= single <= daily 且均非负
// 建档/修改用户时调用，下单闸门不会调用它。
func ValidateLimits(l LimitSet) error {
	for name, v := range map[string]decimal.Decimal{
		"single_trade_max": l.SingleTradeMax,
		"daily_trade_max":  l.DailyTradeMax,
		"min_trade_amount": l.MinTradeAmount,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s is negative", ErrInconsistentLimits, name)
		}
	}
	if l.MinTradeAmount.GreaterThan(l.SingleTradeMax) {
		return fmt.Errorf("%w: min %s > single %s", ErrInconsistentLimits, l.MinTradeAmount, l.SingleTradeMax)
	}
	if l.SingleTradeMax.GreaterThan(l.DailyTradeMax) {
		return fmt.Errorf("%w: single %s > daily %s", ErrInconsistentLimits, l.SingleTradeMax, l.DailyTradeMax)
	}
	return nil
}

// =============================================================================
// User
// =============================================================================

type User struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username string `gorm:"column:username;type:varchar(64);uniqueIndex" json:"username"`
	Email    string `gorm:"column:email;type:varchar(128)" json:"email"`
	Phone    string `gorm:"column:phone;type:varchar(32)" json:"phone"`
	Role     Role   `gorm:"column:role;type:varchar(16)" json:"role"`

	Permissions *PermissionSet `gorm:"embedded;embeddedPrefix:perm_" json:"permissions"`
	Limits      LimitSet       `gorm:"embedded;embeddedPrefix:limit_" json:"limits"`

	// 冗余余额，由写入方自行维护与流水一致
	CurrentBalance decimal.Decimal `gorm:"column:current_balance;type:decimal(20,2)" json:"current_balance"`
}

func (User) TableName() string {
	return "users"
}

// UserSchema 管理端建档表单的校验规则
var UserSchema = validate.Schema{
	"username":         {Rules: []validate.Rule{validate.Required, validate.MinLength(3), validate.MaxLength(32)}, Label: "用户名"},
	"email":            {Rules: []validate.Rule{validate.IsEmail}, Label: "邮箱"},
	"phone":            {Rules: []validate.Rule{validate.IsPhone}, Label: "手机号"},
	"single_trade_max": {Rules: []validate.Rule{validate.Required, validate.IsNumber, validate.Min(0)}, Label: "单笔限额"},
	"daily_trade_max":  {Rules: []validate.Rule{validate.Required, validate.IsNumber, validate.Min(0)}, Label: "单日限额"},
	"min_trade_amount": {Rules: []validate.Rule{validate.Required, validate.IsNumber, validate.Min(0)}, Label: "最低交易额"},
}

// Validate 字段校验 + 限额关系校验
func (u *User) Validate() error {
	res := validate.ValidateForm(map[string]any{
		"username":         u.Username,
		"email":            u.Email,
		"phone":            u.Phone,
		"single_trade_max": u.Limits.SingleTradeMax,
		"daily_trade_max":  u.Limits.DailyTradeMax,
		"min_trade_amount": u.Limits.MinTradeAmount,
	}, UserSchema)
	if err := res.Err(); err != nil {
		return err
	}
	if u.Role != RoleAdmin && u.Role != RoleMember {
		return &validate.ValidationError{Fields: map[string]string{"role": "角色只能是 admin 或 member"}}
	}
	return ValidateLimits(u.Limits)
}
