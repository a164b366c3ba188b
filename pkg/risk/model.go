package risk

import (
	"errors"
	"time"

	"sim.com/pkg/product"
)

// Code 准入失败原因码。
// 前端按 Code 做分支，按 Message 直接展示给用户。
type Code string

const (
	CodePermissionDenied    Code = "PERMISSION_DENIED"
	CodeBelowMinimum        Code = "BELOW_MINIMUM"
	CodeExceedsSingleLimit  Code = "EXCEEDS_SINGLE_LIMIT"
	CodeExceedsDailyLimit   Code = "EXCEEDS_DAILY_LIMIT"
	CodeLeverageOutOfRange  Code = "LEVERAGE_OUT_OF_RANGE"
	CodeBelowProductMinimum Code = "BELOW_PRODUCT_MINIMUM"
	CodeAboveProductMaximum Code = "ABOVE_PRODUCT_MAXIMUM"
	CodeSubscriptionClosed  Code = "SUBSCRIPTION_CLOSED"
)

// 与 Code 一一对应的哨兵错误，调用方用 errors.Is 判断
var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrBelowMinimum        = errors.New("amount below minimum trade amount")
	ErrExceedsSingleLimit  = errors.New("amount exceeds single trade limit")
	ErrExceedsDailyLimit   = errors.New("amount exceeds daily trade limit")
	ErrLeverageOutOfRange  = errors.New("leverage out of range")
	ErrBelowProductMinimum = errors.New("amount below product minimum")
	ErrAboveProductMaximum = errors.New("amount above product maximum")
	ErrSubscriptionClosed  = errors.New("subscription window closed")
)

var sentinels = map[Code]error{
	CodePermissionDenied:    ErrPermissionDenied,
	CodeBelowMinimum:        ErrBelowMinimum,
	CodeExceedsSingleLimit:  ErrExceedsSingleLimit,
	CodeExceedsDailyLimit:   ErrExceedsDailyLimit,
	CodeLeverageOutOfRange:  ErrLeverageOutOfRange,
	CodeBelowProductMinimum: ErrBelowProductMinimum,
	CodeAboveProductMaximum: ErrAboveProductMaximum,
	CodeSubscriptionClosed:  ErrSubscriptionClosed,
}

// AdmissionError 闸门只返回第一个失败原因，不做聚合
type AdmissionError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *AdmissionError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Is 让 errors.Is(err, ErrExceedsDailyLimit) 之类的判断成立
func (e *AdmissionError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

func reject(code Code, msg string) *AdmissionError {
	return &AdmissionError{Code: code, Message: msg}
}

// Decision 对外的准入结论 {ok, reason?}
type Decision struct {
	OK     bool   `json:"ok"`
	Code   Code   `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// DecisionOf 把 Admit 的错误折成 Decision
func DecisionOf(err error) Decision {
	if err == nil {
		return Decision{OK: true}
	}
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return Decision{Code: ae.Code, Reason: ae.Message}
	}
	return Decision{Reason: err.Error()}
}

// Options 限额检查的附加输入。
//
// Product 用于品种专属检查 (杠杆区间、大宗/IPO 的产品起点与上限、申购窗口);
// 为空时只做通用检查。
// SkipMinimum 由调用方决定是否跳过用户最低交易额。
// Now 为零值时取 Gate 的时钟。
type Options struct {
	Product     *product.Product
	Lever       int
	SkipMinimum bool
	Now         time.Time
}
