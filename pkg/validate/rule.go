// 文件: pkg/validate/rule.go
// 通用字段校验规则
//
// 约定: 除 Required 外，所有规则对空值 (nil / "" / 纯空白) 直接放行。
// 需要非空时，调用方必须显式组合 Required。

package validate

import (
	"fmt"
	"reflect"
	"strings"
)

// Result 单条规则的校验结果
type Result struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message,omitempty"`
}

// Rule 校验规则: (值, 字段名) → 结果
// 规则必须是纯函数，不持有可变状态。
type Rule func(value any, label string) Result

var ok = Result{IsValid: true}

func fail(format string, args ...any) Result {
	return Result{IsValid: false, Message: fmt.Sprintf(format, args...)}
}

// Validate 按顺序执行规则，返回第一条失败规则的结果
func Validate(value any, rules []Rule, label string) Result {
	for _, rule := range rules {
		if r := rule(value, label); !r.IsValid {
			return r
		}
	}
	return ok
}

// isEmpty 判断是否为空值
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case *string:
		return v == nil || strings.TrimSpace(*v) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isEmpty(rv.Elem().Interface())
	}
	return false
}

// asString 取字符串形式 (数字也按字面量处理)
func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case *string:
		return *v
	case fmt.Stringer:
		return v.String()
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		return asString(rv.Elem().Interface())
	}
	return fmt.Sprint(value)
}
