// 文件: pkg/validate/rules.go
// 内置规则

package validate

import (
	"math"
	"reflect"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// =============================================================================
// 非空
// =============================================================================

// Required 必填 (唯一不放行空值的规则)
func Required(value any, label string) Result {
	if isEmpty(value) {
		return fail("%s不能为空", label)
	}
	return ok
}

// =============================================================================
// 长度 (按字符数而非字节数)
// =============================================================================

func MinLength(n int) Rule {
	return func(value any, label string) Result {
		if isEmpty(value) {
			return ok
		}
		if utf8.RuneCountInString(asString(value)) < n {
			return fail("%s长度不能少于%d个字符", label, n)
		}
		return ok
	}
}

func MaxLength(n int) Rule {
	return func(value any, label string) Result {
		if isEmpty(value) {
			return ok
		}
		if utf8.RuneCountInString(asString(value)) > n {
			return fail("%s长度不能超过%d个字符", label, n)
		}
		return ok
	}
}

// =============================================================================
// 数值
// =============================================================================

// IsNumber 必须是有限数字 (NaN / Inf 不算)
func IsNumber(value any, label string) Result {
	if isEmpty(value) {
		return ok
	}
	if _, good := toDecimal(value); !good {
		return fail("%s必须是有效的数字", label)
	}
	return ok
}

// Min 数值下限 (含边界)
func Min(n float64) Rule {
	bound := decimal.NewFromFloat(n)
	return func(value any, label string) Result {
		if isEmpty(value) {
			return ok
		}
		d, good := toDecimal(value)
		if !good {
			return fail("%s必须是有效的数字", label)
		}
		if d.LessThan(bound) {
			return fail("%s不能小于%s", label, bound.String())
		}
		return ok
	}
}

// Max 数值上限 (含边界)
func Max(n float64) Rule {
	bound := decimal.NewFromFloat(n)
	return func(value any, label string) Result {
		if isEmpty(value) {
			return ok
		}
		d, good := toDecimal(value)
		if !good {
			return fail("%s必须是有效的数字", label)
		}
		if d.GreaterThan(bound) {
			return fail("%s不能大于%s", label, bound.String())
		}
		return ok
	}
}

// toDecimal 把各种数值表示统一转成 decimal
func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		return *v, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	case float64:
		return floatDecimal(v)
	case float32:
		return floatDecimal(float64(v))
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromUint64(rv.Uint()), true
	case reflect.Pointer:
		return toDecimal(rv.Elem().Interface())
	}
	return decimal.Zero, false
}

func floatDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// =============================================================================
// 格式
// =============================================================================

func IsEmail(value any, label string) Result {
	if isEmpty(value) {
		return ok
	}
	if !emailPattern.MatchString(asString(value)) {
		return fail("%s格式不正确", label)
	}
	return ok
}

// IsPhone 大陆手机号
func IsPhone(value any, label string) Result {
	if isEmpty(value) {
		return ok
	}
	if !phonePattern.MatchString(asString(value)) {
		return fail("%s格式不正确", label)
	}
	return ok
}

// IsStrongPassword 至少 8 位，且同时包含字母和数字
func IsStrongPassword(value any, label string) Result {
	if isEmpty(value) {
		return ok
	}
	s := asString(value)
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if utf8.RuneCountInString(s) < 8 || !hasLetter || !hasDigit {
		return fail("%s至少8位，且必须包含字母和数字", label)
	}
	return ok
}

// Pattern 自定义正则，message 原样返回
func Pattern(re *regexp.Regexp, message string) Rule {
	return func(value any, label string) Result {
		if isEmpty(value) {
			return ok
		}
		if !re.MatchString(asString(value)) {
			return Result{IsValid: false, Message: message}
		}
		return ok
	}
}
