package validate

import (
	"math"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// 除 Required 外的全部规则
func nonRequiredRules() map[string]Rule {
	return map[string]Rule{
		"minLength":        MinLength(3),
		"maxLength":        MaxLength(3),
		"isNumber":         IsNumber,
		"min":              Min(10),
		"max":              Max(10),
		"isEmail":          IsEmail,
		"isPhone":          IsPhone,
		"isStrongPassword": IsStrongPassword,
		"pattern":          Pattern(regexp.MustCompile(`^x+$`), "只能是 x"),
	}
}

func TestRules_EmptyValuesPass(t *testing.T) {
	var nilStr *string
	empties := []any{nil, "", "   ", nilStr}

	for name, rule := range nonRequiredRules() {
		for _, v := range empties {
			r := rule(v, "字段")
			assert.Truef(t, r.IsValid, "rule %s should pass empty value %#v", name, v)
		}
	}
}

func TestRules_EmptyValuesPass_Property(t *testing.T) {
	rules := nonRequiredRules()
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}

	rapid.Check(t, func(t *rapid.T) {
		name := rapid.SampledFrom(names).Draw(t, "rule")
		label := rapid.String().Draw(t, "label")
		empty := rapid.SampledFrom([]any{nil, ""}).Draw(t, "empty")
		if r := rules[name](empty, label); !r.IsValid {
			t.Fatalf("rule %s rejected empty value: %s", name, r.Message)
		}
	})
}

func TestRequired(t *testing.T) {
	assert.False(t, Required(nil, "用户名").IsValid)
	assert.Equal(t, "用户名不能为空", Required("", "用户名").Message)
	assert.False(t, Required("  ", "用户名").IsValid)
	assert.True(t, Required("alice", "用户名").IsValid)
	assert.True(t, Required(0, "金额").IsValid)
}

func TestLength_CountsRunes(t *testing.T) {
	assert.True(t, MinLength(2)("张三", "姓名").IsValid)
	assert.False(t, MinLength(3)("张三", "姓名").IsValid)
	assert.True(t, MaxLength(2)("张三", "姓名").IsValid)

	r := MaxLength(4)("abcde", "备注")
	assert.False(t, r.IsValid)
	assert.Equal(t, "备注长度不能超过4个字符", r.Message)
}

func TestNumberRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		value any
		want  bool
	}{
		{"int", IsNumber, 42, true},
		{"float string", IsNumber, "3.14", true},
		{"decimal", IsNumber, decimal.RequireFromString("1.5"), true},
		{"garbage", IsNumber, "12abc", false},
		{"nan", IsNumber, math.NaN(), false},
		{"inf", IsNumber, math.Inf(1), false},
		{"bool", IsNumber, true, false},
		{"min boundary", Min(100), 100, true},
		{"below min", Min(100), "99.99", false},
		{"max boundary", Max(100), 100.0, true},
		{"above max", Max(100), uint(101), false},
		{"min non-number", Min(1), "abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule(tt.value, "金额").IsValid)
		})
	}

	assert.Equal(t, "金额不能小于100", Min(100)(50, "金额").Message)
}

func TestFormatRules(t *testing.T) {
	assert.True(t, IsEmail("fm@example.com", "邮箱").IsValid)
	assert.False(t, IsEmail("fm@example", "邮箱").IsValid)

	assert.True(t, IsPhone("13800138000", "手机号").IsValid)
	assert.False(t, IsPhone("12800138000", "手机号").IsValid)
	assert.False(t, IsPhone("1380013800", "手机号").IsValid)

	assert.True(t, IsStrongPassword("abc12345", "密码").IsValid)
	assert.False(t, IsStrongPassword("abcdefgh", "密码").IsValid)
	assert.False(t, IsStrongPassword("12345678", "密码").IsValid)
	assert.False(t, IsStrongPassword("ab12", "密码").IsValid)

	code := Pattern(regexp.MustCompile(`^[A-Z]{2}\d{4}$`), "产品代码格式错误")
	assert.True(t, code("HK0700", "代码").IsValid)
	assert.Equal(t, "产品代码格式错误", code("hk0700", "代码").Message)
}

func TestValidate_FirstFailureWins(t *testing.T) {
	rules := []Rule{Required, IsNumber, Min(100)}

	assert.Equal(t, "金额不能为空", Validate("", rules, "金额").Message)
	assert.Equal(t, "金额必须是有效的数字", Validate("x", rules, "金额").Message)
	assert.Equal(t, "金额不能小于100", Validate("50", rules, "金额").Message)
	assert.True(t, Validate("150", rules, "金额").IsValid)
}

func TestValidateForm_CollectsAllFields(t *testing.T) {
	schema := Schema{
		"username": {Rules: []Rule{Required, MinLength(3)}, Label: "用户名"},
		"email":    {Rules: []Rule{IsEmail}, Label: "邮箱"},
		"phone":    {Rules: []Rule{IsPhone}, Label: "手机号"},
	}

	res := ValidateForm(map[string]any{
		"username": "",
		"email":    "not-an-email",
		"phone":    "",
	}, schema)

	require.False(t, res.IsValid)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "用户名不能为空", res.Errors["username"])
	assert.Equal(t, "邮箱格式不正确", res.Errors["email"])

	var verr *ValidationError
	require.ErrorAs(t, res.Err(), &verr)
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, verr.Error(), "email: 邮箱格式不正确")
}

func TestValidateForm_Valid(t *testing.T) {
	res := ValidateForm(map[string]any{"amount": "500"}, Schema{
		"amount": {Rules: []Rule{Required, IsNumber, Min(1)}},
	})
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.NoError(t, res.Err())
}
