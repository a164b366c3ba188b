// 文件: pkg/validate/form.go
// 整表校验: 每个字段都会执行，错误全部收集，不跨字段短路

package validate

import (
	"sort"
	"strings"
)

// Field 单个字段的规则配置
type Field struct {
	Rules []Rule
	Label string
}

// Schema 字段名 → 规则
type Schema map[string]Field

// FormResult 整表结果
type FormResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  map[string]string `json:"errors"`
}

// Err 有错误时返回 *ValidationError，否则 nil
func (r FormResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Fields: r.Errors}
}

// ValidateForm 校验整条记录
func ValidateForm(data map[string]any, schema Schema) FormResult {
	errs := make(map[string]string)
	for name, field := range schema {
		label := field.Label
		if label == "" {
			label = name
		}
		if r := Validate(data[name], field.Rules, label); !r.IsValid {
			errs[name] = r.Message
		}
	}
	return FormResult{IsValid: len(errs) == 0, Errors: errs}
}

// ValidationError 字段级错误集合
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
