package outcome

import "errors"

// ErrInvalidInput 非正本金/数量、杠杆越界等，计算前直接拒绝
var ErrInvalidInput = errors.New("invalid input")

// 杠杆硬边界 (产品自身范围由下单闸门检查)
const (
	MinLever = 1
	MaxLever = 100
)
