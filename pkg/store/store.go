// 文件: pkg/store/store.go
// 持久化边界
//
// 只提供四种操作: 单行插入、等值过滤查询、按主键局部更新、带条件的按主键更新。
// 不提供事务和迁移接口，批量写入就是多次独立的单行插入。
// 所有失败都包装 ErrPersistence，调用方用 errors.Is 判断。

package store

import (
	"context"
	"errors"
)

var (
	ErrPersistence = errors.New("persistence error")
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate key")
)

// Record 可持久化的行，表名由模型自己决定
type Record interface {
	TableName() string
}

// Filters 列名 → 期望值，多个条件为 AND
type Filters map[string]any

// Patch 列名 → 新值
type Patch map[string]any

// Store 持久化边界接口
//
// Insert 的 rec 必须是结构体指针。
// SelectAll 的 dest 必须是 *[]T 或 *[]*T; 过滤值为切片时按 IN 处理。
// Update 按主键 id 更新，找不到时返回 ErrNotFound。
// UpdateIf 额外要求 cond 全部成立 (例如当前状态)，没有命中同样返回 ErrNotFound，
// 用于状态迁移的比较并交换。
type Store interface {
	Insert(ctx context.Context, rec Record) error
	SelectAll(ctx context.Context, table string, dest any, filters Filters) error
	Update(ctx context.Context, table string, id int64, patch Patch) error
	UpdateIf(ctx context.Context, table string, id int64, cond Filters, patch Patch) error
}
