// 文件: pkg/store/storetest/storetest.go
// 测试用 Store: 进程内 SQLite 上的 GormStore，加插入故障注入和行数统计

package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gorm.io/gorm"

	"sim.com/pkg/store"
)

// InsertHook 插入前回调，返回错误则本次插入失败
type InsertHook func(rec store.Record) error

// Store 满足 store.Store
type Store struct {
	*store.GormStore
	db *gorm.DB

	mu   sync.Mutex
	hook InsertHook
}

var _ store.Store = (*Store)(nil)

// New 建一个空库并迁移 models; 测试结束自动关闭
func New(t testing.TB, models ...store.Record) *Store {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.Migrate(db, models...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &Store{GormStore: store.NewGormStore(db), db: db}
}

func (s *Store) SetInsertHook(h InsertHook) {
	s.mu.Lock()
	s.hook = h
	s.mu.Unlock()
}

func (s *Store) Insert(ctx context.Context, rec store.Record) error {
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		if err := hook(rec); err != nil {
			return fmt.Errorf("%w: insert %s: %w", store.ErrPersistence, rec.TableName(), err)
		}
	}
	return s.GormStore.Insert(ctx, rec)
}

// Count 表行数; 表不存在按 0
func (s *Store) Count(table string) int {
	var n int64
	if err := s.db.Table(table).Count(&n).Error; err != nil {
		return 0
	}
	return int(n)
}
