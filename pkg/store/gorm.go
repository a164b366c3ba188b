// 文件: pkg/store/gorm.go
// 持久化边界 - GORM 实现 (MySQL / PostgreSQL / SQLite)
//
// SQLite 用于本地演示和测试，":memory:" 只开一个连接，否则每个连接各是一个空库。

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 确保实现了接口
var _ Store = (*GormStore)(nil)

// Config 数据库连接配置
type Config struct {
	Driver       string        `yaml:"driver" validate:"nonzero"` // mysql | postgres | sqlite
	DSN          string        `yaml:"dsn" validate:"nonzero"`
	LogLevel     string        `yaml:"log_level"` // silent | error | warn | info
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnMaxLife  time.Duration `yaml:"conn_max_life"`
	AutoMigrate  bool          `yaml:"auto_migrate"`
}

// Open 按驱动打开连接
func Open(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", ErrPersistence, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPersistence, cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	switch {
	case cfg.Driver == "sqlite" && isMemoryDSN(cfg.DSN):
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLife > 0 && !isMemoryDSN(cfg.DSN) {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLife)
	}
	return db, nil
}

// OpenMemory 进程内 SQLite，关闭连接即丢弃
func OpenMemory() (*gorm.DB, error) {
	return Open(Config{Driver: "sqlite", DSN: ":memory:"})
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Migrate 建表 (只在开发环境或首次部署时调用)
func Migrate(db *gorm.DB, models ...Record) error {
	dst := make([]any, 0, len(models))
	for _, m := range models {
		dst = append(dst, m)
	}
	if err := db.AutoMigrate(dst...); err != nil {
		return fmt.Errorf("%w: migrate: %w", ErrPersistence, err)
	}
	return nil
}

func logLevel(s string) logger.LogLevel {
	switch s {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	}
	return logger.Silent
}

// =============================================================================
// GormStore
// =============================================================================

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Insert 单行插入，唯一键冲突返回 ErrDuplicate
func (s *GormStore) Insert(ctx context.Context, rec Record) error {
	err := s.db.WithContext(ctx).Create(rec).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: insert %s: %w", ErrPersistence, rec.TableName(), ErrDuplicate)
	}
	return fmt.Errorf("%w: insert %s: %w", ErrPersistence, rec.TableName(), err)
}

// SelectAll 等值过滤
func (s *GormStore) SelectAll(ctx context.Context, table string, dest any, filters Filters) error {
	query := s.db.WithContext(ctx).Table(table)
	if len(filters) > 0 {
		query = query.Where(map[string]any(filters))
	}
	if err := query.Order("id ASC").Find(dest).Error; err != nil {
		return fmt.Errorf("%w: select %s: %w", ErrPersistence, table, err)
	}
	return nil
}

// Update 按主键局部更新
func (s *GormStore) Update(ctx context.Context, table string, id int64, patch Patch) error {
	return s.UpdateIf(ctx, table, id, nil, patch)
}

// UpdateIf 条件更新: WHERE id = ? AND cond...
func (s *GormStore) UpdateIf(ctx context.Context, table string, id int64, cond Filters, patch Patch) error {
	if len(patch) == 0 {
		return nil
	}
	query := s.db.WithContext(ctx).Table(table).Where("id = ?", id)
	if len(cond) > 0 {
		query = query.Where(map[string]any(cond))
	}
	result := query.Updates(map[string]any(patch))

	if result.Error != nil {
		return fmt.Errorf("%w: update %s#%d: %w", ErrPersistence, table, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: update %s#%d: %w", ErrPersistence, table, id, ErrNotFound)
	}
	return nil
}
