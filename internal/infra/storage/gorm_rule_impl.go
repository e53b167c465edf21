package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	model "go_stub_server/internal/domain/model/mock_rule"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/utils"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormRuleStorage mysql / sqlite 共用的规则存储
type GormRuleStorage struct {
	db *gorm.DB
}

var _ RuleStoreIface = (*GormRuleStorage)(nil)

// NewMySQLClient 连接 mysql 并设置连接池
func NewMySQLClient(c *configs.StorageConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(c.DatabaseConfig.GetDSN()), &gorm.Config{
		Logger: newGormLogger(&c.DatabaseOptionConfig),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	opt := c.DatabaseOptionConfig
	sqlDB.SetMaxIdleConns(opt.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opt.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opt.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(opt.ConnMaxIdleTime)
	return db, nil
}

// NewSQLiteClient 打开 sqlite 文件, 目录不存在时自动创建
func NewSQLiteClient(c *configs.StorageConfig) (*gorm.DB, error) {
	path := c.SqlitePath
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(&c.DatabaseOptionConfig),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	return db, nil
}

// newGormLogger 把 gorm 的日志接到 logrus 上
func newGormLogger(opt *configs.DatabaseOptionConfig) logger.Interface {
	level := logger.Warn
	switch strings.ToLower(opt.LogLevel) {
	case "silent":
		level = logger.Silent
	case "error":
		level = logger.Error
	case "info":
		level = logger.Info
	}
	return logger.New(utils.GetLogger(), logger.Config{
		SlowThreshold:             opt.SlowThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// NewGormRuleStorage 建表后返回存储
func NewGormRuleStorage(db *gorm.DB) (*GormRuleStorage, error) {
	if err := db.AutoMigrate(&model.RuleDefinition{}); err != nil {
		return nil, fmt.Errorf("failed to migrate rule table: %w", err)
	}
	return &GormRuleStorage{db: db}, nil
}

func (s *GormRuleStorage) SaveRule(ctx context.Context, rule *model.RuleDefinition) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rule).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save rule %d: %w", rule.ID, err)
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *GormRuleStorage) GetRule(ctx context.Context, id uint64) (*model.RuleDefinition, error) {
	rule := &model.RuleDefinition{}
	if err := s.db.WithContext(ctx).First(rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("rule %d: %w", id, model.ErrRuleNotFound)
		}
		return nil, fmt.Errorf("failed to get rule %d: %w", id, err)
	}
	return rule, nil
}

func (s *GormRuleStorage) DeleteRule(ctx context.Context, id uint64) error {
	if err := s.db.WithContext(ctx).Delete(&model.RuleDefinition{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	return nil
}

func (s *GormRuleStorage) BatchGetRules(ctx context.Context, ids []uint64) ([]*model.RuleDefinition, error) {
	var rules []*model.RuleDefinition
	if len(ids) == 0 {
		return rules, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("priority asc, id asc").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to batch get rules: %w", err)
	}
	return rules, nil
}

// ListRules 按 RuleFilter 查询
func (s *GormRuleStorage) ListRules(ctx context.Context, filter *model.RuleFilter) ([]*model.RuleDefinition, error) {
	var rules []*model.RuleDefinition
	db := s.db.WithContext(ctx).Model(&model.RuleDefinition{})

	if filter != nil && filter.MatchIndex != nil {
		db = db.Where("match_index = ?", *filter.MatchIndex)
	}

	if err := db.Order("priority asc, id asc").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list rules with filter: %w", err)
	}
	return rules, nil
}

func (s *GormRuleStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
