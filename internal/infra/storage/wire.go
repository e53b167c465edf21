package storage

import (
	"context"
	"fmt"

	configs "go_stub_server/internal/infra/config"
	"go_stub_server/utils"

	"github.com/google/wire"
	"gorm.io/gorm"
)

// StorageSet is a Wire provider set that includes all storage-related providers
var StorageSet = wire.NewSet(
	configs.ProvideStorageConfig,
	NewRuleStore,
)

// NewRuleStore 按 driver 创建规则存储, cleanup 负责关闭连接
func NewRuleStore(c *configs.StorageConfig) (RuleStoreIface, func(), error) {
	var (
		store RuleStoreIface
		err   error
	)
	switch c.Driver {
	case "", configs.DriverNone:
		store = nopRuleStorage{}
	case configs.DriverMySQL:
		store, err = openGormStore(NewMySQLClient(c))
	case configs.DriverSQLite:
		store, err = openGormStore(NewSQLiteClient(c))
	case configs.DriverRedis:
		client, cerr := NewRedisClient(context.Background(), &c.RedisConfig)
		if cerr != nil {
			return nil, nil, cerr
		}
		store = NewRedisRuleStorage(client, c.RedisConfig.KeyPrefix)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	if err != nil {
		return nil, nil, err
	}

	utils.GetLogger().WithField("driver", c.Driver).Info("rule store ready")
	cleanup := func() {
		if err := store.Close(); err != nil {
			utils.GetLogger().WithError(err).Warn("failed to close rule store")
		}
	}
	return store, cleanup, nil
}

func openGormStore(db *gorm.DB, err error) (RuleStoreIface, error) {
	if err != nil {
		return nil, err
	}
	s, err := NewGormRuleStorage(db)
	if err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return s, nil
}
