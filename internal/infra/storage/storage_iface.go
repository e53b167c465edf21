package storage

import (
	"context"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// RuleStoreIface 规则持久化接口
//
// 内存注册表是运行时的唯一数据源, store 只负责重启后恢复规则.
// ListRules 的结果按 priority, id 升序.
type RuleStoreIface interface {
	// SaveRule 按 id upsert
	SaveRule(ctx context.Context, rule *model.RuleDefinition) error
	// GetRule 不存在时返回 model.ErrRuleNotFound
	GetRule(ctx context.Context, id uint64) (*model.RuleDefinition, error)
	// DeleteRule 删除不存在的规则不报错
	DeleteRule(ctx context.Context, id uint64) error
	BatchGetRules(ctx context.Context, ids []uint64) ([]*model.RuleDefinition, error)

	ListRules(ctx context.Context, filter *model.RuleFilter) ([]*model.RuleDefinition, error)
	Close() error
}
