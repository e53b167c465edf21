package repo

import (
	"context"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// RuleRepositoryIface 规则仓库
//
// 读写都走内存注册表, 持久化在后台异步完成.
type RuleRepositoryIface interface {
	// SaveRule 按 id 整体替换, 优先级取 rule.Priority
	SaveRule(ctx context.Context, rule *model.RuleDefinition) error
	// DeleteRule 规则不存在时返回 model.ErrRuleNotFound
	DeleteRule(ctx context.Context, id uint64) error
	FindByID(ctx context.Context, id uint64) (*model.RuleDefinition, error)
	// ListRules 按 priority, id 排序, filter 为 nil 时返回全部
	ListRules(ctx context.Context, filter *model.RuleFilter) ([]*model.RuleDefinition, error)

	// Candidates 路由查询, 见 RuleRegistry.Candidates
	Candidates(path string) (*Lookup, bool)

	// Load 从存储恢复规则, 返回加载成功的条数
	Load(ctx context.Context) (int, error)
	// Flush 等待已提交的持久化任务完成
	Flush()
	Close() error
}
