package iface

import (
	"context"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// RuleService 规则管理接口
type RuleService interface {
	// CreateRule 新增或按 id 替换规则
	CreateRule(ctx context.Context, rule *model.RuleDefinition) error
	// RemoveRule 规则不存在时返回 model.ErrRuleNotFound
	RemoveRule(ctx context.Context, id uint64) error
	GetRule(ctx context.Context, id uint64) (*model.RuleDefinition, error)
	ListRules(ctx context.Context, filter *model.RuleFilter) ([]*model.RuleDefinition, error)
}

type RuleMatchService interface {
	// Dispatch 为请求找到规则并生成响应, 失败时返回 *model.DispatchError
	Dispatch(ctx context.Context, req *model.IncomingRequest) (*model.MockResponse, error)
}
