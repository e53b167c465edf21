package storage

import (
	"context"
	"fmt"

	model "go_stub_server/internal/domain/model/mock_rule"
)

// nopRuleStorage driver 为 none 时使用, 规则只存在内存中
type nopRuleStorage struct{}

var _ RuleStoreIface = nopRuleStorage{}

func (nopRuleStorage) SaveRule(context.Context, *model.RuleDefinition) error { return nil }

func (nopRuleStorage) GetRule(_ context.Context, id uint64) (*model.RuleDefinition, error) {
	return nil, fmt.Errorf("rule %d: %w", id, model.ErrRuleNotFound)
}

func (nopRuleStorage) DeleteRule(context.Context, uint64) error { return nil }

func (nopRuleStorage) BatchGetRules(context.Context, []uint64) ([]*model.RuleDefinition, error) {
	return nil, nil
}

func (nopRuleStorage) ListRules(context.Context, *model.RuleFilter) ([]*model.RuleDefinition, error) {
	return nil, nil
}

func (nopRuleStorage) Close() error { return nil }
