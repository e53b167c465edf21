package services

import (
	"context"
	"fmt"

	"go_stub_server/internal/domain/iface"
	model "go_stub_server/internal/domain/model/mock_rule"
	"go_stub_server/internal/infra/repo"

	"github.com/go-playground/validator/v10"
)

type RuleManageService struct {
	ruleRepo repo.RuleRepositoryIface
	validate *validator.Validate
}

var _ iface.RuleService = (*RuleManageService)(nil)

func NewRuleManageService(ruleRepo repo.RuleRepositoryIface) *RuleManageService {
	return &RuleManageService{
		ruleRepo: ruleRepo,
		validate: validator.New(),
	}
}

// CreateRule 创建规则, 已存在的 id 会被整体替换
func (s *RuleManageService) CreateRule(ctx context.Context, rule *model.RuleDefinition) error {
	if err := s.validateRule(rule); err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	if err := s.ruleRepo.SaveRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to save rule to repository: %w", err)
	}

	return nil
}

func (s *RuleManageService) RemoveRule(ctx context.Context, id uint64) error {
	return s.ruleRepo.DeleteRule(ctx, id)
}

func (s *RuleManageService) GetRule(ctx context.Context, id uint64) (*model.RuleDefinition, error) {
	return s.ruleRepo.FindByID(ctx, id)
}

func (s *RuleManageService) ListRules(ctx context.Context, filter *model.RuleFilter) ([]*model.RuleDefinition, error) {
	return s.ruleRepo.ListRules(ctx, filter)
}

func (s *RuleManageService) validateRule(rule *model.RuleDefinition) error {
	if rule == nil {
		return fmt.Errorf("rule is nil")
	}
	// 结构体标签: path 必填且以 / 开头, relay_url 为 url, status 在 100-599
	if err := s.validate.Struct(rule); err != nil {
		return err
	}
	// 路径语法、正则、schema 等
	return rule.Validate()
}
