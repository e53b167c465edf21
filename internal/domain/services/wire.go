package services

import (
	"go_stub_server/internal/domain/iface"
	"go_stub_server/internal/domain/template"
	configs "go_stub_server/internal/infra/config"

	"github.com/google/wire"
)

// ServiceSet 领域服务
var ServiceSet = wire.NewSet(
	configs.ProvideTemplateConfig,
	configs.ProvideRelayConfig,
	template.DefaultLibrary,
	NewTemplateRenderer,
	NewTemplateResponder,
	NewRelayHandler,
	NewRuleMatchService,
	NewRuleManageService,
	wire.Bind(new(iface.RuleMatchService), new(*RuleMatchService)),
	wire.Bind(new(iface.RuleService), new(*RuleManageService)),
)

// NewTemplateRenderer 按配置选择模板引擎
func NewTemplateRenderer(c *configs.TemplateConfig, lib *template.FuncLibrary) (template.Renderer, error) {
	return template.NewRenderer(c.Engine, lib)
}
