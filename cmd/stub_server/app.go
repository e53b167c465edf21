package main

import (
	"net/http"

	"go_stub_server/internal/domain/iface"
	"go_stub_server/internal/infra/repo"
)

// Application serve 命令需要的组件
type Application struct {
	Server      *http.Server
	Repo        repo.RuleRepositoryIface
	RuleService iface.RuleService
}

func NewApplication(server *http.Server, ruleRepo repo.RuleRepositoryIface, ruleService iface.RuleService) *Application {
	return &Application{
		Server:      server,
		Repo:        ruleRepo,
		RuleService: ruleService,
	}
}
