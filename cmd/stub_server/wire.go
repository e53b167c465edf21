//go:build wireinject
// +build wireinject

package main

import (
	"go_stub_server/app/http_mock_app"
	"go_stub_server/internal/domain/services"
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/repo"

	"github.com/google/wire"
)

func InitializeApplication(cfg *configs.ServerConfig) (*Application, func(), error) {
	wire.Build(repo.RepoSet, services.ServiceSet, http_mock_app.AppSet, NewApplication)
	return &Application{}, nil, nil
}
