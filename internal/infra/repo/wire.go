package repo

import (
	configs "go_stub_server/internal/infra/config"
	"go_stub_server/internal/infra/storage"

	"github.com/google/wire"
)

var RepoSet = wire.NewSet(
	configs.ProvideRuleRepoConfig,
	storage.StorageSet,
	NewRuleRegistry,
	NewRuleRepoImpl,
)
