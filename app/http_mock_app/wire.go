package http_mock_app

import (
	configs "go_stub_server/internal/infra/config"

	"github.com/google/wire"
)

// AppSet http 层
var AppSet = wire.NewSet(
	configs.ProvideHTTPConfig,
	NewMockController,
	NewRouter,
	NewHTTPServer,
)
