package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"go_stub_server/app/http_mock_app"
	configs "go_stub_server/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitializeApplicationPersistsRules(t *testing.T) {
	cfg := configs.DefaultServerConfig()
	cfg.Storage.Driver = configs.DriverSQLite
	cfg.Storage.SqlitePath = filepath.Join(t.TempDir(), "rules.db")
	ctx := context.Background()

	rules, err := http_mock_app.ParseRules([]byte(`
- id: 7
  req:
    path: /orders/{id}
  resp:
    body_text: order {{ path.id }}
`))
	require.NoError(t, err)

	app, cleanup, err := InitializeApplication(cfg)
	require.NoError(t, err)
	require.NoError(t, app.RuleService.CreateRule(ctx, rules[0]))
	app.Repo.Flush()
	cleanup()

	// 重新初始化后从 sqlite 恢复
	app, cleanup, err = InitializeApplication(cfg)
	require.NoError(t, err)
	defer cleanup()
	n, err := app.Repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := app.RuleService.GetRule(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "/orders/{id}", got.Req.Path)
	assert.Equal(t, cfg.Server.Addr, app.Server.Addr)
}

func TestInitializeApplicationBadEngine(t *testing.T) {
	cfg := configs.DefaultServerConfig()
	cfg.Template.Engine = "jinja"
	_, _, err := InitializeApplication(cfg)
	assert.Error(t, err)
}

func TestRulesValidateCommand(t *testing.T) {
	good := writeFile(t, "good.yaml", `
- id: 1
  req:
    path: /a/{id}
- id: 2
  req:
    path: /a/{id}
`)
	conflict := writeFile(t, "conflict.yaml", `
- id: 1
  req:
    path: /a/{id}
- id: 2
  req:
    path: /a/{name}
`)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		wantOut string
	}{
		{"ok", []string{"rules", "validate", good}, false, "2 rules ok"},
		{"param name conflict", []string{"rules", "validate", conflict}, true, ""},
		{"missing file", []string{"rules", "validate", filepath.Join(t.TempDir(), "none.yaml")}, true, ""},
		{"no args", []string{"rules", "validate"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(tt.args)
			err := rootCmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.wantOut)
		})
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("STUB_CONFIG_PATH", "")
	t.Setenv("STUB_ENV", "does-not-exist")
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
