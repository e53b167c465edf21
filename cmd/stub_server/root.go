package main

import (
	"errors"
	"io/fs"
	"os"

	configs "go_stub_server/internal/infra/config"
	"go_stub_server/utils"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "stub_server",
	Short:         "Programmable HTTP stub server",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// loadConfig 未指定配置文件且默认文件不存在时使用默认配置
func loadConfig(path string) (*configs.ServerConfig, error) {
	explicit := path != "" || os.Getenv("STUB_CONFIG_PATH") != ""
	cfg, err := configs.LoadServerConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		utils.GetLogger().Info("no config file found, using defaults")
		return configs.DefaultServerConfig(), nil
	}
	return nil, err
}
