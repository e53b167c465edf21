package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go_stub_server/app/http_mock_app"
	"go_stub_server/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	configPath string
	addr       string
	rules      []string
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stub server",
	Example: `  stub_server serve --config stub.local.yaml
  stub_server serve --addr :9090 --rules rules/users.yaml --rules rules/orders.json`,
	RunE: runServe,
}

func init() {
	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to config file (default $STUB_CONFIG_PATH or stub.<STUB_ENV>.yaml)")
	serveCmd.Flags().StringVar(&f.addr, "addr", "", "Listen address, overrides server.addr")
	serveCmd.Flags().StringArrayVar(&f.rules, "rules", nil, "Rule file to load at startup (repeatable)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	f := &serveFlagVals

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	cfg.Rules = append(cfg.Rules, f.rules...)

	if err := utils.InitLogger(cfg.LogOptions()); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	log := utils.GetLogger()

	app, cleanup, err := InitializeApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to init application: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := app.Repo.Load(ctx); err != nil {
		return err
	}
	for _, path := range cfg.Rules {
		rules, err := http_mock_app.LoadRuleFile(path)
		if err != nil {
			return err
		}
		for _, rule := range rules {
			if err := app.RuleService.CreateRule(ctx, rule); err != nil {
				return fmt.Errorf("%s: rule %d: %w", path, rule.ID, err)
			}
		}
		log.WithFields(logrus.Fields{
			"file":  path,
			"count": len(rules),
		}).Info("rule file loaded")
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", app.Server.Addr).Info("stub server listening")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
