package main

import (
	"fmt"

	"go_stub_server/app/http_mock_app"
	"go_stub_server/internal/infra/repo"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Rule file utilities",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check that rule files parse and their paths can be registered together",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRulesValidate,
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	registry := repo.NewRuleRegistry()
	for _, path := range args {
		rules, err := http_mock_app.LoadRuleFile(path)
		if err != nil {
			return err
		}
		for _, rule := range rules {
			if err := registry.Add(rule, rule.Priority); err != nil {
				return fmt.Errorf("%s: rule %d: %w", path, rule.ID, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules ok\n", path, len(rules))
	}
	return nil
}
