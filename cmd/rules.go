package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/nessus-authcheck/pkg/engine"
	"github.com/user/nessus-authcheck/pkg/ui"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the known-bad plugins and text extractors in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := loadRules(afero.NewOsFs(), AppConfig)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderRules(rules))
		return nil
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the built-in rule set as YAML (a starting point for rules_file)",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.OutOrStdout().Write(engine.DefaultRulesYAML())
	},
}

func init() {
	rulesCmd.AddCommand(rulesExportCmd)
	rootCmd.AddCommand(rulesCmd)
}
