package cmd

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/nessus-authcheck/pkg/config"
	"github.com/user/nessus-authcheck/pkg/engine"
	"github.com/user/nessus-authcheck/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "nessus-authcheck",
	Short: "Find Nessus scans that ran without adequate credentials",
	Long: `nessus-authcheck flattens .nessus scan reports into a combined workbook
and JSON export, then flags findings that point to authentication,
credential or privilege problems in an "Errors" sheet.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(ConfigFile)
		if err != nil {
			return err
		}
		if DebugMode {
			cfg.Log.Level = "debug"
		}
		closer, err := logging.Setup(logging.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			File:   cfg.Log.File,
		})
		if err != nil {
			return err
		}
		closeLog = closer
		AppConfig = cfg
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeLog != nil {
			return closeLog()
		}
		return nil
	},
}

var (
	DebugMode  bool
	ConfigFile string
	AppConfig  *config.Config

	closeLog func() error
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&ConfigFile, "config", "", "Config file (default ~/.nessus-authcheck/config.yaml)")
}

// loadRules returns the configured rule set, or the built-in one
func loadRules(fs afero.Fs, cfg *config.Config) (*engine.RuleSet, error) {
	if cfg.RulesFile != "" {
		return engine.LoadRulesFile(fs, cfg.RulesFile)
	}
	return engine.DefaultRules()
}
