package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/nessus-authcheck/pkg/output"
	"github.com/user/nessus-authcheck/pkg/pipeline"
)

var (
	classifyOut      string
	classifyWorkbook string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [export.json]",
	Short: "Classify an existing JSON export and add the Errors sheet to its workbook",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := AppConfig
		outDir := cfg.OutputDir
		if classifyOut != "" {
			outDir = classifyOut
		}

		export := filepath.Join(outDir, cfg.JSONExport)
		if len(args) == 1 {
			export = args[0]
		}

		fs := afero.NewOsFs()
		rules, err := loadRules(fs, cfg)
		if err != nil {
			return err
		}

		opts := output.Options{
			Dir:          outDir,
			Workbook:     cfg.Workbook,
			JSONExport:   cfg.JSONExport,
			RecordsSheet: cfg.RecordsSheet,
			ErrorsSheet:  cfg.ErrorsSheet,
		}
		if classifyWorkbook != "" {
			opts.Dir = filepath.Dir(classifyWorkbook)
			opts.Workbook = filepath.Base(classifyWorkbook)
		}
		errs, err := pipeline.ClassifyExport(fs, export, opts, rules)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Added %d errors to sheet %q of %s\n",
			len(errs), opts.ErrorsSheet, filepath.Join(opts.Dir, opts.Workbook))
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyOut, "out", "o", "", "Directory holding the workbook and export (overrides output_dir)")
	classifyCmd.Flags().StringVarP(&classifyWorkbook, "workbook", "w", "", "Workbook to add the errors sheet to")
	rootCmd.AddCommand(classifyCmd)
}
