package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/nessus-authcheck/pkg/nessus"
	"github.com/user/nessus-authcheck/pkg/output"
	"github.com/user/nessus-authcheck/pkg/pipeline"
	"github.com/user/nessus-authcheck/pkg/store"
	"github.com/user/nessus-authcheck/pkg/ui"
)

type checkFlags struct {
	all       bool
	recursive bool
	files     string
	name      string
	dir       string
	out       string
	zip       bool
	snapshot  string
	baseline  string
	db        string
	dumpTrees bool
	keepDumps bool
}

var checkOpts checkFlags

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Flatten scan reports and flag authentication errors",
	Example: `  nessus-authcheck check --all --dir ./scans
  nessus-authcheck check -a -r -d ./scans --zip --name customer-q3
  nessus-authcheck check --files a.nessus,b.nessus --baseline last.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := AppConfig
		f := checkOpts

		dir := cfg.InputDir
		if f.dir != "" {
			dir = f.dir
		}
		outDir := cfg.OutputDir
		if f.out != "" {
			outDir = f.out
		}

		fs := afero.NewOsFs()
		rules, err := loadRules(fs, cfg)
		if err != nil {
			return err
		}

		opts := pipeline.Options{
			InputDir:  dir,
			Extension: cfg.Extension,
			Recursive: f.recursive,
			Output: output.Options{
				Dir:          outDir,
				Workbook:     cfg.Workbook,
				JSONExport:   cfg.JSONExport,
				RecordsSheet: cfg.RecordsSheet,
				ErrorsSheet:  cfg.ErrorsSheet,
			},
			Rules:       rules,
			Archive:     f.zip || f.name != "",
			ArchiveName: f.name,
			DumpTrees:   cfg.DumpTrees || f.dumpTrees,
			KeepDumps:   cfg.KeepDumps || f.keepDumps,
			Snapshot:    f.snapshot,
			Baseline:    f.baseline,
			Logger:      logrus.StandardLogger(),
		}
		if f.files != "" {
			opts.Files = nessus.ResolveFiles(fs, dir, f.files)
		}

		dbPath := cfg.Database
		if f.db != "" {
			dbPath = f.db
		}
		if dbPath != "" {
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()
			opts.Recorder = st
		}

		rep, err := pipeline.Run(fs, opts)
		if rep != nil {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderReport(rep))
		}
		return err
	},
}

func init() {
	fl := checkCmd.Flags()
	fl.BoolVarP(&checkOpts.all, "all", "a", false, "Process every report in the input directory (required unless --files is set)")
	fl.BoolVarP(&checkOpts.recursive, "recursive", "r", false, "Also search subdirectories of the input directory")
	fl.StringVarP(&checkOpts.files, "files", "f", "", "Comma-separated list of report files")
	fl.StringVarP(&checkOpts.dir, "dir", "d", "", "Input directory (overrides input_dir)")
	fl.StringVarP(&checkOpts.out, "out", "o", "", "Output directory (overrides output_dir)")
	fl.BoolVarP(&checkOpts.zip, "zip", "z", false, "Bundle the workbook and JSON export into a zip archive")
	fl.StringVarP(&checkOpts.name, "name", "n", "", "Archive base name (implies --zip; default: input directory name)")
	fl.StringVar(&checkOpts.snapshot, "snapshot", "", "Save the classified errors to this snapshot file")
	fl.StringVar(&checkOpts.baseline, "baseline", "", "Compare the classified errors against this snapshot file")
	fl.StringVar(&checkOpts.db, "db", "", "Store the run in this SQLite database (overrides database)")
	fl.BoolVar(&checkOpts.dumpTrees, "dump-trees", false, "Write each parsed report tree as JSON to a temporary directory")
	fl.BoolVar(&checkOpts.keepDumps, "keep-dumps", false, "Keep the tree dumps after the run")
	checkCmd.MarkFlagsMutuallyExclusive("all", "files")
	checkCmd.MarkFlagsOneRequired("all", "files")

	rootCmd.AddCommand(checkCmd)
}
