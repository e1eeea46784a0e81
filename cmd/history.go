package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/user/nessus-authcheck/pkg/store"
)

var historyDB string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List runs stored in the SQLite database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := AppConfig.Database
		if historyDB != "" {
			path = historyDB
		}
		if path == "" {
			return errors.New("no database configured (set database or pass --db)")
		}

		st, err := store.Open(path)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  files=%d skipped=%d  %s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Files, r.Failed, r.InputDir)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "db", "", "SQLite database (overrides database)")
	rootCmd.AddCommand(historyCmd)
}
