package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/refmark/internal/config"
	"github.com/matsen/refmark/internal/history"
)

var (
	historyDoc   string
	historyLimit int
)

func init() {
	historyCmd.Flags().StringVar(&historyDoc, "doc", "", "Only show runs for this document")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to return (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded audit runs",
	Long: `Show runs recorded with 'rfm check --record' or 'rfm normalize --record',
newest first.

Examples:
  rfm history
  rfm history --doc notes.md
  rfm history --limit 5 --human`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	root := mustResolveRoot()

	db, err := history.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening history ledger: %v", err)
	}
	defer db.Close()

	runs, err := db.List(historyDoc, historyLimit)
	if err != nil {
		exitWithError(ExitError, "listing runs: %v", err)
	}

	if humanOutput {
		if len(runs) == 0 {
			fmt.Println("No recorded runs")
			return nil
		}
		fmt.Printf("%d runs:\n\n", len(runs))
		for _, r := range runs {
			fmt.Printf("  %s  %-9s  health %3d  %s\n",
				r.RunAt.Format("2006-01-02 15:04"), r.Command, r.Health, r.Document)
		}
	} else {
		if runs == nil {
			runs = []history.Run{}
		}
		outputJSON(runs)
	}

	return nil
}
