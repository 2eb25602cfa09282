package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/refmark/internal/audit"
	"github.com/matsen/refmark/internal/engine"
	"github.com/matsen/refmark/internal/history"
)

var checkRecord bool

func init() {
	checkCmd.Flags().BoolVar(&checkRecord, "record", false, "Record this run in the history ledger")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <file|->",
	Short: "Audit a document's citation integrity",
	Long: `Audit a document without changing it.

Reports duplicate reference entries, orphaned entries nothing cites,
citations with no definition, unresolved placeholders left by earlier
runs, repeated adjacent citations, and citations whose surrounding prose
shares too little vocabulary with the cited source. The health score
folds the findings into a single 0-100 number.

PDF arguments are text-extracted first; "-" reads markdown from stdin.

Examples:
  rfm check notes.md
  rfm check paper.pdf --human
  cat notes.md | rfm check -
  rfm check notes.md --record`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Document  string        `json:"document"`
	Status    string        `json:"status"` // ok or issues
	Health    int           `json:"health"`
	Sections  int           `json:"sections"`
	Entries   int           `json:"entries"`
	Citations int           `json:"citations"`
	Report    *audit.Report `json:"report"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]
	text := mustReadDocument(path)
	root := rootForDocument(path)
	cfg := configForRoot(root)

	res := engine.New(engineOptions(cfg, false), logger).Audit(text)

	doc := documentName(root, path)
	status := "ok"
	if !res.Report.Clean() {
		status = "issues"
	}

	if checkRecord {
		run := history.FromReport(doc, "check", res.Report,
			len(res.Registry.Canons()), len(res.Citations), false)
		mustRecordRun(root, cfg, run)
	}

	if humanOutput {
		printReportHuman(res)
	} else {
		outputJSON(CheckResult{
			Document:  doc,
			Status:    status,
			Health:    res.Report.Health,
			Sections:  len(res.Doc.Sections),
			Entries:   len(res.Registry.Canons()),
			Citations: len(res.Citations),
			Report:    res.Report,
		})
	}

	return nil
}

// printReportHuman renders audit findings the way check output reads best:
// one warning per finding, then the totals.
func printReportHuman(res *engine.Result) {
	rep := res.Report
	issues := len(rep.Duplicates) + len(rep.Orphans) + len(rep.Missing) +
		len(rep.Unresolved) + len(rep.Runs) + len(rep.Mismatches)

	if issues == 0 {
		fmt.Printf("Citation check: OK (health %d)\n", rep.Health)
	} else {
		fmt.Printf("Citation check: %d issues found (health %d)\n\n", issues, rep.Health)
		for _, m := range rep.Missing {
			fmt.Printf("  [WARN] Citation %s has no definition (line %d)\n", m.Raw, m.Line)
		}
		for _, u := range rep.Unresolved {
			fmt.Printf("  [WARN] Unresolved placeholder [?%s] (line %d)\n", u.ID, u.Line)
		}
		for _, o := range rep.Orphans {
			fmt.Printf("  [WARN] Entry [^%s] is never cited (line %d)\n", o.Label, o.Line)
		}
		for _, r := range rep.Runs {
			fmt.Printf("  [WARN] Citation [^%s] repeated %d times in a row (line %d)\n", r.Label, r.Count, r.Line)
		}
		for _, d := range rep.Duplicates {
			fmt.Printf("  [WARN] Source [^%s] defined %d times (lines %s)\n", d.Label, d.Count, formatLines(d.Lines))
		}
		for _, m := range rep.Mismatches {
			fmt.Printf("  [WARN] Citation [^%s] may not match its context (line %d, overlap %.2f)\n", m.Label, m.Line, m.Score)
		}
	}

	fmt.Printf("\n%d sections, %d entries, %d citations\n",
		len(res.Doc.Sections), len(res.Registry.Canons()), len(res.Citations))
}

func formatLines(lines []int) string {
	s := ""
	for i, l := range lines {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d", l)
	}
	return s
}
