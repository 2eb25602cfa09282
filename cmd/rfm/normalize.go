package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/refmark/internal/audit"
	"github.com/matsen/refmark/internal/config"
	"github.com/matsen/refmark/internal/engine"
	"github.com/matsen/refmark/internal/history"
)

var (
	normalizeWrite    bool
	normalizeCollapse bool
	normalizeRecord   bool
	normalizeMappings string
)

func init() {
	normalizeCmd.Flags().BoolVar(&normalizeWrite, "write", false, "Rewrite the file in place instead of printing")
	normalizeCmd.Flags().BoolVar(&normalizeCollapse, "collapse", true, "Collapse adjacent repeats of one citation")
	normalizeCmd.Flags().BoolVar(&normalizeRecord, "record", false, "Record this run and refresh the root's mapping export")
	normalizeCmd.Flags().StringVar(&normalizeMappings, "mappings", "", "Also write label mappings to this JSONL file")
	rootCmd.AddCommand(normalizeCmd)
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file|->",
	Short: "Rewrite citations to stable footnote labels",
	Long: `Rewrite a document's citations to stable footnote labels.

Inline marks like [3], [^1], or [4-6] become [^label] footnotes with
content-derived labels, reference entries are re-rendered as footnote
definitions, duplicate entries collapse into one definition, and adjacent
repeats of one citation fold into a single mark (disable with
--collapse=false). Citations that resolve to nothing become [?id]
placeholders so the text keeps its claim markers.

The normalized document goes to stdout; --write edits the file in place
and prints a summary instead. Running normalize on its own output is a
no-op.

Examples:
  rfm normalize notes.md > normalized.md
  rfm normalize notes.md --write
  rfm normalize notes.md --write --record
  rfm normalize notes.md --mappings labels.jsonl --write`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

// NormalizeResult is the summary printed when --write is set.
type NormalizeResult struct {
	Document string        `json:"document"`
	Status   string        `json:"status"` // written or unchanged
	Changed  bool          `json:"changed"`
	Health   int           `json:"health"`
	Report   *audit.Report `json:"report"`
}

func runNormalize(cmd *cobra.Command, args []string) error {
	path := args[0]
	if normalizeWrite && path == "-" {
		exitWithError(ExitError, "cannot write in place when reading from stdin")
	}

	text := mustReadDocument(path)
	root := rootForDocument(path)
	cfg := configForRoot(root)

	res := engine.New(engineOptions(cfg, !normalizeCollapse), logger).Process(text)
	doc := documentName(root, path)

	if normalizeRecord {
		run := history.FromReport(doc, "normalize", res.Report,
			len(res.Registry.Canons()), len(res.Citations), res.Changed)
		mustRecordRun(root, cfg, run)
		writeMappings(config.MappingsPath(root), doc, res)
	}
	if normalizeMappings != "" {
		writeMappings(normalizeMappings, doc, res)
	}

	if !normalizeWrite {
		fmt.Print(res.Output)
		return nil
	}

	status := "unchanged"
	if res.Changed {
		status = "written"
		if err := os.WriteFile(path, []byte(res.Output), 0644); err != nil {
			exitWithError(ExitError, "writing %s: %v", path, err)
		}
	}

	if humanOutput {
		if res.Changed {
			fmt.Printf("Normalized %s (health %d)\n", doc, res.Report.Health)
		} else {
			fmt.Printf("%s already normalized (health %d)\n", doc, res.Report.Health)
		}
	} else {
		outputJSON(NormalizeResult{
			Document: doc,
			Status:   status,
			Changed:  res.Changed,
			Health:   res.Report.Health,
			Report:   res.Report,
		})
	}

	return nil
}

// writeMappings replaces the document's records in a JSONL mapping file.
func writeMappings(path, doc string, res *engine.Result) {
	recs := history.BuildMappings(doc, res.Registry)
	if err := history.WriteDocumentMappings(path, doc, recs); err != nil {
		exitWithError(ExitError, "writing mappings: %v", err)
	}
}
