package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/refmark/internal/importer"
	"github.com/matsen/refmark/internal/metadata"
	"github.com/matsen/refmark/internal/pdftext"
	"github.com/matsen/refmark/internal/reference"
)

var importAppend string

func init() {
	importCmd.Flags().StringVar(&importAppend, "append", "", "Append the rendered section to this markdown file")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Convert external references into footnote definitions",
	Long: `Convert external references into a markdown reference section of
footnote definitions.

Supported inputs:
  .json   Reference-manager JSON export (Paperpile-style)
  .pdf    A paper; its DOI, title, and year are extracted from the text

The rendered section goes to stdout, or --append adds it to the end of
an existing document. Run 'rfm normalize' afterwards to fold the new
definitions into the document's reference sections and deduplicate.

Examples:
  rfm import export.json
  rfm import export.json --append notes.md
  rfm import paper.pdf --append notes.md`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult is the summary printed when --append is set.
type ImportResult struct {
	Status   string   `json:"status"`
	Path     string   `json:"path"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	entries, parseErrors := importEntries(path)

	errStrs := make([]string, len(parseErrors))
	for i, e := range parseErrors {
		errStrs[i] = e.Error()
	}

	if len(entries) == 0 {
		for _, e := range errStrs {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		exitWithError(ExitDataError, "no importable references in %s", path)
	}

	section := importer.RenderSection(entries, metadata.PlainRenderer{})

	if importAppend == "" {
		for _, e := range errStrs {
			fmt.Fprintf(os.Stderr, "warning: %s\n", e)
		}
		fmt.Println(strings.Join(section, "\n"))
		return nil
	}

	if err := appendSection(importAppend, section); err != nil {
		exitWithError(ExitError, "appending to %s: %v", importAppend, err)
	}

	if humanOutput {
		fmt.Printf("Imported %d references into %s\n", len(entries), importAppend)
		if len(errStrs) > 0 {
			fmt.Println("\nErrors:")
			for _, e := range errStrs {
				fmt.Printf("  - %s\n", e)
			}
		}
	} else {
		outputJSON(ImportResult{
			Status:   "imported",
			Path:     importAppend,
			Imported: len(entries),
			Errors:   errStrs,
		})
	}

	return nil
}

// importEntries parses the input by extension.
func importEntries(path string) ([]reference.Entry, []error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		e, err := pdftext.EntryFromPDF(path)
		if err != nil {
			return nil, []error{err}
		}
		return []reference.Entry{e}, nil
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		exitWithError(ExitError, "unsupported import format: %s (expected .json or .pdf)", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", path, err)
	}
	return importer.Parse(data)
}

// appendSection adds a rendered section to the end of a document, creating
// the file when it does not exist.
func appendSection(path string, section []string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var b strings.Builder
	if len(data) > 0 {
		b.Write(data)
		if data[len(data)-1] != '\n' {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(section, "\n"))
	b.WriteString("\n")

	return os.WriteFile(path, []byte(b.String()), 0644)
}
