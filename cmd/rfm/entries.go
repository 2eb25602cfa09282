package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/refmark/internal/document"
	"github.com/matsen/refmark/internal/registry"
)

func init() {
	rootCmd.AddCommand(entriesCmd)
}

var entriesCmd = &cobra.Command{
	Use:   "entries <file|->",
	Short: "List a document's canonical reference entries",
	Long: `List the canonical reference entries parsed from a document.

One record per distinct source: duplicates are grouped under a single
canonical key with every definition line listed. Entries that never
parsed keep kind and grammar "unknown" with their raw text preserved.

Examples:
  rfm entries notes.md
  rfm entries notes.md --human`,
	Args: cobra.ExactArgs(1),
	RunE: runEntries,
}

// EntryInfo is one canonical source in entries output.
type EntryInfo struct {
	Label     string   `json:"label"`
	Key       string   `json:"key"`
	Title     string   `json:"title,omitempty"`
	Author    string   `json:"author,omitempty"`
	Year      int      `json:"year,omitempty"`
	DOI       string   `json:"doi,omitempty"`
	URL       string   `json:"url,omitempty"`
	Journal   string   `json:"journal,omitempty"`
	Kind      string   `json:"kind"`
	Grammar   string   `json:"grammar"`
	Line      int      `json:"line"`
	Sections  []int    `json:"sections"`
	LocalIDs  []string `json:"local_ids,omitempty"`
	Duplicate bool     `json:"duplicate,omitempty"`
}

func runEntries(cmd *cobra.Command, args []string) error {
	path := args[0]
	text := mustReadDocument(path)

	doc := document.Segment(text)
	b := registry.NewBuilder()
	b.AddDocument(doc)
	reg := b.Build()

	infos := entryInfos(reg)

	if humanOutput {
		if len(infos) == 0 {
			fmt.Println("No reference entries found")
			return nil
		}
		fmt.Printf("%d entries:\n\n", len(infos))
		for _, e := range infos {
			title := e.Title
			if title == "" {
				title = "(no title)"
			}
			line := fmt.Sprintf("  %-18s %s", "[^"+e.Label+"]", truncateString(title, ListTitleMaxLen))
			if e.Year > 0 {
				line += fmt.Sprintf(" (%d)", e.Year)
			}
			if e.Duplicate {
				line += " [duplicate]"
			}
			fmt.Println(line)
		}
	} else {
		if infos == nil {
			infos = []EntryInfo{}
		}
		outputJSON(infos)
	}

	return nil
}

// entryInfos flattens the registry into output records, document order.
func entryInfos(reg *registry.Registry) []EntryInfo {
	locals := make(map[string][]string)
	for _, m := range reg.Mappings() {
		locals[string(m.Key)] = append(locals[string(m.Key)], m.LocalID)
	}

	var infos []EntryInfo
	for _, c := range reg.Canons() {
		info := EntryInfo{
			Label:     c.Label,
			Key:       string(c.Key),
			Title:     c.Primary.Title,
			Author:    c.Primary.AuthorText,
			Year:      c.Primary.Year,
			DOI:       c.Primary.DOI,
			URL:       c.Primary.URL,
			Journal:   c.Primary.Journal,
			Kind:      string(c.Primary.Kind),
			Grammar:   string(c.Primary.Grammar),
			Line:      c.Primary.Line,
			LocalIDs:  dedupeStrings(locals[string(c.Key)]),
			Duplicate: c.Duplicate(),
		}
		for _, src := range c.Sources {
			info.Sections = appendUniqueInt(info.Sections, src.Section)
		}
		infos = append(infos, info)
	}
	return infos
}

func dedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func appendUniqueInt(in []int, v int) []int {
	for _, x := range in {
		if x == v {
			return in
		}
	}
	return append(in, v)
}
