package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/refmark/internal/config"
	"github.com/matsen/refmark/internal/document"
	"github.com/matsen/refmark/internal/lookup"
	"github.com/matsen/refmark/internal/metadata"
	"github.com/matsen/refmark/internal/reference"
	"github.com/matsen/refmark/internal/registry"
)

var resolveStyle string

func init() {
	// Load .env if present (for REFMARK_EMAIL / REFMARK_TOKEN)
	_ = godotenv.Load()

	resolveCmd.Flags().StringVar(&resolveStyle, "style", "plain", "Definition style: plain or bibtex")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <file|->",
	Short: "Enrich reference entries via the metadata service",
	Long: `Look up each reference entry against the metadata service and render
the enriched definitions.

Entries with a DOI are fetched directly; entries with a complete title
are searched. Fetched fields (authors, year, journal, DOI) only fill
gaps the document's own text left open, except truncated titles, which
are replaced by the full title.

Configure the service in .refmark/config.yaml (lookup section). The
contact email and API token come from REFMARK_EMAIL / REFMARK_TOKEN,
a .env file, or the global config.

Examples:
  rfm resolve notes.md
  rfm resolve notes.md --style bibtex > refs.bib
  rfm resolve notes.md --human`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

// ResolveResult is the JSON output of the resolve command.
type ResolveResult struct {
	Document string        `json:"document"`
	Style    string        `json:"style"`
	Resolved int           `json:"resolved"`
	NotFound int           `json:"not_found"`
	Errors   int           `json:"errors"`
	Items    []ResolveItem `json:"items"`
}

// ResolveItem is one entry's lookup outcome plus its rendered definition.
type ResolveItem struct {
	Label    string `json:"label"`
	Key      string `json:"key"`
	Status   string `json:"status"` // resolved, not_found, rate_limited, error
	Error    string `json:"error,omitempty"`
	Title    string `json:"title,omitempty"`
	Year     int    `json:"year,omitempty"`
	DOI      string `json:"doi,omitempty"`
	Rendered string `json:"rendered"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	if resolveStyle != "plain" && resolveStyle != "bibtex" {
		exitWithError(ExitError, "unknown style: %s (expected plain or bibtex)", resolveStyle)
	}

	path := args[0]
	text := mustReadDocument(path)
	root := rootForDocument(path)
	cfg := configForRoot(root)

	doc := document.Segment(text)
	b := registry.NewBuilder()
	b.AddDocument(doc)
	reg := b.Build()

	client := newLookupClient(cfg)
	ctx := cmd.Context()

	result := ResolveResult{
		Document: documentName(root, path),
		Style:    resolveStyle,
	}

	for _, c := range reg.Canons() {
		item := ResolveItem{Label: c.Label, Key: string(c.Key)}

		resolved, err := client.Resolve(ctx, c.Primary)
		switch {
		case err == nil:
			c.Primary = resolved
			item.Status = "resolved"
			result.Resolved++
		case lookup.IsNotFound(err):
			item.Status = "not_found"
			result.NotFound++
		case lookup.IsRateLimited(err):
			item.Status = "rate_limited"
			item.Error = err.Error()
			result.Errors++
		default:
			item.Status = "error"
			item.Error = err.Error()
			result.Errors++
		}

		item.Title = c.Primary.Title
		item.Year = c.Primary.Year
		item.DOI = c.Primary.DOI
		item.Rendered = renderDefinition(resolveStyle, c.Label, c.Primary)
		result.Items = append(result.Items, item)

		if ctx.Err() != nil {
			break
		}
	}

	if humanOutput {
		printResolveHuman(result)
	} else {
		if result.Items == nil {
			result.Items = []ResolveItem{}
		}
		outputJSON(result)
	}

	// The service being unreachable is different from entries it does not know.
	if len(result.Items) > 0 && result.Resolved == 0 && result.Errors > 0 {
		os.Exit(ExitLookupError)
	}
	return nil
}

// newLookupClient wires the metadata client from root config plus the
// global credential chain.
func newLookupClient(cfg *config.Config) *lookup.Client {
	opts := []lookup.ClientOption{
		lookup.WithLogger(logger),
		lookup.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Lookup.TimeoutSeconds) * time.Second,
		}),
	}
	if cfg.Lookup.BaseURL != "" {
		opts = append(opts, lookup.WithBaseURL(cfg.Lookup.BaseURL))
	}
	if cfg.Lookup.RPS > 0 {
		opts = append(opts, lookup.WithRateLimit(cfg.Lookup.RPS))
	}
	email := config.GetLookupEmail()
	if email == "" {
		email = cfg.Lookup.Email
	}
	if email != "" {
		opts = append(opts, lookup.WithMailto(email))
	}
	if token := config.GetLookupToken(); token != "" {
		opts = append(opts, lookup.WithToken(token))
	}
	return lookup.NewClient(opts...)
}

func renderDefinition(style, label string, e reference.Entry) string {
	if style == "bibtex" {
		return metadata.BibTeX(label, e)
	}
	return metadata.PlainRenderer{}.Definition(label, e)
}

// printResolveHuman writes the rendered definitions to stdout and lookup
// failures to stderr, so the output stays pipeable into a file.
func printResolveHuman(result ResolveResult) {
	if len(result.Items) == 0 {
		fmt.Println("No reference entries found")
		return
	}

	var rendered []string
	for _, item := range result.Items {
		rendered = append(rendered, item.Rendered)
		if item.Status != "resolved" {
			if item.Error != "" {
				fmt.Fprintf(os.Stderr, "warning: [^%s]: %s (%s)\n", item.Label, item.Status, item.Error)
			} else {
				fmt.Fprintf(os.Stderr, "warning: [^%s]: %s\n", item.Label, item.Status)
			}
		}
	}

	sep := "\n"
	if result.Style == "bibtex" {
		sep = "\n\n"
	}
	fmt.Println(strings.Join(rendered, sep))
}
