// Package main provides the rfm CLI entry point.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matsen/refmark/internal/config"
	"github.com/matsen/refmark/internal/engine"
	"github.com/matsen/refmark/internal/history"
	"github.com/matsen/refmark/internal/pdftext"
	"github.com/matsen/refmark/internal/verify"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verbose enables debug logging to stderr
var verbose bool

// logger is rebuilt per invocation; quiet runs keep the no-op logger so
// stdout stays parseable.
var logger = zap.NewNop()

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rfm",
	Short: "Agent-first markdown citation normalizer",
	Long: `rfm keeps markdown citations and their reference sections coherent.

It detects reference sections (headed or implicit footnote blocks), parses
the common reference-line conventions, rewrites inline citation marks to
stable footnote labels, consolidates duplicate entries, and audits what is
left: orphaned entries, missing definitions, repeated marks, and citations
whose surrounding prose does not match the cited source.

Audit runs can be recorded in a per-root SQLite ledger, and label mappings
exported as git-versionable JSONL.

All commands output JSON by default for AI agent integration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		log, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log pipeline details to stderr")
	rootCmd.Version = Version
}

// getStartingDirectory returns the directory to start root discovery from.
// Checks the RFM_ROOT environment variable first, then the working directory.
func getStartingDirectory() (string, int) {
	if root := os.Getenv("RFM_ROOT"); root != "" {
		return root, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustResolveRoot finds the refmark root for the working directory, falling
// back to the configured default_root. Exits with guidance when neither works.
func mustResolveRoot() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	root, err := config.ResolveRoot(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return root
}

// rootForDocument finds the refmark root owning a document, or "" when the
// document lives outside any root. Stdin belongs to no root.
func rootForDocument(path string) string {
	if path == "-" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	root, err := config.FindRoot(filepath.Dir(abs))
	if err != nil {
		return ""
	}
	return root
}

// documentName is the identity a document carries in the history ledger:
// its path relative to the owning root, or its base name outside one.
func documentName(root, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Base(path)
	}
	if root != "" {
		if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}

// mustReadDocument reads a document argument: "-" for stdin, .pdf via text
// extraction, anything else as markdown.
func mustReadDocument(path string) string {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitWithError(ExitDataError, "reading stdin: %v", err)
		}
		return string(data)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := pdftext.ExtractText(path, 0)
		if err != nil {
			exitWithError(ExitDataError, "extracting text from %s: %v", path, err)
		}
		return text
	}
	data, err := os.ReadFile(path)
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", path, err)
	}
	return string(data)
}

// mustLoadConfig loads and validates configuration, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "invalid config: %v", err)
	}
	return cfg
}

// configForRoot loads the root's config, or the defaults for documents
// outside any root.
func configForRoot(root string) *config.Config {
	if root == "" {
		return config.Default()
	}
	return mustLoadConfig(root)
}

// engineOptions maps config onto engine options.
func engineOptions(cfg *config.Config, noCollapse bool) engine.Options {
	return engine.Options{
		Verify: cfg.Verify.Enabled,
		VerifyParams: verify.Params{
			Window:     cfg.Verify.Window,
			TopK:       cfg.Verify.TopK,
			Threshold:  cfg.Verify.Threshold,
			Downweight: cfg.Verify.Downweight,
		},
		NoCollapse: noCollapse,
	}
}

// mustRecordRun appends one run to the history ledger. The caller asked for
// recording explicitly, so every failure is fatal.
func mustRecordRun(root string, cfg *config.Config, run history.Run) {
	if root == "" {
		exitWithError(ExitConfigError, "recording history requires a refmark root; run 'rfm init' first")
	}
	if !cfg.History.Enabled {
		exitWithError(ExitConfigError, "history is disabled in %s", config.ConfigPath(root))
	}

	db, err := history.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening history ledger: %v", err)
	}
	defer db.Close()

	if err := db.Record(run); err != nil {
		exitWithError(ExitError, "recording run: %v", err)
	}
}
