package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/refmark/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a refmark root",
	Long: `Initialize a refmark root in the current directory.

Creates:
  .refmark/
  ├── config.yaml     # Default config
  └── cache/          # History database lives here (gitignored)`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	if err := config.InitRoot(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized refmark root in %s\n", root)
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}

	return nil
}
