// Package cli wires the generate/run/evaluate/suite command surface onto
// internal/config, internal/orchestrator, and internal/evaluator: a bare
// root command, cobra.Command values registered from each subcommand's
// own init(), and version as its own leaf command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "harness",
	Short: "Benchmark harness for evaluating coding agents against real PR fixes",
	Long: `harness synthesizes graded prompt variants from a pull request, drives an
external coding agent against a sandboxed pre-fix baseline, and scores the
resulting patch against the ground truth with an LLM judge.`,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("harness %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
