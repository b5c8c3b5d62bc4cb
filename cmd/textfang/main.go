// Package main provides the entry point for the textfang CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/textfang/cmd/textfang/commands"
	"github.com/Sumatoshi-tech/textfang/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "textfang",
		Short: "Textfang - memory-adaptive n-gram statistics",
		Long: `Textfang extracts n-gram statistics from large text corpora within a
memory budget, escalating from in-memory to chunked to disk-spill
processing as pressure demands.

Commands:
  ngrams    Generate n-gram statistics for a corpus
  plan      Show what a run would do under current memory pressure
  validate  Validate a job file
  config    Manage configuration files`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewNgramsCommand())
	rootCmd.AddCommand(commands.NewPlanCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "textfang %s\n", version.String())
		},
	}
}
