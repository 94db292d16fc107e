package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "editengine",
	Short: "SEARCH/REPLACE code-edit engine",
	Long: `editengine turns a free-form model response into applied file edits.

It parses SEARCH/REPLACE blocks from a model's reply, validates them against
the repository, applies them with a tolerant matching cascade, and on
failure builds a reflection report that can be fed back to the model to
drive a bounded retry loop.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command, exiting the process with status 1 on
// error — the same top-level shape as the teacher's cmd.Execute.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
