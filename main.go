package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tinfer/tinfer/cmd"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "tinfer [subcommand]",
	Short:        "tinfer infers function signatures from the bounds collected on their type variables",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.SolveCmd)
	rootCmd.AddCommand(cmd.DumpCmd)
}
