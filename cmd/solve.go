package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"
	"github.com/tinfer/tinfer/internal/log"
	"github.com/tinfer/tinfer/internal/problem"
)

var SolveCmd = &cobra.Command{
	Use:          "solve file.yaml|file.toml",
	Short:        "Replay the bound operations of a problem file and print the inferred signature",
	RunE:         runSolve,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var DumpCmd = &cobra.Command{
	Use:          "dump file.yaml|file.toml",
	Short:        "Replay a problem file and pretty print the resulting bindings",
	RunE:         runDump,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var (
	flavor   *string
	logLevel *int
	dump     *bool
	steps    *bool
)

func init() {
	flavor = SolveCmd.Flags().String("flavor", "", "override the flavor of the problem file (plain or overload)")
	logLevel = SolveCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
	dump = SolveCmd.Flags().Bool("dump", false, "pretty print the bindings after solving")
	steps = SolveCmd.Flags().Bool("steps", false, "print every operation and its outcome")

	DumpCmd.Flags().AddFlag(SolveCmd.Flags().Lookup("flavor"))
	DumpCmd.Flags().AddFlag(SolveCmd.Flags().Lookup("log-level"))
}

func load(path string) (*problem.Problem, error) {
	log.SetLevel(slog.Level(*logLevel))
	p, err := problem.Load(path)
	if err != nil {
		return nil, fmt.Errorf("could not load problem: %w", err)
	}
	if *flavor != "" {
		p.Flavor = *flavor
	}
	return p, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	p, err := load(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	solution, err := problem.Solve(p)
	if solution != nil && *steps {
		writeSteps(out, solution.Steps)
	}
	if err != nil {
		return fmt.Errorf("could not solve %s: %w", args[0], err)
	}

	if solution.Function != nil {
		_, _ = fmt.Fprintln(out, solution.Function)
	} else {
		_, _ = fmt.Fprintf(out, "applied %d operations\n", len(solution.Steps))
	}
	if *dump {
		_, _ = pretty.Fprintf(out, "%# v\n", problem.Describe(solution.Graph))
	}
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	p, err := load(args[0])
	if err != nil {
		return err
	}
	// the bindings are worth looking at even when a contradiction stopped the replay
	solution, err := problem.Solve(p)
	if solution == nil {
		return fmt.Errorf("could not solve %s: %w", args[0], err)
	}
	_, _ = pretty.Fprintf(cmd.OutOrStdout(), "%# v\n", problem.Describe(solution.Graph))
	if err != nil {
		return fmt.Errorf("could not solve %s: %w", args[0], err)
	}
	return nil
}

func writeSteps(out io.Writer, steps []problem.Step) {
	for i, step := range steps {
		op, result := step.Fst, step.Snd
		var outcome []string
		if result != nil && result.HasChanged {
			outcome = append(outcome, "changed")
		}
		if result != nil && result.UsedImplicitConversion {
			outcome = append(outcome, "via "+result.ImplicitConversionProvider.Provider)
		}
		if len(outcome) == 0 {
			_, _ = fmt.Fprintf(out, "%d: %s\n", i, op)
			continue
		}
		_, _ = fmt.Fprintf(out, "%d: %s [%s]\n", i, op, strings.Join(outcome, ", "))
	}
}
