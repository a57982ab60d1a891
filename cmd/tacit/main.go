// Command tacit is the CLI entry point: a cobra root command mirroring
// the teacher's main() (parse flags, build a VM from the given files,
// run it, exit non-zero on a top-level error) with `--no-interactive`
// and the REPL replacing the teacher's debug single-stepper, which has
// no counterpart in this scope.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gotacit/internal/repl"
	"gotacit/internal/tconfig"
)

func main() {
	cfg := tconfig.Defaults()
	var includePaths []string

	root := &cobra.Command{
		Use:   "tacit [file...]",
		Short: "Tacit: a NaN-boxed concatenative language VM and REPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.IncludePaths = includePaths
			loader := &repl.FileLoader{IncludePaths: includePaths}
			return loader.Run(cfg, args, os.Stdin, os.Stdout)
		},
	}

	flags := root.Flags()
	flags.BoolVar(&cfg.NoInteractive, "no-interactive", false, "exit after running the given files instead of dropping into the REPL")
	flags.BoolVar(&cfg.Debug, "debug", false, "enable debug diagnostics")
	flags.StringSliceVar(&includePaths, "include-path", nil, "directory to search for include targets (repeatable)")
	flags.IntVar(&cfg.StackCells, "stack-cells", cfg.StackCells, "data stack capacity, in cells")
	flags.IntVar(&cfg.RStackCells, "rstack-cells", cfg.RStackCells, "return stack capacity, in cells")
	flags.IntVar(&cfg.GlobalCells, "global-cells", cfg.GlobalCells, "global heap capacity, in cells")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
