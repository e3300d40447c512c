package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpgo/finplan/internal/calculation"
	"github.com/rpgo/finplan/internal/config"
	"github.com/rpgo/finplan/internal/domain"
	"github.com/rpgo/finplan/internal/output"
	"github.com/rpgo/finplan/internal/store"
)

// app carries what every subcommand shares
type app struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
	logger  *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "finplan",
		Short:         "Discrete-event retirement simulator",
		Long:          "finplan simulates accounts, events and taxes day by day from a YAML plan,\nonce with a fixed seed or many times as a Monte Carlo run.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		a.simulateCmd(),
		a.monteCarloCmd(),
		a.exampleCmd(),
		a.formatsCmd(),
		a.runsCmd(),
	)
	return root
}

func (a *app) engine() *calculation.Engine {
	e := calculation.NewEngine()
	e.SetLogger(calculation.NewSlogLogger(a.logger))
	return e
}

func loadConfig(path string) (*domain.SimulationConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required (see `finplan example` for a starting point)")
	}
	return config.NewInputParser().LoadFromFile(path)
}

// openStore opens the run database, or returns nil when path is empty
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	s, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open run database %s: %w", path, err)
	}
	return s, nil
}

// render writes report to outDir when set, to stdout otherwise
func (a *app) render(report *output.Report, format, outDir string) error {
	if outDir == "" {
		if strings.EqualFold(format, "all") {
			return fmt.Errorf("format \"all\" needs --output")
		}
		return output.WriteReport(a.out, report, format)
	}
	paths, err := output.GenerateReport(report, format, outDir)
	for _, p := range paths {
		fmt.Fprintf(a.errOut, "wrote %s\n", p)
	}
	return err
}
