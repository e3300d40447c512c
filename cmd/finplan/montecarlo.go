package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpgo/finplan/internal/calculation"
	"github.com/rpgo/finplan/internal/output"
)

func (a *app) monteCarloCmd() *cobra.Command {
	var (
		configPath  string
		iterations  int
		percentiles []float64
		format      string
		outDir      string
		dbPath      string
		progress    bool
	)
	cmd := &cobra.Command{
		Use:     "montecarlo",
		Aliases: []string{"mc"},
		Short:   "Run many simulations and summarize final net worth",
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations <= 0 {
				return fmt.Errorf("--iterations must be positive, got %d", iterations)
			}
			for _, p := range percentiles {
				if p < 0 || p > 100 {
					return fmt.Errorf("percentile %g outside 0-100", p)
				}
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var onProgress calculation.ProgressFunc
			if progress {
				step := max(iterations/20, 1)
				onProgress = func(done, total int) {
					if done%step == 0 || done == total {
						fmt.Fprintf(a.errOut, "\r%d/%d iterations", done, total)
						if done == total {
							fmt.Fprintln(a.errOut)
						}
					}
				}
			}

			result, summary, err := a.engine().MonteCarlo(ctx, cfg, iterations, percentiles, onProgress)
			if err != nil {
				return fmt.Errorf("monte carlo failed: %w", err)
			}

			report := &output.Report{GeneratedAt: time.Now(), Config: cfg, MonteCarlo: summary, Iterations: result}
			s, err := openStore(dbPath)
			if err != nil {
				return err
			}
			if s != nil {
				defer s.Close()
				run, err := s.SaveMonteCarlo(cfg.Name, summary)
				if err != nil {
					return err
				}
				report.RunID = run.ID
				fmt.Fprintf(a.errOut, "saved run %s\n", run.ID)
			}
			return a.render(report, format, outDir)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "plan file (YAML)")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 1000, "number of simulations")
	cmd.Flags().Float64SliceVar(&percentiles, "percentiles", calculation.DefaultPercentiles, "final net worth percentiles to report")
	cmd.Flags().StringVarP(&format, "format", "f", "console", "report format, see finplan formats")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "write the report to this directory instead of stdout")
	cmd.Flags().StringVar(&dbPath, "db", "", "save the summary to this SQLite database")
	cmd.Flags().BoolVar(&progress, "progress", false, "print progress to stderr")
	return cmd
}
