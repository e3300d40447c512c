package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpgo/finplan/internal/calculation"
	"github.com/rpgo/finplan/internal/output"
)

func (a *app) simulateCmd() *cobra.Command {
	var (
		configPath string
		seed       uint64
		format     string
		outDir     string
		dbPath     string
		ledger     bool
		random     bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one simulation with a fixed seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if ledger || output.NormalizeFormatName(format) == "csv-ledger" {
				cfg.CollectLedger = true
			}
			if random {
				seed = calculation.RandomSeed()
				fmt.Fprintf(a.errOut, "seed %d\n", seed)
			}

			result, err := a.engine().Simulate(cfg, seed)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			report := &output.Report{GeneratedAt: time.Now(), Config: cfg, Result: result}
			s, err := openStore(dbPath)
			if err != nil {
				return err
			}
			if s != nil {
				defer s.Close()
				run, err := s.SaveSimulation(cfg.Name, result)
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
	cmd.Flags().Uint64Var(&seed, "seed", 42, "random seed for market returns and inflation")
	cmd.Flags().StringVarP(&format, "format", "f", "console", "report format, see finplan formats")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "write the report to this directory instead of stdout")
	cmd.Flags().StringVar(&dbPath, "db", "", "save the run to this SQLite database")
	cmd.Flags().BoolVar(&ledger, "ledger", false, "record every state change")
	cmd.Flags().BoolVar(&random, "random", false, "ignore --seed and draw a fresh one")
	return cmd
}
