package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpgo/finplan/internal/config"
	"github.com/rpgo/finplan/internal/output"
)

func (a *app) exampleCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "example",
		Short: "Print an example plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if check {
				if _, err := config.NewInputParser().CreateExampleConfiguration(); err != nil {
					return fmt.Errorf("bundled example is invalid: %w", err)
				}
			}
			_, err := a.out.Write(config.ExampleYAML)
			return err
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "validate the example before printing it")
	return cmd
}

func (a *app) formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List report formats",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, "Formats:")
			for _, name := range output.AvailableFormatterNames() {
				fmt.Fprintf(a.out, "  %s\n", name)
			}
			fmt.Fprintln(a.out, "  all (with --output)")
			fmt.Fprintf(a.out, "Aliases: %s\n", strings.Join(output.AvailableFormatAliases(), ", "))
		},
	}
}

func (a *app) runsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs saved with --db",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("--db is required")
			}
			s, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tNAME\tKIND\tITERATIONS\tNET WORTH\tSUCCESS")
			for _, r := range runs {
				success := "-"
				if r.SuccessRate.Valid {
					success = output.FormatRatio(r.SuccessRate.Decimal)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"),
					r.Name, r.Kind, r.Iterations, output.FormatCurrency(r.FinalNetWorth), success)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database written by simulate or montecarlo")
	cmd.Flags().IntVar(&limit, "limit", 20, "newest runs to show, 0 for all")
	return cmd
}
