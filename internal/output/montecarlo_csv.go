package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rpgo/finplan/internal/domain"
)

// MonteCarloCSVFormatter exports the aggregate statistics of a Monte Carlo run.
type MonteCarloCSVFormatter struct{}

func (m MonteCarloCSVFormatter) Name() string { return "montecarlo-csv" }

func (m MonteCarloCSVFormatter) Format(report *Report) ([]byte, error) {
	if err := report.requireMonteCarlo(m.Name()); err != nil {
		return nil, err
	}
	rows := append([][]string{{"Metric", "Value", "Description"}}, summaryRows(report.MonteCarlo)...)
	for _, year := range sortedYears(report.MonteCarlo.MeanYearEndNetWorth) {
		rows = append(rows, []string{
			fmt.Sprintf("Mean Net Worth %d", year),
			report.MonteCarlo.MeanYearEndNetWorth[year].StringFixed(2),
			"Year-end net worth averaged over iterations",
		})
	}
	return csvBytes(rows)
}

// MonteCarloIterationsCSVFormatter exports one row per iteration.
type MonteCarloIterationsCSVFormatter struct{}

func (m MonteCarloIterationsCSVFormatter) Name() string { return "montecarlo-iterations-csv" }

func (m MonteCarloIterationsCSVFormatter) Format(report *Report) ([]byte, error) {
	if report.Iterations == nil {
		return nil, fmt.Errorf("%w: %s needs every Monte Carlo iteration", ErrMissingData, m.Name())
	}
	return csvBytes(iterationRows(report.Iterations))
}

func summaryRows(mc *domain.MonteCarloSummary) [][]string {
	s := mc.Stats
	rows := [][]string{
		{"Iterations", strconv.Itoa(s.Iterations), "Total number of simulations run"},
		{"Success Rate", FormatRatio(s.SuccessRate), "Share of iterations ending with positive net worth"},
		{"Mean", s.Mean.StringFixed(2), "Mean final net worth"},
		{"Std Dev", s.StdDev.StringFixed(2), "Standard deviation of final net worth"},
		{"Min", s.Min.StringFixed(2), "Worst final net worth"},
		{"Max", s.Max.StringFixed(2), "Best final net worth"},
	}
	for _, p := range s.Percentiles {
		rows = append(rows, []string{
			fmt.Sprintf("P%g", p.P),
			p.Value.StringFixed(2),
			fmt.Sprintf("Final net worth at percentile %g (seed %d)", p.P, p.Seed),
		})
	}
	return rows
}

func iterationRows(mc *domain.MonteCarloResult) [][]string {
	rows := [][]string{{"Iteration", "Seed", "FinalNetWorth", "Success", "DepletionYear", "TotalIncome", "TotalExpenses", "TotalTaxes", "Warnings"}}
	for i := range mc.Iterations {
		r := &mc.Iterations[i]
		h := AnalyzeResult(r)
		depletion := ""
		if h.DepletionYear != 0 {
			depletion = intToString(h.DepletionYear)
		}
		rows = append(rows, []string{
			intToString(i + 1),
			strconv.FormatUint(r.Seed, 10),
			h.FinalNetWorth.StringFixed(2),
			boolToString(h.FinalNetWorth.IsPositive()),
			depletion,
			h.TotalIncome.StringFixed(2),
			h.TotalExpenses.StringFixed(2),
			h.TotalTaxes.StringFixed(2),
			intToString(h.Warnings),
		})
	}
	return rows
}

func percentileRows(mc *domain.MonteCarloSummary) [][]string {
	rows := [][]string{{"Percentile", "FinalNetWorth", "Seed", "DepletionYear"}}
	runs := make(map[float64]*domain.SimulationResult, len(mc.PercentileRuns))
	for _, pr := range mc.PercentileRuns {
		runs[pr.P] = pr.Result
	}
	for _, p := range mc.Stats.Percentiles {
		depletion := ""
		if r := runs[p.P]; r != nil {
			if y := AnalyzeResult(r).DepletionYear; y != 0 {
				depletion = intToString(y)
			}
		}
		rows = append(rows, []string{fmt.Sprintf("P%g", p.P), p.Value.StringFixed(2), strconv.FormatUint(p.Seed, 10), depletion})
	}
	return rows
}

func writeCSV(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func csvBytes(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MonteCarloCSVReport writes the Monte Carlo CSV exports to files
type MonteCarloCSVReport struct {
	Summary *domain.MonteCarloSummary
	// Result is optional; without it the detailed export is skipped.
	Result *domain.MonteCarloResult
}

func writeCSVFile(outputPath string, rows [][]string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := writeCSV(file, rows); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// GenerateSummaryCSV creates a summary CSV with aggregate statistics
func (m *MonteCarloCSVReport) GenerateSummaryCSV(outputPath string) error {
	rows := append([][]string{{"Metric", "Value", "Description"}}, summaryRows(m.Summary)...)
	return writeCSVFile(outputPath, rows)
}

// GenerateDetailedCSV creates a detailed CSV with individual simulation results
func (m *MonteCarloCSVReport) GenerateDetailedCSV(outputPath string) error {
	if m.Result == nil {
		return fmt.Errorf("%w: no iterations to export", ErrMissingData)
	}
	return writeCSVFile(outputPath, iterationRows(m.Result))
}

// GeneratePercentileCSV creates a CSV with the run sitting at each percentile
func (m *MonteCarloCSVReport) GeneratePercentileCSV(outputPath string) error {
	return writeCSVFile(outputPath, percentileRows(m.Summary))
}

// GenerateAllCSVReports creates all CSV reports in a single directory
func (m *MonteCarloCSVReport) GenerateAllCSVReports(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := m.GenerateSummaryCSV(filepath.Join(outputDir, "monte_carlo_summary.csv")); err != nil {
		return fmt.Errorf("failed to generate summary CSV: %w", err)
	}
	if m.Result != nil {
		if err := m.GenerateDetailedCSV(filepath.Join(outputDir, "monte_carlo_detailed.csv")); err != nil {
			return fmt.Errorf("failed to generate detailed CSV: %w", err)
		}
	}
	if err := m.GeneratePercentileCSV(filepath.Join(outputDir, "monte_carlo_percentiles.csv")); err != nil {
		return fmt.Errorf("failed to generate percentile CSV: %w", err)
	}
	return nil
}
