package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// maxConsoleWarnings caps the warnings listed before the rest are counted
const maxConsoleWarnings = 20

// ConsoleVerboseFormatter renders the detailed console report via the pluggable interface.
type ConsoleVerboseFormatter struct{}

func (c ConsoleVerboseFormatter) Name() string { return "console" }

func (c ConsoleVerboseFormatter) Format(report *Report) ([]byte, error) {
	if report.Result == nil && report.MonteCarlo == nil {
		return nil, fmt.Errorf("%w: nothing to report", ErrMissingData)
	}
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "=================================================================================")
	fmt.Fprintf(&buf, "RETIREMENT SIMULATION: %s\n", strings.ToUpper(report.Title()))
	fmt.Fprintln(&buf, "=================================================================================")
	if report.RunID != "" {
		fmt.Fprintf(&buf, "Run: %s\n", report.RunID)
	}
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, "KEY ASSUMPTIONS:")
	for _, a := range GenerateAssumptions(report.Config) {
		fmt.Fprintf(&buf, "• %s\n", a)
	}
	fmt.Fprintln(&buf)

	if report.Result != nil {
		writeResult(&buf, report)
	}
	if report.MonteCarlo != nil {
		writeMonteCarlo(&buf, report.MonteCarlo)
	}
	return buf.Bytes(), nil
}

func writeResult(buf *bytes.Buffer, report *Report) {
	r := report.Result
	h := AnalyzeResult(r)

	fmt.Fprintf(buf, "Seed %d, %s to %s, %d dates processed\n",
		r.Seed, r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"), len(r.Dates))
	fmt.Fprintln(buf)

	fmt.Fprintln(buf, "STARTING BALANCES")
	fmt.Fprintln(buf, "=================")
	writeSnapshots(buf, report, r.StartingSnapshot, false)
	fmt.Fprintf(buf, "%-28s %18s\n", "Net worth", FormatCurrency(h.StartingNetWorth))
	fmt.Fprintln(buf)

	fmt.Fprintln(buf, "YEAR BY YEAR")
	fmt.Fprintln(buf, "============")
	fmt.Fprintf(buf, "%-6s %18s %16s %16s %16s %16s %14s\n",
		"Year", "Net Worth", "Income", "Expenses", "Contributions", "Withdrawals", "Taxes")
	flows := make(map[int]domain.YearlyCashFlow, len(r.YearlyCashFlows))
	for _, cf := range r.YearlyCashFlows {
		flows[cf.Year] = cf
	}
	for _, year := range reportYears(r) {
		cf := flows[year]
		nw, ok := r.YearEndNetWorth[year]
		netWorth := "-"
		if ok {
			netWorth = FormatCurrency(nw)
		}
		fmt.Fprintf(buf, "%-6d %18s %16s %16s %16s %16s %14s\n", year, netWorth,
			FormatCurrency(cf.Income), FormatCurrency(cf.Expenses), FormatCurrency(cf.Contributions),
			FormatCurrency(cf.Withdrawals), FormatCurrency(r.TaxesFor(year).TotalTax))
	}
	fmt.Fprintln(buf)

	fmt.Fprintln(buf, "FINAL BALANCES")
	fmt.Fprintln(buf, "==============")
	writeSnapshots(buf, report, r.FinalBalances, true)
	fmt.Fprintf(buf, "%-28s %18s\n", "Net worth", FormatCurrency(h.FinalNetWorth))
	fmt.Fprintln(buf)

	fmt.Fprintln(buf, "HIGHLIGHTS")
	fmt.Fprintln(buf, "==========")
	fmt.Fprintf(buf, "Peak net worth:   %s in %d\n", FormatCurrency(h.PeakNetWorth), h.PeakYear)
	fmt.Fprintf(buf, "Lowest net worth: %s in %d\n", FormatCurrency(h.LowestNetWorth), h.LowestYear)
	if h.DepletionYear != 0 {
		fmt.Fprintf(buf, "Net worth depleted by the end of %d\n", h.DepletionYear)
	}
	fmt.Fprintf(buf, "Lifetime income %s, expenses %s, taxes %s\n",
		FormatCurrency(h.TotalIncome), FormatCurrency(h.TotalExpenses), FormatCurrency(h.TotalTaxes))
	fmt.Fprintln(buf)

	if len(r.Warnings) > 0 {
		fmt.Fprintf(buf, "WARNINGS (%d)\n", len(r.Warnings))
		fmt.Fprintln(buf, "========")
		for i, w := range r.Warnings {
			if i == maxConsoleWarnings {
				fmt.Fprintf(buf, "... and %d more\n", len(r.Warnings)-maxConsoleWarnings)
				break
			}
			source := ""
			if w.Event != nil {
				source = " [" + report.EventName(*w.Event) + "]"
			}
			fmt.Fprintf(buf, "%s %s%s: %s\n", w.Date.Format("2006-01-02"), w.Kind, source, w.Message)
		}
		fmt.Fprintln(buf)
	}
}

func writeSnapshots(buf *bytes.Buffer, report *Report, snapshots []domain.AccountSnapshot, positions bool) {
	for _, a := range snapshots {
		name := a.Name
		if name == "" {
			name = report.AccountName(a.Account)
		}
		fmt.Fprintf(buf, "%-28s %18s\n", name, FormatCurrency(a.TotalValue))
		if !positions {
			continue
		}
		if len(a.Assets) > 0 && !a.Cash.IsZero() {
			fmt.Fprintf(buf, "  %-26s %18s\n", "cash", FormatCurrency(a.Cash))
		}
		for _, asset := range a.Assets {
			fmt.Fprintf(buf, "  %-26s %18s  %s units, basis %s\n", report.AssetName(asset.Asset),
				FormatCurrency(asset.Value), asset.Units.Round(4).String(), FormatCurrency(asset.CostBasis))
		}
	}
}

// reportYears is every calendar year with a year-end value, cash flow or tax
func reportYears(r *domain.SimulationResult) []int {
	years := make(map[int]bool)
	for y := range r.YearEndNetWorth {
		years[y] = true
	}
	for _, cf := range r.YearlyCashFlows {
		years[cf.Year] = true
	}
	for _, t := range r.YearlyTaxes {
		years[t.Year] = true
	}
	return sortedYears(years)
}

func writeMonteCarlo(buf *bytes.Buffer, mc *domain.MonteCarloSummary) {
	s := mc.Stats
	fmt.Fprintln(buf, "MONTE CARLO")
	fmt.Fprintln(buf, "===========")
	fmt.Fprintf(buf, "Iterations:   %d\n", s.Iterations)
	fmt.Fprintf(buf, "Success rate: %s (final net worth above zero)\n", FormatRatio(s.SuccessRate))
	fmt.Fprintf(buf, "Mean:         %s\n", FormatCurrency(s.Mean))
	fmt.Fprintf(buf, "Std dev:      %s\n", FormatCurrency(s.StdDev))
	fmt.Fprintf(buf, "Range:        %s to %s\n", FormatCurrency(s.Min), FormatCurrency(s.Max))
	fmt.Fprintln(buf)

	if len(s.Percentiles) > 0 {
		fmt.Fprintf(buf, "%-12s %18s %22s\n", "Percentile", "Final Net Worth", "Seed")
		for _, p := range s.Percentiles {
			fmt.Fprintf(buf, "%-12s %18s %22d\n", fmt.Sprintf("P%g", p.P), FormatCurrency(p.Value), p.Seed)
		}
		fmt.Fprintln(buf)
	}

	if len(mc.MeanYearEndNetWorth) > 0 {
		fmt.Fprintln(buf, "Mean year-end net worth:")
		for _, year := range sortedYears(mc.MeanYearEndNetWorth) {
			fmt.Fprintf(buf, "  %d %18s\n", year, FormatCurrency(mc.MeanYearEndNetWorth[year]))
		}
		fmt.Fprintln(buf)
	}
}

// ratioOf returns part/whole, or zero when whole is zero
func ratioOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole)
}
