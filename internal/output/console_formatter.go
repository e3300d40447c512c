package output

import (
	"bytes"
	"fmt"
)

// ConsoleFormatter provides a concise console style summary via the formatter interface.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console-lite" }

func (c ConsoleFormatter) Format(report *Report) ([]byte, error) {
	if report.Result == nil && report.MonteCarlo == nil {
		return nil, fmt.Errorf("%w: nothing to summarize", ErrMissingData)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s SUMMARY\n", report.Title())
	fmt.Fprintln(&buf, "================================")

	if r := report.Result; r != nil {
		h := AnalyzeResult(r)
		fmt.Fprintf(&buf, "Seed=%d Start=%s End=%s\n", r.Seed, r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
		fmt.Fprintf(&buf, "NetWorth: Start=%s Final=%s Peak=%s (%d)\n",
			FormatCurrency(h.StartingNetWorth), FormatCurrency(h.FinalNetWorth), FormatCurrency(h.PeakNetWorth), h.PeakYear)
		fmt.Fprintf(&buf, "Income=%s Expenses=%s Taxes=%s Warnings=%d\n",
			FormatCurrency(h.TotalIncome), FormatCurrency(h.TotalExpenses), FormatCurrency(h.TotalTaxes), h.Warnings)
		if h.DepletionYear != 0 {
			fmt.Fprintf(&buf, "Depleted: %d\n", h.DepletionYear)
		}
	}

	if mc := report.MonteCarlo; mc != nil {
		s := mc.Stats
		fmt.Fprintf(&buf, "MonteCarlo: Iterations=%d Success=%s Mean=%s StdDev=%s\n",
			s.Iterations, FormatRatio(s.SuccessRate), FormatCurrency(s.Mean), FormatCurrency(s.StdDev))
		for _, p := range s.Percentiles {
			fmt.Fprintf(&buf, "  P%g=%s (seed %d)\n", p.P, FormatCurrency(p.Value), p.Seed)
		}
	}
	return buf.Bytes(), nil
}
