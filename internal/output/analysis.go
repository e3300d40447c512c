package output

import (
	"maps"
	"slices"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// Highlights are the headline numbers of one simulation run.
type Highlights struct {
	StartingNetWorth decimal.Decimal
	FinalNetWorth    decimal.Decimal
	PeakNetWorth     decimal.Decimal
	PeakYear         int
	LowestNetWorth   decimal.Decimal
	LowestYear       int
	// DepletionYear is the first year-end with net worth at or below
	// zero, or 0 when that never happens.
	DepletionYear int

	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	TotalTaxes    decimal.Decimal
	Warnings      int
}

// AnalyzeResult extracts the headline numbers from a run.
// Extracted from the console formatters for testability.
func AnalyzeResult(result *domain.SimulationResult) Highlights {
	h := Highlights{Warnings: len(result.Warnings)}
	for _, a := range result.StartingSnapshot {
		h.StartingNetWorth = h.StartingNetWorth.Add(a.TotalValue)
	}
	h.FinalNetWorth = result.FinalNetWorth()

	for i, year := range sortedYears(result.YearEndNetWorth) {
		nw := result.YearEndNetWorth[year]
		if i == 0 || nw.GreaterThan(h.PeakNetWorth) {
			h.PeakNetWorth, h.PeakYear = nw, year
		}
		if i == 0 || nw.LessThan(h.LowestNetWorth) {
			h.LowestNetWorth, h.LowestYear = nw, year
		}
		if h.DepletionYear == 0 && !nw.IsPositive() {
			h.DepletionYear = year
		}
	}

	for _, cf := range result.YearlyCashFlows {
		h.TotalIncome = h.TotalIncome.Add(cf.Income)
		h.TotalExpenses = h.TotalExpenses.Add(cf.Expenses)
	}
	for _, t := range result.YearlyTaxes {
		h.TotalTaxes = h.TotalTaxes.Add(t.TotalTax)
	}
	return h
}

func sortedYears[V any](m map[int]V) []int {
	return slices.Sorted(maps.Keys(m))
}
