package output

import (
	"testing"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

func TestAnalyzeResult_PeakLowAndTotals(t *testing.T) {
	h := AnalyzeResult(buildTestResult())
	if !h.StartingNetWorth.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("starting net worth = %s", h.StartingNetWorth)
	}
	if !h.FinalNetWorth.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("final net worth = %s", h.FinalNetWorth)
	}
	if h.PeakYear != 2026 || h.LowestYear != 2025 {
		t.Fatalf("peak %d lowest %d, want 2026 and 2025", h.PeakYear, h.LowestYear)
	}
	if h.DepletionYear != 0 {
		t.Fatalf("unexpected depletion year %d", h.DepletionYear)
	}
	if !h.TotalIncome.Equal(decimal.NewFromInt(20000)) || !h.TotalExpenses.Equal(decimal.NewFromInt(9000)) {
		t.Fatalf("income %s expenses %s", h.TotalIncome, h.TotalExpenses)
	}
	if !h.TotalTaxes.Equal(decimal.NewFromInt(500)) || h.Warnings != 1 {
		t.Fatalf("taxes %s warnings %d", h.TotalTaxes, h.Warnings)
	}
}

func TestAnalyzeResult_FirstDepletionYear(t *testing.T) {
	r := &domain.SimulationResult{
		YearEndNetWorth: map[int]decimal.Decimal{
			2030: decimal.NewFromInt(100),
			2031: decimal.Zero,
			2032: decimal.NewFromInt(-10),
			2033: decimal.NewFromInt(50),
		},
	}
	h := AnalyzeResult(r)
	if h.DepletionYear != 2031 {
		t.Fatalf("depletion year = %d, want 2031", h.DepletionYear)
	}
	if h.LowestYear != 2032 || !h.LowestNetWorth.Equal(decimal.NewFromInt(-10)) {
		t.Fatalf("lowest = %s in %d", h.LowestNetWorth, h.LowestYear)
	}
}

func TestGenerateAssumptions(t *testing.T) {
	if got := GenerateAssumptions(nil); len(got) != len(DefaultAssumptions) {
		t.Fatalf("nil config should give the defaults, got %v", got)
	}

	cfg := buildTestConfig()
	cfg.InflationProfile = domain.FixedInflation{Rate: 0.025}
	cfg.ReturnProfiles = map[domain.ReturnProfileID]domain.ReturnProfile{
		1: domain.FixedReturn{Rate: 0.07},
	}
	cfg.AssetReturns = map[domain.AssetID]domain.ReturnProfileID{1: 1}
	cfg.Tax = domain.DefaultTaxConfig()

	lines := GenerateAssumptions(cfg)
	want := []string{
		"Horizon: 2 years from 2025-01-01",
		"Inflation: fixed 2.5%",
		"Return profile 1: fixed 7.0%",
		"FUND grows at return profile 1",
	}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d = %q, want %q", i, lines[i], w)
		}
	}
	if lines[len(lines)-1] != DefaultAssumptions[len(DefaultAssumptions)-1] {
		t.Fatalf("defaults not appended: %v", lines)
	}
}
