package output

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rpgo/finplan/internal/domain"
)

// DefaultAssumptions lists the modeling assumptions that hold for every run.
var DefaultAssumptions = []string{
	"Cash grows and debts accrue interest over the days between checkpoints",
	"Taxes use the configured brackets, held constant (no inflation indexing)",
	"Required minimum distributions follow the IRS Uniform Lifetime Table",
	"Sales realize gains by lot; lots held 365 days or more are long term",
}

// GenerateAssumptions creates the assumptions list from actual config values
func GenerateAssumptions(cfg *domain.SimulationConfig) []string {
	if cfg == nil {
		return DefaultAssumptions
	}
	lines := []string{
		fmt.Sprintf("Horizon: %d years from %s", cfg.DurationYears, cfg.StartDate.Format("2006-01-02")),
		"Inflation: " + describeInflation(cfg.InflationProfile),
	}
	for _, id := range slices.Sorted(maps.Keys(cfg.ReturnProfiles)) {
		lines = append(lines, fmt.Sprintf("Return profile %d: %s", id, describeReturn(cfg.ReturnProfiles[id])))
	}
	for _, asset := range slices.Sorted(maps.Keys(cfg.AssetReturns)) {
		lines = append(lines, fmt.Sprintf("%s grows at return profile %d", cfg.AssetName(asset), cfg.AssetReturns[asset]))
	}

	tax := cfg.Tax
	if n := len(tax.FederalBrackets); n > 0 {
		lines = append(lines, fmt.Sprintf("Federal tax: %d brackets, top rate %s", n, FormatRatio(tax.FederalBrackets[n-1].Rate)))
	}
	lines = append(lines,
		fmt.Sprintf("State tax: %s flat", FormatRatio(tax.StateRate)),
		fmt.Sprintf("Long-term capital gains: %s", FormatRatio(tax.CapitalGainsRate)),
		fmt.Sprintf("Early withdrawal penalty: %s before age 59½", FormatRatio(tax.EarlyWithdrawalPenaltyRate)),
	)
	return append(lines, DefaultAssumptions...)
}

func describeReturn(p domain.ReturnProfile) string {
	switch p := p.(type) {
	case domain.NoReturn:
		return "no growth"
	case domain.FixedReturn:
		return "fixed " + formatRate(p.Rate)
	case domain.NormalReturn:
		return fmt.Sprintf("normal, mean %s, std dev %s", formatRate(p.Mean), formatRate(p.StdDev))
	case domain.LogNormalReturn:
		return fmt.Sprintf("lognormal, mean %s, std dev %s", formatRate(p.Mean), formatRate(p.StdDev))
	case domain.StudentTReturn:
		return fmt.Sprintf("student t, mean %s, scale %s, %g df", formatRate(p.Mean), formatRate(p.Scale), p.DF)
	case domain.RegimeSwitchingReturn:
		return fmt.Sprintf("regime switching between bull (%s) and bear (%s)", describeReturn(p.Bull), describeReturn(p.Bear))
	case domain.BootstrapReturn:
		return fmt.Sprintf("bootstrap of %d historical years", len(p.History))
	default:
		return fmt.Sprintf("%T", p)
	}
}

func describeInflation(p domain.InflationProfile) string {
	switch p := p.(type) {
	case nil, domain.NoInflation:
		return "none"
	case domain.FixedInflation:
		return "fixed " + formatRate(p.Rate)
	case domain.NormalInflation:
		return fmt.Sprintf("normal, mean %s, std dev %s", formatRate(p.Mean), formatRate(p.StdDev))
	case domain.LogNormalInflation:
		return fmt.Sprintf("lognormal, mean %s, std dev %s", formatRate(p.Mean), formatRate(p.StdDev))
	case domain.BootstrapInflation:
		return fmt.Sprintf("bootstrap of %d historical years", len(p.History))
	default:
		return fmt.Sprintf("%T", p)
	}
}
