package calculation

import (
	"maps"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/rpgo/finplan/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// moneyPlaces bounds the scale of amounts produced by float rate factors.
const moneyPlaces = 10

// rate is one year of a compounding table. cumulative is the product of
// (1+r) over every earlier year, so the first entry is always 1.
type rate struct {
	incremental float64
	cumulative  float64
}

func buildRates(yearly []float64) []rate {
	rates := make([]rate, len(yearly))
	cumulative := 1.0
	for i, r := range yearly {
		rates[i] = rate{incremental: r, cumulative: cumulative}
		cumulative *= 1 + r
	}
	return rates
}

// NDayRate converts a yearly rate into the compound rate over days
func NDayRate(yearly float64, days float64) float64 {
	return math.Pow(1+yearly, days/365) - 1
}

// growthFactor returns the multiplier taking a value from start to eval, or
// false when eval is before start or past the end of the table.
func growthFactor(rates []rate, start, eval time.Time) (float64, bool) {
	if eval.Before(start) {
		return 0, false
	}
	if eval.Equal(start) {
		return 1, true
	}

	years := dateutil.YearsBetween(start, eval)
	switch {
	case years < len(rates):
		factor := rates[years].cumulative
		days := dateutil.DaysBetween(dateutil.AddYearsClamped(start, years), eval)
		if days > 0 {
			factor *= 1 + NDayRate(rates[years].incremental, float64(days))
		}
		return factor, true
	case years == len(rates):
		// At the horizon; no partial-year rate exists past it.
		if years == 0 {
			return 1, true
		}
		last := rates[years-1]
		return last.cumulative * (1 + last.incremental), true
	default:
		return 0, false
	}
}

// AssetListing is an asset's starting price and the profile driving it
type AssetListing struct {
	InitialPrice float64
	Profile      domain.ReturnProfileID
}

// Market holds the sampled yearly rates for one run. It is read-only once
// built and answers valuations in constant time.
type Market struct {
	inflation []rate
	returns   map[domain.ReturnProfileID][]rate
	assets    map[domain.AssetID]AssetListing
}

// NewMarket builds a market from explicit yearly rate sequences
func NewMarket(inflation []float64, returns map[domain.ReturnProfileID][]float64, assets map[domain.AssetID]AssetListing) *Market {
	m := &Market{
		inflation: buildRates(inflation),
		returns:   make(map[domain.ReturnProfileID][]rate, len(returns)),
		assets:    make(map[domain.AssetID]AssetListing, len(assets)),
	}
	for id, yearly := range returns {
		m.returns[id] = buildRates(yearly)
	}
	maps.Copy(m.assets, assets)
	return m
}

// NewMarketFromProfiles samples years of inflation and then years of every
// return profile in ascending id order, so a given rng state always yields
// the same market.
func NewMarketFromProfiles(
	rng *rand.Rand,
	years int,
	inflation domain.InflationProfile,
	profiles map[domain.ReturnProfileID]domain.ReturnProfile,
	assets map[domain.AssetID]AssetListing,
) (*Market, error) {
	inflationRates, err := SampleInflationSequence(rng, inflation, years)
	if err != nil {
		return nil, err
	}

	returns := make(map[domain.ReturnProfileID][]float64, len(profiles))
	for _, id := range slices.Sorted(maps.Keys(profiles)) {
		seq, err := SampleReturnSequence(rng, profiles[id], years)
		if err != nil {
			return nil, err
		}
		returns[id] = seq
	}
	return NewMarket(inflationRates, returns, assets), nil
}

// HasAsset reports whether asset is priced by this market
func (m *Market) HasAsset(asset domain.AssetID) bool {
	_, ok := m.assets[asset]
	return ok
}

// AssetValue returns the price of one unit of asset on eval
func (m *Market) AssetValue(start, eval time.Time, asset domain.AssetID) (decimal.Decimal, bool) {
	listing, ok := m.assets[asset]
	if !ok {
		return decimal.Zero, false
	}
	rates, ok := m.returns[listing.Profile]
	if !ok {
		return decimal.Zero, false
	}
	factor, ok := growthFactor(rates, start, eval)
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(listing.InitialPrice * factor), true
}

// InflationAdjustedValue returns the nominal amount on eval with the same
// purchasing power as amount on start
func (m *Market) InflationAdjustedValue(start, eval time.Time, amount decimal.Decimal) (decimal.Decimal, bool) {
	factor, ok := growthFactor(m.inflation, start, eval)
	if !ok {
		return decimal.Zero, false
	}
	return scale(amount, factor), true
}

// ReturnOnValue grows amount from start to eval at profile's rates
func (m *Market) ReturnOnValue(start, eval time.Time, amount decimal.Decimal, profile domain.ReturnProfileID) (decimal.Decimal, bool) {
	rates, ok := m.returns[profile]
	if !ok {
		return decimal.Zero, false
	}
	factor, ok := growthFactor(rates, start, eval)
	if !ok {
		return decimal.Zero, false
	}
	return scale(amount, factor), true
}

// PeriodMultiplier returns 1 + the compound return over days at the rate of
// simulation year yearIndex.
func (m *Market) PeriodMultiplier(yearIndex, days int, profile domain.ReturnProfileID) (float64, error) {
	if days <= 0 {
		return 1, nil
	}
	rates, ok := m.returns[profile]
	if !ok {
		return 0, &LookupError{Op: "period multiplier", ID: profile, Err: ErrReturnProfileNotFound}
	}
	if yearIndex < 0 || yearIndex >= len(rates) {
		return 0, &LookupError{Op: "period multiplier", ID: profile, Err: ErrInsufficientRateData}
	}
	return 1 + NDayRate(rates[yearIndex].incremental, float64(days)), nil
}

// CumulativeInflationFactors returns 1 followed by the running product of
// (1+inflation) for each simulated year. Dividing a nominal value in year i
// by factor i expresses it in start-date dollars.
func (m *Market) CumulativeInflationFactors() []float64 {
	factors := make([]float64, 0, len(m.inflation)+1)
	factors = append(factors, 1)
	cumulative := 1.0
	for _, r := range m.inflation {
		cumulative *= 1 + r.incremental
		factors = append(factors, cumulative)
	}
	return factors
}

func scale(amount decimal.Decimal, factor float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(factor)).Round(moneyPlaces)
}
