package calculation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/rpgo/finplan/pkg/dateutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, day int) time.Time { return dateutil.Date(y, m, day) }

func eventID(id domain.EventID) *domain.EventID { return &id }

func assetID(id domain.AssetID) *domain.AssetID { return &id }

// assertMoney compares to the cent
func assertMoney(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, d(expected).StringFixed(2), actual.StringFixed(2), msgAndArgs...)
}

const (
	checking  domain.AccountID = 1
	brokerage domain.AccountID = 2
	ira       domain.AccountID = 3
	roth      domain.AccountID = 4
	mortgage  domain.AccountID = 5
	house     domain.AccountID = 6

	fund  domain.AssetID = 1
	bonds domain.AssetID = 2
	home  domain.AssetID = 3

	flat domain.ReturnProfileID = 0
)

func bank(id domain.AccountID, cash string) *domain.Account {
	return &domain.Account{ID: id, Name: "checking", Flavor: &domain.Bank{Cash: domain.Cash{Value: d(cash), ReturnProfileID: flat}}}
}

func investment(id domain.AccountID, status domain.TaxStatus, lots ...domain.Lot) *domain.Account {
	return &domain.Account{ID: id, Name: status.String(), Flavor: &domain.Investment{
		TaxStatus: status,
		Cash:      domain.Cash{ReturnProfileID: flat},
		Positions: lots,
	}}
}

func lot(asset domain.AssetID, bought time.Time, units, basis string) domain.Lot {
	return domain.Lot{AssetID: asset, PurchaseDate: bought, Units: d(units), CostBasis: d(basis)}
}

// flatConfig is a three year plan where nothing grows and every asset is
// priced at its AssetPrices entry
func flatConfig(accounts ...*domain.Account) *domain.SimulationConfig {
	return &domain.SimulationConfig{
		Name:             "test",
		StartDate:        date(2025, time.January, 1),
		BirthDate:        date(1960, time.January, 1),
		DurationYears:    3,
		Accounts:         accounts,
		ReturnProfiles:   map[domain.ReturnProfileID]domain.ReturnProfile{flat: domain.NoReturn{}},
		InflationProfile: domain.NoInflation{},
		AssetPrices: map[domain.AssetID]decimal.Decimal{
			fund:  d("100"),
			bonds: d("50"),
			home:  d("400000"),
		},
		AssetReturns: map[domain.AssetID]domain.ReturnProfileID{fund: flat, bonds: flat, home: flat},
		Tax:          simpleTax(),
	}
}

// simpleTax is a four bracket schedule with round numbers
func simpleTax() domain.TaxConfig {
	return domain.TaxConfig{
		FederalBrackets: []domain.TaxBracket{
			{Threshold: d("0"), Rate: d("0.10")},
			{Threshold: d("10000"), Rate: d("0.12")},
			{Threshold: d("40000"), Rate: d("0.22")},
			{Threshold: d("90000"), Rate: d("0.24")},
		},
		StateRate:                  d("0.05"),
		CapitalGainsRate:           d("0.15"),
		EarlyWithdrawalPenaltyRate: d("0.10"),
	}
}

func newState(t *testing.T, cfg *domain.SimulationConfig) *SimulationState {
	t.Helper()
	s, err := NewSimulationState(cfg, 42)
	require.NoError(t, err)
	return s
}

func cashOf(t *testing.T, s *SimulationState, id domain.AccountID) decimal.Decimal {
	t.Helper()
	cash, err := s.AccountCashBalance(id)
	require.NoError(t, err)
	return cash
}

func applyAll(t *testing.T, s *SimulationState, events []domain.StateEvent) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, ApplyStateEvent(s, ev, nil))
	}
}

func eventsOfType[T domain.StateEvent](events []domain.StateEvent) []T {
	var out []T
	for _, ev := range events {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

// recordingLogger keeps warnings; Monte Carlo workers share it
type recordingLogger struct {
	NopLogger
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
