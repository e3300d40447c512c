package calculation

import (
	"fmt"
	"maps"
	"math/rand"
	"slices"
	"time"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/rpgo/finplan/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// defaultBirthDate is used when a configuration has no birth date
var defaultBirthDate = dateutil.Date(1970, time.January, 1)

// repeatState is the schedule of one started repeating event
type repeatState struct {
	active bool
	anchor time.Time
	next   time.Time
}

// SimulationState is everything one run mutates. Trigger, amount and effect
// evaluation only read it; ApplyStateEvent is the only code that changes it.
type SimulationState struct {
	StartDate   time.Time
	EndDate     time.Time
	BirthDate   time.Time
	CurrentDate time.Time

	Accounts map[domain.AccountID]*domain.Account
	Market   *Market
	Tax      *TaxCalculator

	events      map[domain.EventID]*domain.Event
	eventOrder  []domain.EventID
	triggered   map[domain.EventID]time.Time
	repeating   map[domain.EventID]*repeatState
	terminated  map[domain.EventID]bool
	occurrences map[domain.EventID]int
	firedOn     map[domain.EventID]time.Time
	pending     []domain.EventID

	// YTDTax accumulates the current calendar year.
	YTDTax      domain.TaxSummary
	yearlyTaxes []domain.TaxSummary
	cashFlows   map[int]*domain.YearlyCashFlow

	yearEndBalances  map[int]map[domain.AccountID]decimal.Decimal
	contributionsYTD map[domain.AccountID]decimal.Decimal
	contributionsMTD map[domain.AccountID]decimal.Decimal

	collectLedger   bool
	ledger          []domain.LedgerEntry
	warnings        []domain.Warning
	dates           []time.Time
	snapshots       []domain.WealthSnapshot
	yearEndNetWorth map[int]decimal.Decimal

	logger Logger
}

// NewSimulationState samples the market for seed and copies every account
// so the run owns its portfolio.
func NewSimulationState(cfg *domain.SimulationConfig, seed uint64) (*SimulationState, error) {
	rng := rand.New(rand.NewSource(int64(seed)))

	start := dateutil.Truncate(cfg.StartDate)
	birth := defaultBirthDate
	if !cfg.BirthDate.IsZero() {
		birth = dateutil.Truncate(cfg.BirthDate)
	}

	market, err := NewMarketFromProfiles(rng, cfg.DurationYears, cfg.InflationProfile, cfg.ReturnProfiles, assetListings(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to build market: %w", err)
	}

	s := &SimulationState{
		StartDate:        start,
		EndDate:          dateutil.AddYearsClamped(start, cfg.DurationYears),
		BirthDate:        birth,
		CurrentDate:      start,
		Accounts:         make(map[domain.AccountID]*domain.Account, len(cfg.Accounts)),
		Market:           market,
		Tax:              NewTaxCalculator(cfg.Tax),
		events:           make(map[domain.EventID]*domain.Event, len(cfg.Events)),
		triggered:        make(map[domain.EventID]time.Time),
		repeating:        make(map[domain.EventID]*repeatState),
		terminated:       make(map[domain.EventID]bool),
		occurrences:      make(map[domain.EventID]int),
		firedOn:          make(map[domain.EventID]time.Time),
		YTDTax:           domain.TaxSummary{Year: start.Year()},
		cashFlows:        make(map[int]*domain.YearlyCashFlow),
		yearEndBalances:  make(map[int]map[domain.AccountID]decimal.Decimal),
		contributionsYTD: make(map[domain.AccountID]decimal.Decimal),
		contributionsMTD: make(map[domain.AccountID]decimal.Decimal),
		collectLedger:    cfg.CollectLedger,
		yearEndNetWorth:  make(map[int]decimal.Decimal),
		logger:           NopLogger{},
	}
	for _, a := range cfg.Accounts {
		s.Accounts[a.ID] = a.Clone()
	}
	for _, e := range cfg.Events {
		s.events[e.ID] = e
	}
	s.eventOrder = slices.Sorted(maps.Keys(s.events))
	return s, nil
}

// assetListings registers every held or configured asset with its starting
// price. Property uses its own value as the starting price.
func assetListings(cfg *domain.SimulationConfig) map[domain.AssetID]AssetListing {
	listings := make(map[domain.AssetID]AssetListing)
	price := func(asset domain.AssetID, fallback decimal.Decimal) float64 {
		if p, ok := cfg.AssetPrices[asset]; ok {
			return p.InexactFloat64()
		}
		return fallback.InexactFloat64()
	}
	add := func(asset domain.AssetID, fallback decimal.Decimal) {
		profile, ok := cfg.AssetReturns[asset]
		if !ok {
			return
		}
		if _, seen := listings[asset]; seen {
			return
		}
		listings[asset] = AssetListing{InitialPrice: price(asset, fallback), Profile: profile}
	}

	one := decimal.NewFromInt(1)
	for _, a := range cfg.Accounts {
		switch f := a.Flavor.(type) {
		case *domain.Investment:
			for _, lot := range f.Positions {
				add(lot.AssetID, one)
			}
		case *domain.Property:
			add(f.AssetID, f.Value)
		}
	}
	for _, asset := range slices.Sorted(maps.Keys(cfg.AssetReturns)) {
		add(asset, one)
	}
	return listings
}

// SetLogger routes warnings to l
func (s *SimulationState) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	s.logger = l
}

// Price returns the current price of one unit of asset
func (s *SimulationState) Price(asset domain.AssetID) (decimal.Decimal, bool) {
	return s.Market.AssetValue(s.StartDate, s.CurrentDate, asset)
}

func (s *SimulationState) account(op string, id domain.AccountID) (*domain.Account, error) {
	a, ok := s.Accounts[id]
	if !ok {
		return nil, accountNotFound(op, id)
	}
	return a, nil
}

// AccountBalance returns an account's total value at current prices
func (s *SimulationState) AccountBalance(id domain.AccountID) (decimal.Decimal, error) {
	a, err := s.account("account balance", id)
	if err != nil {
		return decimal.Zero, err
	}
	return a.TotalValue(s.Price), nil
}

// AccountCashBalance returns the cash held by a Bank or Investment account
func (s *SimulationState) AccountCashBalance(id domain.AccountID) (decimal.Decimal, error) {
	a, err := s.account("cash balance", id)
	if err != nil {
		return decimal.Zero, err
	}
	cash, ok := a.CashBalance()
	if !ok {
		return decimal.Zero, &LookupError{Op: "cash balance", ID: id, Err: ErrNotACashAccount}
	}
	return cash, nil
}

// AssetBalance returns the current value of one position
func (s *SimulationState) AssetBalance(coord domain.AssetCoord) (decimal.Decimal, error) {
	a, err := s.account("asset balance", coord.AccountID)
	if err != nil {
		return decimal.Zero, err
	}
	switch f := a.Flavor.(type) {
	case *domain.Investment:
		price, _ := s.Price(coord.AssetID)
		return f.Units(coord.AssetID).Mul(price), nil
	case *domain.Property:
		if f.AssetID == coord.AssetID {
			if price, ok := s.Price(f.AssetID); ok {
				return price, nil
			}
			return f.Value, nil
		}
	}
	return decimal.Zero, &LookupError{Op: "asset balance", ID: coord, Err: ErrAssetNotFound}
}

// NetWorth sums every account's value; liabilities count against it
func (s *SimulationState) NetWorth() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Accounts {
		total = total.Add(a.TotalValue(s.Price))
	}
	return total
}

// Age returns the holder's completed years and months on the current date
func (s *SimulationState) Age() (int, int) {
	return dateutil.AgeYearsMonths(s.BirthDate, s.CurrentDate)
}

// AgeDecimal returns the holder's age as years plus completed months/12
func (s *SimulationState) AgeDecimal() decimal.Decimal {
	years, months := s.Age()
	return decimal.NewFromInt(int64(years)).Add(decimal.NewFromInt(int64(months)).Div(decimal.NewFromInt(12)))
}

// BelowEarlyWithdrawalAge reports whether tax-deferred withdrawals are
// penalized today
func (s *SimulationState) BelowEarlyWithdrawalAge() bool {
	return s.AgeDecimal().LessThan(EarlyWithdrawalAge)
}

// ContributionRoom returns what may still be contributed to id this period.
// The bool is false when the account has no limit.
func (s *SimulationState) ContributionRoom(id domain.AccountID) (decimal.Decimal, bool, error) {
	a, err := s.account("contribution room", id)
	if err != nil {
		return decimal.Zero, false, err
	}
	inv, ok := a.Flavor.(*domain.Investment)
	if !ok || inv.ContributionLimit == nil {
		return decimal.Zero, false, nil
	}
	used := s.contributionsYTD[id]
	if inv.ContributionLimit.Period == domain.Monthly {
		used = s.contributionsMTD[id]
	}
	return decimal.Max(inv.ContributionLimit.Amount.Sub(used), decimal.Zero), true, nil
}

// PriorYearEndBalance returns the Dec 31 balance of a tax-deferred account
// in the previous calendar year
func (s *SimulationState) PriorYearEndBalance(id domain.AccountID) (decimal.Decimal, bool) {
	balances, ok := s.yearEndBalances[s.CurrentDate.Year()-1]
	if !ok {
		return decimal.Zero, false
	}
	b, ok := balances[id]
	return b, ok
}

// TriggeredDate returns the last date event fired
func (s *SimulationState) TriggeredDate(id domain.EventID) (time.Time, bool) {
	d, ok := s.triggered[id]
	return d, ok
}

// IsTerminated reports whether event was stopped permanently
func (s *SimulationState) IsTerminated(id domain.EventID) bool {
	return s.terminated[id]
}

// Occurrences returns how many times event has fired
func (s *SimulationState) Occurrences(id domain.EventID) int {
	return s.occurrences[id]
}

// Ledger returns the entries recorded so far
func (s *SimulationState) Ledger() []domain.LedgerEntry { return s.ledger }

// Warnings returns the problems collected so far
func (s *SimulationState) Warnings() []domain.Warning { return s.warnings }

func (s *SimulationState) record(source *domain.EventID, ev domain.StateEvent) {
	s.trackCashFlow(ev)
	if !s.collectLedger {
		return
	}
	s.ledger = append(s.ledger, domain.LedgerEntry{Date: s.CurrentDate, SourceEvent: source, Event: ev})
}

func (s *SimulationState) trackCashFlow(ev domain.StateEvent) {
	year := s.CurrentDate.Year()
	flow, ok := s.cashFlows[year]
	if !ok {
		flow = &domain.YearlyCashFlow{Year: year}
		s.cashFlows[year] = flow
	}
	switch e := ev.(type) {
	case domain.CashCredit:
		switch e.Flow {
		case domain.FlowIncome:
			flow.Income = flow.Income.Add(e.Amount)
		case domain.FlowLiquidationProceeds:
			flow.Withdrawals = flow.Withdrawals.Add(e.Amount)
		case domain.FlowAppreciation:
			flow.Appreciation = flow.Appreciation.Add(e.Amount)
		}
	case domain.CashDebit:
		switch e.Flow {
		case domain.FlowExpense:
			flow.Expenses = flow.Expenses.Add(e.Amount)
		case domain.FlowContribution:
			flow.Contributions = flow.Contributions.Add(e.Amount)
		}
	case domain.CashAppreciation:
		flow.Appreciation = flow.Appreciation.Add(e.New.Sub(e.Previous))
	}
}

func (s *SimulationState) warn(kind domain.WarningKind, event *domain.EventID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.warnings = append(s.warnings, domain.Warning{Date: s.CurrentDate, Event: event, Kind: kind, Message: msg})
	if event != nil {
		s.logger.Warnf("%s: event %d: %s", s.CurrentDate.Format("2006-01-02"), *event, msg)
		return
	}
	s.logger.Warnf("%s: %s", s.CurrentDate.Format("2006-01-02"), msg)
}

func (s *SimulationState) finalizeYearTaxes() {
	if !s.YTDTax.HasActivity() {
		return
	}
	summary := s.YTDTax
	summary.TotalTax = summary.FederalTax.Add(summary.StateTax)
	s.yearlyTaxes = append(s.yearlyTaxes, summary)
}

// accountSnapshots values every account in ascending id order
func (s *SimulationState) accountSnapshots() []domain.AccountSnapshot {
	ids := slices.Sorted(maps.Keys(s.Accounts))
	out := make([]domain.AccountSnapshot, 0, len(ids))
	for _, id := range ids {
		a := s.Accounts[id]
		snap := domain.AccountSnapshot{Account: id, Name: a.Name, TotalValue: a.TotalValue(s.Price)}
		snap.Cash, _ = a.CashBalance()
		if inv, ok := a.Flavor.(*domain.Investment); ok {
			for _, asset := range inv.AssetIDs() {
				units := inv.Units(asset)
				basis := decimal.Zero
				for _, lot := range inv.LotsFor(asset) {
					basis = basis.Add(lot.CostBasis)
				}
				value := basis
				if price, ok := s.Price(asset); ok {
					value = units.Mul(price)
				}
				snap.Assets = append(snap.Assets, domain.AssetSnapshot{Asset: asset, Units: units, CostBasis: basis, Value: value})
			}
		}
		out = append(out, snap)
	}
	return out
}

func (s *SimulationState) snapshotWealth() {
	accounts := s.accountSnapshots()
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.TotalValue)
	}
	s.snapshots = append(s.snapshots, domain.WealthSnapshot{Date: s.CurrentDate, NetWorth: total, Accounts: accounts})
}

// snapshotYearEnd stores tax-deferred balances for next year's RMDs and the
// year's closing net worth
func (s *SimulationState) snapshotYearEnd() {
	year := s.CurrentDate.Year()
	balances := make(map[domain.AccountID]decimal.Decimal)
	for id, a := range s.Accounts {
		if inv, ok := a.Flavor.(*domain.Investment); ok && inv.TaxStatus == domain.TaxDeferred {
			balances[id] = a.TotalValue(s.Price)
		}
	}
	s.yearEndBalances[year] = balances
	s.snapshotWealth()
	s.yearEndNetWorth[year] = s.snapshots[len(s.snapshots)-1].NetWorth
}

// result assembles the run's output. It finalizes the open tax year.
func (s *SimulationState) result(seed uint64, starting []domain.AccountSnapshot) *domain.SimulationResult {
	s.finalizeYearTaxes()
	s.snapshotWealth()

	flows := make([]domain.YearlyCashFlow, 0, len(s.cashFlows))
	for _, year := range slices.Sorted(maps.Keys(s.cashFlows)) {
		f := *s.cashFlows[year]
		f.NetCashFlow = f.Income.Sub(f.Expenses).Add(f.Appreciation)
		flows = append(flows, f)
	}

	return &domain.SimulationResult{
		Seed:                seed,
		StartDate:           s.StartDate,
		EndDate:             s.EndDate,
		Dates:               s.dates,
		StartingSnapshot:    starting,
		WealthSnapshots:     s.snapshots,
		YearlyTaxes:         s.yearlyTaxes,
		YearlyCashFlows:     flows,
		Ledger:              s.ledger,
		FinalBalances:       s.snapshots[len(s.snapshots)-1].Accounts,
		YearEndNetWorth:     s.yearEndNetWorth,
		CumulativeInflation: s.Market.CumulativeInflationFactors(),
		Warnings:            s.warnings,
	}
}
