package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetSnapshot is one asset position inside an account snapshot
type AssetSnapshot struct {
	Asset     AssetID         `json:"asset"`
	Units     decimal.Decimal `json:"units"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	Value     decimal.Decimal `json:"value"`
}

// AccountSnapshot is an account's balances at a point in time
type AccountSnapshot struct {
	Account    AccountID       `json:"account"`
	Name       string          `json:"name"`
	Cash       decimal.Decimal `json:"cash"`
	TotalValue decimal.Decimal `json:"total_value"`
	Assets     []AssetSnapshot `json:"assets,omitempty"`
}

// WealthSnapshot is every account's value on one date
type WealthSnapshot struct {
	Date     time.Time         `json:"date"`
	NetWorth decimal.Decimal   `json:"net_worth"`
	Accounts []AccountSnapshot `json:"accounts"`
}

// YearlyCashFlow aggregates the cash moved in one calendar year
type YearlyCashFlow struct {
	Year          int             `json:"year"`
	Income        decimal.Decimal `json:"income"`
	Expenses      decimal.Decimal `json:"expenses"`
	Contributions decimal.Decimal `json:"contributions"`
	Withdrawals   decimal.Decimal `json:"withdrawals"`
	Appreciation  decimal.Decimal `json:"appreciation"`
	NetCashFlow   decimal.Decimal `json:"net_cash_flow"`
}

// Warning is a non-fatal problem met while processing an event
type Warning struct {
	Date    time.Time   `json:"date"`
	Event   *EventID    `json:"event,omitempty"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// SimulationResult is everything one run produces
type SimulationResult struct {
	Seed      uint64    `json:"seed"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	Dates               []time.Time             `json:"dates"`
	StartingSnapshot    []AccountSnapshot       `json:"starting_snapshot"`
	WealthSnapshots     []WealthSnapshot        `json:"wealth_snapshots"`
	YearlyTaxes         []TaxSummary            `json:"yearly_taxes"`
	YearlyCashFlows     []YearlyCashFlow        `json:"yearly_cash_flows"`
	Ledger              []LedgerEntry           `json:"ledger,omitempty"`
	FinalBalances       []AccountSnapshot       `json:"final_balances"`
	YearEndNetWorth     map[int]decimal.Decimal `json:"year_end_net_worth"`
	CumulativeInflation []float64               `json:"cumulative_inflation"`
	Warnings            []Warning               `json:"warnings,omitempty"`
}

// FinalNetWorth sums the final value of every account
func (r *SimulationResult) FinalNetWorth() decimal.Decimal {
	total := decimal.Zero
	for _, a := range r.FinalBalances {
		total = total.Add(a.TotalValue)
	}
	return total
}

// FinalBalance returns the final snapshot of one account
func (r *SimulationResult) FinalBalance(id AccountID) (AccountSnapshot, bool) {
	for _, a := range r.FinalBalances {
		if a.Account == id {
			return a, true
		}
	}
	return AccountSnapshot{}, false
}

// TaxesFor returns the tax summary of year, zero-valued when nothing was taxed
func (r *SimulationResult) TaxesFor(year int) TaxSummary {
	for _, t := range r.YearlyTaxes {
		if t.Year == year {
			return t
		}
	}
	return TaxSummary{Year: year}
}

// MonteCarloResult holds every iteration of a Monte Carlo run in seed order
type MonteCarloResult struct {
	Iterations []SimulationResult `json:"iterations"`
	Seeds      []uint64           `json:"seeds"`
}

// PercentileValue is the final net worth at percentile P (0-100)
type PercentileValue struct {
	P     float64         `json:"p"`
	Value decimal.Decimal `json:"value"`
	Seed  uint64          `json:"seed"`
}

// MonteCarloStats summarizes final net worth across iterations
type MonteCarloStats struct {
	Iterations  int               `json:"iterations"`
	SuccessRate decimal.Decimal   `json:"success_rate"`
	Mean        decimal.Decimal   `json:"mean"`
	StdDev      decimal.Decimal   `json:"std_dev"`
	Min         decimal.Decimal   `json:"min"`
	Max         decimal.Decimal   `json:"max"`
	Percentiles []PercentileValue `json:"percentiles"`
}

// PercentileRun is the full iteration sitting at a percentile
type PercentileRun struct {
	P      float64           `json:"p"`
	Result *SimulationResult `json:"result"`
}

// MonteCarloSummary is the compact form of a Monte Carlo run kept for
// reporting and persistence
type MonteCarloSummary struct {
	Stats          MonteCarloStats `json:"stats"`
	PercentileRuns []PercentileRun `json:"percentile_runs,omitempty"`

	// MeanYearEndNetWorth averages each year's net worth over iterations.
	MeanYearEndNetWorth map[int]decimal.Decimal `json:"mean_year_end_net_worth"`
}
