package calculation

import (
	"testing"
	"time"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const growth domain.ReturnProfileID = 1

func monthly(start time.Time) domain.Repeating {
	return domain.Repeating{Interval: domain.MonthlyInterval, Start: domain.OnDate{Date: start}}
}

func simulateOK(t *testing.T, cfg *domain.SimulationConfig) *domain.SimulationResult {
	t.Helper()
	result, err := Simulate(cfg, 42)
	require.NoError(t, err)
	return result
}

func finalTotal(t *testing.T, result *domain.SimulationResult, id domain.AccountID) float64 {
	t.Helper()
	snap, ok := result.FinalBalance(id)
	require.True(t, ok, "account %d missing from final balances", id)
	return snap.TotalValue.InexactFloat64()
}

func warningsOf(result *domain.SimulationResult, kind domain.WarningKind) []domain.Warning {
	var out []domain.Warning
	for _, w := range result.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

func TestSimulate_Deterministic(t *testing.T) {
	cfg := flatConfig(bank(checking, "1000"), investment(brokerage, domain.Taxable, lot(fund, date(2020, time.January, 1), "100", "5000")))
	cfg.ReturnProfiles[growth] = domain.NormalReturn{Mean: 0.07, StdDev: 0.15}
	cfg.AssetReturns[fund] = growth

	a, err := Simulate(cfg, 7)
	require.NoError(t, err)
	b, err := Simulate(cfg, 7)
	require.NoError(t, err)
	c, err := Simulate(cfg, 8)
	require.NoError(t, err)

	assert.Equal(t, a.FinalNetWorth().String(), b.FinalNetWorth().String())
	assert.Equal(t, a.Dates, b.Dates)
	assert.NotEqual(t, a.FinalNetWorth().String(), c.FinalNetWorth().String())
	assert.Equal(t, uint64(7), a.Seed)
}

func TestSimulate_InvalidConfig(t *testing.T) {
	cfg := flatConfig()
	cfg.DurationYears = 0
	_, err := Simulate(cfg, 1)
	assert.Error(t, err)
}

func TestSimulate_DateCadence(t *testing.T) {
	result := simulateOK(t, flatConfig(bank(checking, "1")))

	require.NotEmpty(t, result.Dates)
	assert.Equal(t, date(2025, time.January, 1), result.Dates[0])
	assert.Contains(t, result.Dates, date(2025, time.December, 31))
	for i := 1; i < len(result.Dates); i++ {
		gap := result.Dates[i].Sub(result.Dates[i-1])
		assert.Positive(t, gap)
		assert.LessOrEqual(t, gap, 92*24*time.Hour, "heartbeat keeps checkpoints within a quarter")
	}
	assert.Equal(t, date(2028, time.January, 1), result.EndDate)
	assert.NotContains(t, result.Dates, result.EndDate)
}

func TestSimulate_CashGrowth(t *testing.T) {
	cfg := flatConfig(&domain.Account{ID: checking, Flavor: &domain.Bank{Cash: domain.Cash{Value: d("10000"), ReturnProfileID: growth}}})
	cfg.ReturnProfiles[growth] = domain.FixedReturn{Rate: 0.10}

	result := simulateOK(t, cfg)
	assert.InDelta(t, 13310, finalTotal(t, result, checking), 0.5)
	// Dec 31 is 364 days in
	assert.InDelta(t, 10997.13, result.YearEndNetWorth[2025].InexactFloat64(), 0.5)
}

func TestSimulate_LiabilityInterest(t *testing.T) {
	loan := &domain.Account{ID: mortgage, Flavor: &domain.Liability{Principal: d("100000"), InterestRate: d("0.05")}}
	result := simulateOK(t, flatConfig(loan))

	assert.InDelta(t, -115762.5, finalTotal(t, result, mortgage), 1)
}

func TestSimulate_OnceAndEveryDate(t *testing.T) {
	income := domain.Income{To: checking, Amount: domain.FixedAmount(100), IncomeType: domain.TaxFreeIncome}
	always := domain.NetWorth{Threshold: gte("0")}

	cfg := flatConfig(bank(checking, "0"))
	cfg.Events = []*domain.Event{{ID: 1, Trigger: always, Effects: []domain.Effect{income}, Once: true}}
	result := simulateOK(t, cfg)
	assert.InDelta(t, 100, finalTotal(t, result, checking), 0.001)

	cfg.Events[0].Once = false
	result = simulateOK(t, cfg)
	assert.InDelta(t, 100*float64(len(result.Dates)), finalTotal(t, result, checking), 0.001,
		"fires once per processed date")
	assert.Empty(t, result.Warnings)
}

func TestSimulate_RepeatingMonthly(t *testing.T) {
	cfg := flatConfig(bank(checking, "0"))
	cfg.Events = []*domain.Event{{
		ID:      1,
		Trigger: monthly(cfg.StartDate),
		Effects: []domain.Effect{domain.Income{To: checking, Amount: domain.FixedAmount(1000), IncomeType: domain.TaxFreeIncome}},
	}}

	result := simulateOK(t, cfg)
	assert.InDelta(t, 36000, finalTotal(t, result, checking), 0.001)
	assert.Contains(t, result.Dates, date(2027, time.December, 1))
}

func TestSimulate_RepeatingWithEnd(t *testing.T) {
	cfg := flatConfig(bank(checking, "0"))
	trigger := monthly(cfg.StartDate)
	trigger.End = domain.OnDate{Date: date(2025, time.July, 1)}
	cfg.Events = []*domain.Event{{
		ID:      1,
		Trigger: trigger,
		Effects: []domain.Effect{domain.Income{To: checking, Amount: domain.FixedAmount(1000), IncomeType: domain.TaxFreeIncome}},
	}}

	result := simulateOK(t, cfg)
	assert.InDelta(t, 6000, finalTotal(t, result, checking), 0.001, "January through June")
}

func TestSimulate_PauseAndResume(t *testing.T) {
	cfg := flatConfig(bank(checking, "0"))
	cfg.Events = []*domain.Event{
		{ID: 1, Trigger: monthly(cfg.StartDate), Effects: []domain.Effect{
			domain.Income{To: checking, Amount: domain.FixedAmount(1000), IncomeType: domain.TaxFreeIncome},
		}},
		{ID: 2, Trigger: domain.OnDate{Date: date(2025, time.March, 15)}, Once: true, Effects: []domain.Effect{domain.PauseEvent{Event: 1}}},
		{ID: 3, Trigger: domain.OnDate{Date: date(2025, time.June, 15)}, Once: true, Effects: []domain.Effect{domain.ResumeEvent{Event: 1}}},
		{ID: 4, Trigger: domain.OnDate{Date: date(2025, time.December, 15)}, Once: true, Effects: []domain.Effect{domain.TerminateEvent{Event: 1}}},
	}

	result := simulateOK(t, cfg)
	// Jan, Feb and Mar before the pause, then Jul through Dec
	assert.InDelta(t, 9000, finalTotal(t, result, checking), 0.001)
}

func TestSimulate_TaxYearAttribution(t *testing.T) {
	cfg := flatConfig(bank(checking, "0"))
	cfg.Events = []*domain.Event{{
		ID:      1,
		Trigger: domain.OnDate{Date: date(2026, time.January, 1)},
		Once:    true,
		Effects: []domain.Effect{domain.Income{To: checking, Amount: domain.FixedAmount(20000), Mode: domain.Gross}},
	}}

	result := simulateOK(t, cfg)
	require.Len(t, result.YearlyTaxes, 1)
	taxes := result.TaxesFor(2026)
	assertMoney(t, "20000", taxes.OrdinaryIncome)
	assertMoney(t, "3200", taxes.TotalTax)
	assert.True(t, result.TaxesFor(2025).OrdinaryIncome.IsZero())
	assert.InDelta(t, 16800, finalTotal(t, result, checking), 0.001)
}

func TestSimulate_ContributionLimit(t *testing.T) {
	rothAccount := investment(roth, domain.TaxFree)
	rothAccount.Flavor.(*domain.Investment).ContributionLimit = &domain.ContributionLimit{Amount: d("7000"), Period: domain.Yearly}
	cfg := flatConfig(rothAccount)
	cfg.Events = []*domain.Event{{
		ID:      1,
		Trigger: monthly(cfg.StartDate),
		Effects: []domain.Effect{domain.Income{To: roth, Amount: domain.FixedAmount(1000), IncomeType: domain.TaxFreeIncome}},
	}}

	result := simulateOK(t, cfg)
	assert.InDelta(t, 21000, finalTotal(t, result, roth), 0.001)
	assert.InDelta(t, 7000, result.YearEndNetWorth[2025].InexactFloat64(), 0.001)
}

func TestSimulate_RsuSellToCover(t *testing.T) {
	cfg := flatConfig(investment(brokerage, domain.Taxable))
	cfg.Events = []*domain.Event{{
		ID:      1,
		Trigger: domain.OnDate{Date: date(2025, time.June, 1)},
		Once:    true,
		Effects: []domain.Effect{domain.RsuVesting{To: domain.AssetCoord{AccountID: brokerage, AssetID: fund}, Units: d("100"), SellToCover: true}},
	}}

	result := simulateOK(t, cfg)
	assert.InDelta(t, 8500, finalTotal(t, result, brokerage), 0.001)
	snap, _ := result.FinalBalance(brokerage)
	require.Len(t, snap.Assets, 1)
	assertMoney(t, "85", snap.Assets[0].Units)
	assertMoney(t, "10000", result.TaxesFor(2025).OrdinaryIncome)
}

func TestSimulate_RequiredMinimumDistributions(t *testing.T) {
	cfg := flatConfig(bank(checking, "0"), investment(ira, domain.TaxDeferred, lot(fund, date(2010, time.January, 1), "3000", "100000")))
	cfg.BirthDate = date(1952, time.January, 1)
	cfg.CollectLedger = true
	cfg.Events = []*domain.Event{{
		ID:      1,
		Trigger: domain.Repeating{Interval: domain.YearlyInterval, Start: domain.OnDate{Date: date(2025, time.January, 15)}},
		Effects: []domain.Effect{domain.ApplyRMD{Destination: checking}},
	}}

	result := simulateOK(t, cfg)

	var rmds []domain.RmdWithdrawal
	for _, entry := range result.Ledger {
		if e, ok := entry.Event.(domain.RmdWithdrawal); ok {
			rmds = append(rmds, e)
		}
	}
	require.Len(t, rmds, 2, "no prior year-end balance in the first year")

	divisor, ok := RMDDivisor(74)
	require.True(t, ok)
	assert.Equal(t, 74, rmds[0].Age)
	assertMoney(t, d("300000").Div(divisor).StringFixed(2), rmds[0].Required)
	assert.True(t, rmds[1].PriorYearBalance.LessThan(d("300000")))
	assert.True(t, result.TaxesFor(2026).OrdinaryIncome.Equal(rmds[0].Actual))
}

func TestSimulate_ChainedTriggers(t *testing.T) {
	cfg := flatConfig(bank(checking, "0"))
	cfg.Events = []*domain.Event{
		{ID: 1, Trigger: domain.Immediate{}, Effects: []domain.Effect{domain.TriggerEvent{Event: 2}}},
		{ID: 2, Trigger: domain.Manual{}, Effects: []domain.Effect{
			domain.Income{To: checking, Amount: domain.FixedAmount(50), IncomeType: domain.TaxFreeIncome},
		}},
	}

	result := simulateOK(t, cfg)
	assert.InDelta(t, 50, finalTotal(t, result, checking), 0.001)
	assert.Empty(t, result.Warnings)
}

func TestSimulate_ChainDepthExceeded(t *testing.T) {
	cfg := flatConfig(bank(checking, "0"))
	cfg.Events = []*domain.Event{
		{ID: 1, Trigger: domain.Immediate{}, Effects: []domain.Effect{domain.TriggerEvent{Event: 2}}},
		{ID: 2, Trigger: domain.Manual{}, Effects: []domain.Effect{
			domain.Income{To: checking, Amount: domain.FixedAmount(1), IncomeType: domain.TaxFreeIncome},
			domain.TriggerEvent{Event: 2},
		}},
	}

	result := simulateOK(t, cfg)
	warnings := warningsOf(result, domain.WarningChainDepthExceeded)
	require.Len(t, warnings, 1)
	assert.Equal(t, cfg.StartDate, warnings[0].Date)
	assert.InDelta(t, maxChainDepth, finalTotal(t, result, checking), 0.001)
}

func TestSimulate_LookupFailuresAreWarnings(t *testing.T) {
	cfg := flatConfig(bank(checking, "100"))
	cfg.Events = []*domain.Event{
		{ID: 1, Trigger: domain.Immediate{}, Effects: []domain.Effect{
			domain.Expense{From: checking, Amount: domain.AccountCashBalance{Account: 99}},
			domain.Expense{From: checking, Amount: domain.FixedAmount(10)},
		}},
	}

	result := simulateOK(t, cfg)
	warnings := warningsOf(result, domain.WarningLookupFailed)
	require.Len(t, warnings, 1)
	require.NotNil(t, warnings[0].Event)
	assert.Equal(t, domain.EventID(1), *warnings[0].Event)
	assert.InDelta(t, 90, finalTotal(t, result, checking), 0.001, "later effects still run")
}

func TestSimulate_YearEndNetWorth(t *testing.T) {
	cfg := flatConfig(bank(checking, "1000"))
	cfg.Events = []*domain.Event{{
		ID:      1,
		Trigger: domain.Repeating{Interval: domain.YearlyInterval, Start: domain.OnDate{Date: date(2025, time.July, 1)}},
		Effects: []domain.Effect{domain.Expense{From: checking, Amount: domain.FixedAmount(100)}},
	}}

	result := simulateOK(t, cfg)
	require.Len(t, result.YearEndNetWorth, 3)
	assertMoney(t, "900", result.YearEndNetWorth[2025])
	assertMoney(t, "800", result.YearEndNetWorth[2026])
	assertMoney(t, "700", result.YearEndNetWorth[2027])
	assertMoney(t, "700", result.FinalNetWorth())
	assertMoney(t, "1000", result.StartingSnapshot[0].TotalValue)
}

func TestSimulate_Ledger(t *testing.T) {
	cfg := flatConfig(bank(checking, "1000"))
	cfg.Events = []*domain.Event{{ID: 1, Trigger: domain.Immediate{}, Effects: []domain.Effect{
		domain.Expense{From: checking, Amount: domain.FixedAmount(100)},
	}}}

	result := simulateOK(t, cfg)
	assert.Empty(t, result.Ledger, "ledger is opt-in")

	cfg.CollectLedger = true
	result = simulateOK(t, cfg)
	require.NotEmpty(t, result.Ledger)

	first := result.Ledger[0]
	assert.Equal(t, "event_triggered", first.Event.Kind())
	require.NotNil(t, first.SourceEvent)
	assert.Equal(t, domain.EventID(1), *first.SourceEvent)
	assert.Equal(t, "cash_debit", result.Ledger[1].Event.Kind())

	var advances int
	for _, entry := range result.Ledger {
		if _, ok := entry.Event.(domain.TimeAdvance); ok {
			advances++
			assert.Nil(t, entry.SourceEvent)
		}
	}
	assert.Equal(t, len(result.Dates), advances)
}

func TestSimulate_CashFlows(t *testing.T) {
	cfg := flatConfig(bank(checking, "1000"))
	cfg.Events = []*domain.Event{{ID: 1, Trigger: domain.Immediate{}, Effects: []domain.Effect{
		domain.Income{To: checking, Amount: domain.FixedAmount(500), IncomeType: domain.TaxFreeIncome},
		domain.Expense{From: checking, Amount: domain.FixedAmount(200)},
	}}}

	result := simulateOK(t, cfg)
	require.NotEmpty(t, result.YearlyCashFlows)
	flow := result.YearlyCashFlows[0]
	assert.Equal(t, 2025, flow.Year)
	assertMoney(t, "500", flow.Income)
	assertMoney(t, "200", flow.Expenses)
	assertMoney(t, "300", flow.NetCashFlow)
}
