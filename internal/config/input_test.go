package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rpgo/finplan/internal/calculation"
	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
name: Test plan
start_date: 2025-01-01
birth_date: 1980-06-15
duration_years: 5
return_profiles:
  - name: growth
    type: fixed
    rate: 5%
assets:
  - name: FUND
    price: 100
    returns: growth
accounts:
  - name: Checking
    type: bank
    cash: 1000
  - name: Brokerage
    type: investment
    tax_status: taxable
    positions:
      - asset: FUND
        purchase_date: 2020-01-01
        units: 10
        cost_basis: 800
events:
  - name: Paycheck
    trigger:
      type: repeating
      interval: monthly
      start: immediate
    effects:
      - type: income
        to: Checking
        amount: 5000
        mode: gross
  - name: Buy
    trigger:
      type: date
      date: 2026-01-01
    effects:
      - type: asset_purchase
        from: Checking
        to: Brokerage
        asset: FUND
        amount:
          type: percent_of_balance
          account: Checking
          percent: 10%
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "test_config_*.yaml")
	require.NoError(t, err)
	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestNewInputParser(t *testing.T) {
	parser := NewInputParser()
	assert.NotNil(t, parser)
}

func TestLoadFromFile_Success(t *testing.T) {
	parser := NewInputParser()
	cfg, err := parser.LoadFromFile(writeConfig(t, baseConfig))
	require.NoError(t, err)

	assert.Equal(t, "Test plan", cfg.Name)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, time.Date(1980, time.June, 15, 0, 0, 0, 0, time.UTC), cfg.BirthDate)
	assert.Equal(t, 5, cfg.DurationYears)
	assert.Equal(t, domain.NoInflation{}, cfg.InflationProfile)
	assert.Equal(t, domain.DefaultTaxConfig(), cfg.Tax)

	require.Len(t, cfg.ReturnProfiles, 1)
	fixed, ok := cfg.ReturnProfiles[1].(domain.FixedReturn)
	require.True(t, ok)
	assert.InDelta(t, 0.05, fixed.Rate, 1e-12)

	assertDecimal(t, "100", cfg.AssetPrices[1])
	assert.Equal(t, domain.ReturnProfileID(1), cfg.AssetReturns[1])
	assert.Equal(t, "FUND", cfg.AssetName(1))

	require.Len(t, cfg.Accounts, 2)
	checking := cfg.Accounts[0]
	assert.Equal(t, domain.AccountID(1), checking.ID)
	assert.Equal(t, "Checking", checking.Name)
	bank, ok := checking.Flavor.(*domain.Bank)
	require.True(t, ok)
	assertDecimal(t, "1000", bank.Cash.Value)
	assert.Equal(t, domain.ReturnProfileID(0), bank.Cash.ReturnProfileID)

	inv, ok := cfg.Accounts[1].Flavor.(*domain.Investment)
	require.True(t, ok)
	assert.Equal(t, domain.Taxable, inv.TaxStatus)
	require.Len(t, inv.Positions, 1)
	assert.Equal(t, domain.AssetID(1), inv.Positions[0].AssetID)
	assert.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), inv.Positions[0].PurchaseDate)
	assertDecimal(t, "10", inv.Positions[0].Units)
	assertDecimal(t, "800", inv.Positions[0].CostBasis)

	require.Len(t, cfg.Events, 2)
	paycheck := cfg.Events[0]
	assert.Equal(t, domain.EventID(1), paycheck.ID)
	assert.False(t, paycheck.Once, "repeating events are not once-events")
	assert.Equal(t, domain.Repeating{Interval: domain.MonthlyInterval, Start: domain.Immediate{}}, paycheck.Trigger)
	require.Len(t, paycheck.Effects, 1)
	income, ok := paycheck.Effects[0].(domain.Income)
	require.True(t, ok)
	assert.Equal(t, domain.AccountID(1), income.To)
	assert.Equal(t, domain.Gross, income.Mode)
	assert.Equal(t, domain.TaxableIncome, income.IncomeType)
	assertDecimal(t, "5000", income.Amount.(domain.Fixed).Value)

	buy := cfg.Events[1]
	assert.True(t, buy.Once)
	assert.Equal(t, domain.OnDate{Date: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}, buy.Trigger)
	purchase, ok := buy.Effects[0].(domain.AssetPurchase)
	require.True(t, ok)
	assert.Equal(t, domain.AccountID(1), purchase.From)
	assert.Equal(t, domain.AssetCoord{AccountID: 2, AssetID: 1}, purchase.To)
	pct, ok := purchase.Amount.(domain.PercentOfBalance)
	require.True(t, ok)
	assert.Equal(t, domain.AccountID(1), pct.Account)
	assertDecimal(t, "0.1", pct.Percent)
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	parser := NewInputParser()
	_, err := parser.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	parser := NewInputParser()
	_, err := parser.LoadFromFile(writeConfig(t, "name: [unterminated\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParse_UnknownField(t *testing.T) {
	parser := NewInputParser()
	_, err := parser.Parse([]byte(baseConfig + "surprise: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParse_ResolutionErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		message string
	}{
		{
			name:    "unknown account in an effect",
			mutate:  func(s string) string { return strings.Replace(s, "to: Checking", "to: Savings", 1) },
			message: `unknown account "Savings"`,
		},
		{
			name:    "unknown asset in a position",
			mutate:  func(s string) string { return strings.Replace(s, "- asset: FUND", "- asset: BOND", 1) },
			message: `unknown asset "BOND"`,
		},
		{
			name:    "unknown return profile",
			mutate:  func(s string) string { return strings.Replace(s, "returns: growth", "returns: rocket", 1) },
			message: `unknown return profile "rocket"`,
		},
		{
			name:    "duplicate account name",
			mutate:  func(s string) string { return strings.Replace(s, "name: Brokerage", "name: Checking", 1) },
			message: `duplicate account name "Checking"`,
		},
		{
			name:    "unknown effect type",
			mutate:  func(s string) string { return strings.Replace(s, "type: income", "type: windfall", 1) },
			message: `unknown effect type "windfall"`,
		},
		{
			name:    "unknown trigger type",
			mutate:  func(s string) string { return strings.Replace(s, "type: date\n", "type: eclipse\n", 1) },
			message: `unknown trigger type "eclipse"`,
		},
		{
			name:    "bad enum",
			mutate:  func(s string) string { return strings.Replace(s, "mode: gross", "mode: both", 1) },
			message: "both",
		},
		{
			name:    "bad number",
			mutate:  func(s string) string { return strings.Replace(s, "cash: 1000", "cash: lots", 1) },
			message: `invalid number "lots"`,
		},
		{
			name:    "bad date",
			mutate:  func(s string) string { return strings.Replace(s, "date: 2026-01-01", "date: 01/01/2026", 1) },
			message: "invalid date",
		},
	}

	parser := NewInputParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.mutate(baseConfig)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_EventReferences(t *testing.T) {
	yaml := baseConfig + `
  - name: Raise
    trigger:
      type: relative
      event: Buy
      offset:
        unit: months
        n: 6
    effects:
      - type: pause_event
        event: Paycheck
      - type: create_account
        account:
          name: HSA
          type: investment
          tax_status: tax_free
          contribution_limit:
            amount: 4150
            period: yearly
  - name: Fund HSA
    trigger:
      type: and
      triggers:
        - type: age
          years: 50
        - type: account_balance
          account: Checking
          op: gte
          value: 20000
    effects:
      - type: sweep
        sources:
          type: custom
          assets:
            - account: Brokerage
              asset: FUND
        to: HSA
        amount: target_to_balance
  - name: Wrap up
    once: false
    trigger: manual
    effects:
      - type: terminate_event
        event: Fund HSA
`
	yaml = strings.Replace(yaml, "amount: target_to_balance", "amount:\n          type: target_to_balance\n          target: 4150", 1)

	cfg, err := NewInputParser().Parse([]byte(yaml))
	require.NoError(t, err)
	require.Len(t, cfg.Events, 5)

	raise := cfg.Events[2]
	assert.Equal(t, domain.RelativeToEvent{Event: 2, Offset: domain.Offset{Unit: domain.OffsetMonths, N: 6}}, raise.Trigger)
	assert.Equal(t, domain.PauseEvent{Event: 1}, raise.Effects[0])
	created, ok := raise.Effects[1].(domain.CreateAccount)
	require.True(t, ok)
	assert.Equal(t, domain.AccountID(3), created.Account.ID, "created accounts are numbered after configured ones")
	assert.Equal(t, domain.TaxFree, created.Account.Flavor.(*domain.Investment).TaxStatus)

	fund := cfg.Events[3]
	and, ok := fund.Trigger.(domain.And)
	require.True(t, ok)
	require.Len(t, and.Triggers, 2)
	assert.Equal(t, domain.AtAge{Years: 50}, and.Triggers[0])
	balance := and.Triggers[1].(domain.AccountBalance)
	assert.Equal(t, domain.GreaterOrEqual, balance.Threshold.Op)
	assertDecimal(t, "20000", balance.Threshold.Value)

	sweep := fund.Effects[0].(domain.Sweep)
	assert.Equal(t, domain.AccountID(3), sweep.To, "effects may refer to an account another event creates")
	assert.Equal(t, domain.CustomSources{Assets: []domain.AssetCoord{{AccountID: 2, AssetID: 1}}}, sweep.Sources)
	assertDecimal(t, "4150", sweep.Amount.(domain.TargetToBalance).Target)

	wrapUp := cfg.Events[4]
	assert.Equal(t, domain.Manual{}, wrapUp.Trigger)
	assert.False(t, wrapUp.Once)
	assert.Equal(t, domain.TerminateEvent{Event: 4}, wrapUp.Effects[0])
}

func TestParse_Shorthands(t *testing.T) {
	yaml := baseConfig + `
  - name: Retire
    trigger: immediate
    effects:
      - type: sweep
        sources: tax_deferred_first
        to: Checking
        amount: source_balance
      - type: expense
        from: Checking
        amount:
          type: min
          left: 2_500
          right:
            type: account_cash
            account: Checking
`
	cfg, err := NewInputParser().Parse([]byte(yaml))
	require.NoError(t, err)

	retire := cfg.Events[2]
	assert.Equal(t, domain.Immediate{}, retire.Trigger)
	assert.True(t, retire.Once)

	sweep := retire.Effects[0].(domain.Sweep)
	assert.Equal(t, domain.Strategy{Order: domain.TaxDeferredFirst}, sweep.Sources)
	assert.Equal(t, domain.SourceBalance{}, sweep.Amount)

	expense := retire.Effects[1].(domain.Expense)
	minOf, ok := expense.Amount.(domain.MinOf)
	require.True(t, ok)
	assertDecimal(t, "2500", minOf.Left.(domain.Fixed).Value)
	assert.Equal(t, domain.AccountCashBalance{Account: 1}, minOf.Right)
}

func TestParse_PropertyAndLiability(t *testing.T) {
	yaml := strings.Replace(baseConfig, "events:", `  - name: House
    type: property
    value: 400000
    returns: growth
  - name: Mortgage
    type: liability
    principal: 250000
    interest_rate: 6.5%
events:`, 1)

	cfg, err := NewInputParser().Parse([]byte(yaml))
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 4)

	house := cfg.Accounts[2].Flavor.(*domain.Property)
	assert.Equal(t, domain.AssetID(2), house.AssetID, "a property without an asset gets its own")
	assert.Equal(t, "House", cfg.AssetName(2))
	assert.Equal(t, domain.ReturnProfileID(1), cfg.AssetReturns[2])
	assertDecimal(t, "400000", house.Value)

	loan := cfg.Accounts[3].Flavor.(*domain.Liability)
	assertDecimal(t, "250000", loan.Principal)
	assertDecimal(t, "0.065", loan.InterestRate)
}

func TestParse_ProfilesAndTax(t *testing.T) {
	yaml := strings.Replace(baseConfig, "return_profiles:", `inflation:
  type: preset
  preset: us_fixed
tax:
  federal_brackets:
    - threshold: 0
      rate: 10%
    - threshold: 50000
      rate: 20%
  capital_gains_rate: 0.2
return_profiles:
  - name: regime
    type: regime_switching
    bull_to_bear: 0.1
    bear_to_bull: 0.5
    bull:
      type: normal
      mean: 0.12
      std_dev: 0.1
    bear:
      type: preset
      preset: tbills_fixed`, 1)

	cfg, err := NewInputParser().Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, domain.USInflationFixed, cfg.InflationProfile)
	regime, ok := cfg.ReturnProfiles[1].(domain.RegimeSwitchingReturn)
	require.True(t, ok)
	assert.Equal(t, domain.TBillsFixed, regime.Bear)
	assert.InDelta(t, 0.1, regime.BullToBear, 1e-12)
	assert.Equal(t, domain.ReturnProfileID(2), cfg.AssetReturns[1], "growth is declared second")

	require.Len(t, cfg.Tax.FederalBrackets, 2)
	assertDecimal(t, "50000", cfg.Tax.FederalBrackets[1].Threshold)
	assertDecimal(t, "0.2", cfg.Tax.FederalBrackets[1].Rate)
	assertDecimal(t, "0.2", cfg.Tax.CapitalGainsRate)
	assert.True(t, cfg.Tax.StateRate.Equal(domain.DefaultTaxConfig().StateRate), "unset rates keep their defaults")
}

func TestLoadFromFile_HistoryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "returns.csv"),
		[]byte("year,return\n2002,-22.1%\n2000,-9.1%\n2001,-11.9%\n"), 0o644))

	yaml := strings.Replace(baseConfig, "    type: fixed\n    rate: 5%", "    type: bootstrap\n    history_file: returns.csv\n    block_size: 2", 1)
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := NewInputParser().LoadFromFile(path)
	require.NoError(t, err)
	boot, ok := cfg.ReturnProfiles[1].(domain.BootstrapReturn)
	require.True(t, ok)
	assert.Equal(t, 2, boot.BlockSize)
	require.Len(t, boot.History, 3)
	assert.InDelta(t, -0.091, boot.History[0], 1e-9, "history is in year order")
	assert.InDelta(t, -0.221, boot.History[2], 1e-9)
}

func TestValidateConfiguration(t *testing.T) {
	parser := NewInputParser()
	valid := func() *domain.SimulationConfig {
		cfg, err := parser.Parse([]byte(baseConfig))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*domain.SimulationConfig)
		message string
	}{
		{
			name:    "missing start date",
			mutate:  func(c *domain.SimulationConfig) { c.StartDate = time.Time{} },
			message: "start date is required",
		},
		{
			name: "expense from an unknown account",
			mutate: func(c *domain.SimulationConfig) {
				c.Events[0].Effects = []domain.Effect{domain.Expense{From: 42, Amount: domain.FixedAmount(1)}}
			},
			message: "unknown account 42",
		},
		{
			name: "relative to an unknown event",
			mutate: func(c *domain.SimulationConfig) {
				c.Events[1].Trigger = domain.RelativeToEvent{Event: 9}
			},
			message: "unknown event 9",
		},
		{
			name: "amount on an unknown position",
			mutate: func(c *domain.SimulationConfig) {
				c.Events[0].Effects = []domain.Effect{domain.Expense{From: 1, Amount: domain.AssetBalanceAmount{Asset: domain.AssetCoord{AccountID: 2, AssetID: 7}}}}
			},
			message: "unknown asset 7",
		},
		{
			name:    "negative deviation",
			mutate:  func(c *domain.SimulationConfig) { c.ReturnProfiles[1] = domain.NormalReturn{Mean: 0.05, StdDev: -0.1} },
			message: "std dev",
		},
		{
			name:    "asset on a missing profile",
			mutate:  func(c *domain.SimulationConfig) { c.AssetReturns[1] = 5 },
			message: "unknown profile 5",
		},
		{
			name: "lot bought after the start",
			mutate: func(c *domain.SimulationConfig) {
				c.Accounts[1].Flavor.(*domain.Investment).Positions[0].PurchaseDate = time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
			},
			message: "after the start date",
		},
		{
			name:    "confiscatory state rate",
			mutate:  func(c *domain.SimulationConfig) { c.Tax.StateRate = decimal.NewFromInt(1) },
			message: "state rate",
		},
		{
			name: "repeating without an interval",
			mutate: func(c *domain.SimulationConfig) {
				c.Events[0].Trigger = domain.Repeating{Start: domain.Immediate{}}
			},
			message: "needs an interval",
		},
		{
			name: "vesting no units",
			mutate: func(c *domain.SimulationConfig) {
				c.Events[0].Effects = []domain.Effect{domain.RsuVesting{To: domain.AssetCoord{AccountID: 2, AssetID: 1}}}
			},
			message: "units must be positive",
		},
	}

	require.NoError(t, parser.ValidateConfiguration(valid()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := parser.ValidateConfiguration(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCreateExampleConfiguration(t *testing.T) {
	parser := NewInputParser()
	cfg, err := parser.CreateExampleConfiguration()
	require.NoError(t, err)

	assert.Equal(t, "Example household", cfg.Name)
	assert.Len(t, cfg.Accounts, 6)
	assert.Len(t, cfg.Events, 11)
	assert.Len(t, cfg.ReturnProfiles, 4)
	require.NoError(t, parser.ValidateConfiguration(cfg))

	result, err := calculation.Simulate(cfg, 42)
	require.NoError(t, err)
	assert.Len(t, result.YearEndNetWorth, cfg.DurationYears)
}
