package calculation

import (
	"errors"
	"testing"
	"time"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStateEvent_CashMovement(t *testing.T) {
	s := newState(t, flatConfig(bank(checking, "100"), investment(brokerage, domain.Taxable)))

	applyAll(t, s, []domain.StateEvent{
		domain.CashCredit{To: checking, Amount: d("50"), Flow: domain.FlowIncome},
		domain.CashDebit{From: checking, Amount: d("30"), Flow: domain.FlowExpense},
		domain.CashCredit{To: brokerage, Amount: d("10"), Flow: domain.FlowTransfer},
	})
	assertMoney(t, "120", cashOf(t, s, checking))
	assertMoney(t, "10", cashOf(t, s, brokerage))

	require.NoError(t, ApplyStateEvent(s, domain.CashDebit{From: checking, Amount: d("500"), Flow: domain.FlowExpense}, nil))
	assertMoney(t, "-380", cashOf(t, s, checking), "cash may go negative")
}

func TestApplyStateEvent_Rejections(t *testing.T) {
	loan := &domain.Account{ID: mortgage, Flavor: &domain.Liability{Principal: d("1000")}}
	s := newState(t, flatConfig(bank(checking, "100"), loan))

	tests := []struct {
		name string
		ev   domain.StateEvent
		err  error
	}{
		{name: "credit to missing account", ev: domain.CashCredit{To: 99, Amount: d("1")}, err: ErrAccountNotFound},
		{name: "credit to a liability", ev: domain.CashCredit{To: mortgage, Amount: d("1")}, err: ErrNotACashAccount},
		{name: "lot in a bank account", ev: domain.AssetPurchased{Asset: domain.AssetCoord{AccountID: checking, AssetID: fund}, Units: d("1")}, err: ErrNotAnInvestmentAccount},
		{name: "interest on a bank account", ev: domain.LiabilityInterestAccrual{Account: checking, New: d("1")}, err: ErrInvalidAccountType},
		{name: "delete missing account", ev: domain.AccountDeleted{Account: 99}, err: ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ApplyStateEvent(s, tt.ev, nil)
			var applyErr *ApplyError
			require.True(t, errors.As(err, &applyErr))
			assert.True(t, errors.Is(err, tt.err))
			assert.Equal(t, tt.ev.Kind(), applyErr.Kind)
		})
	}
	assertMoney(t, "100", cashOf(t, s, checking))
}

func TestApplyStateEvent_SellUnknownLot(t *testing.T) {
	s := newState(t, flatConfig(investment(brokerage, domain.Taxable, lot(fund, date(2020, time.January, 1), "10", "600"))))

	err := ApplyStateEvent(s, domain.AssetSold{
		Asset:   domain.AssetCoord{AccountID: brokerage, AssetID: fund},
		LotDate: date(2021, time.January, 1),
		Units:   d("1"),
	}, nil)
	assert.True(t, errors.Is(err, ErrAssetNotFound))
}

func TestApplyStateEvent_BalanceAdjusted(t *testing.T) {
	loan := &domain.Account{ID: mortgage, Flavor: &domain.Liability{Principal: d("1000")}}
	property := &domain.Account{ID: house, Flavor: &domain.Property{AssetID: 99, Value: d("300000")}}
	cfg := flatConfig(bank(checking, "100"), loan, property)
	cfg.CollectLedger = true
	s := newState(t, cfg)

	applyAll(t, s, []domain.StateEvent{
		domain.BalanceAdjusted{Account: checking, Delta: d("-250")},
		domain.BalanceAdjusted{Account: mortgage, Delta: d("-1200")},
		domain.BalanceAdjusted{Account: house, Delta: d("25000")},
	})

	assertMoney(t, "-150", cashOf(t, s, checking), "cash is not clamped")
	assert.True(t, s.Accounts[mortgage].Flavor.(*domain.Liability).Principal.IsZero())
	assertMoney(t, "325000", s.Accounts[house].Flavor.(*domain.Property).Value)

	ledger := s.Ledger()
	require.Len(t, ledger, 3)
	recorded := ledger[1].Event.(domain.BalanceAdjusted)
	assertMoney(t, "1000", recorded.Previous)
	assertMoney(t, "0", recorded.New)
}

func TestApplyStateEvent_Contributions(t *testing.T) {
	yearly := investment(roth, domain.TaxFree)
	yearly.Flavor.(*domain.Investment).ContributionLimit = &domain.ContributionLimit{Amount: d("7000"), Period: domain.Yearly}
	monthly := investment(ira, domain.TaxDeferred)
	monthly.Flavor.(*domain.Investment).ContributionLimit = &domain.ContributionLimit{Amount: d("500"), Period: domain.Monthly}
	s := newState(t, flatConfig(yearly, monthly))

	applyAll(t, s, []domain.StateEvent{
		domain.ContributionRecorded{Account: roth, Amount: d("2000")},
		domain.ContributionRecorded{Account: ira, Amount: d("400")},
	})
	room, _, err := s.ContributionRoom(roth)
	require.NoError(t, err)
	assertMoney(t, "5000", room)
	room, _, err = s.ContributionRoom(ira)
	require.NoError(t, err)
	assertMoney(t, "100", room)

	require.NoError(t, ApplyStateEvent(s, domain.TimeAdvance{From: s.CurrentDate, To: date(2025, time.January, 20), Days: 19}, nil))
	room, _, _ = s.ContributionRoom(ira)
	assertMoney(t, "100", room, "same month")

	require.NoError(t, ApplyStateEvent(s, domain.TimeAdvance{From: s.CurrentDate, To: date(2025, time.February, 1), Days: 12}, nil))
	room, _, _ = s.ContributionRoom(ira)
	assertMoney(t, "500", room, "monthly limit resets")
	room, _, _ = s.ContributionRoom(roth)
	assertMoney(t, "5000", room, "yearly limit carries over the month")
}

func TestApplyStateEvent_TaxesAndRollover(t *testing.T) {
	s := newState(t, flatConfig())

	applyAll(t, s, []domain.StateEvent{
		domain.IncomeTax{Gross: d("20000"), Federal: d("2200"), State: d("1000")},
		domain.ShortTermCapitalGainsTax{Gain: d("1000"), Federal: d("120"), State: d("50")},
		domain.LongTermCapitalGainsTax{Gain: d("4000"), Federal: d("600"), State: d("200")},
		domain.EarlyWithdrawalPenalty{Gross: d("1000"), Penalty: d("100"), Rate: d("0.1")},
	})
	assertMoney(t, "21000", s.YTDTax.OrdinaryIncome)
	assertMoney(t, "5000", s.YTDTax.CapitalGains)
	assertMoney(t, "2920", s.YTDTax.FederalTax)
	assertMoney(t, "1250", s.YTDTax.StateTax)
	assertMoney(t, "100", s.YTDTax.EarlyWithdrawalPenalties)

	require.NoError(t, ApplyStateEvent(s, domain.YearRollover{FromYear: 2025, ToYear: 2026}, nil))
	assert.Equal(t, 2026, s.YTDTax.Year)
	assert.True(t, s.YTDTax.OrdinaryIncome.IsZero())
	require.Len(t, s.yearlyTaxes, 1)
	assert.Equal(t, 2025, s.yearlyTaxes[0].Year)
	assertMoney(t, "4170", s.yearlyTaxes[0].TotalTax)

	require.NoError(t, ApplyStateEvent(s, domain.YearRollover{FromYear: 2026, ToYear: 2027}, nil))
	assert.Len(t, s.yearlyTaxes, 1, "quiet years are not reported")
}

func TestApplyStateEvent_EventLifecycle(t *testing.T) {
	s := newState(t, flatConfig())

	require.NoError(t, ApplyStateEvent(s, domain.EventTriggered{Event: 1}, nil))
	fired, ok := s.TriggeredDate(1)
	require.True(t, ok)
	assert.Equal(t, s.StartDate, fired)
	assert.Equal(t, 1, s.Occurrences(1))

	s.repeating[1] = &repeatState{active: true, anchor: s.StartDate, next: date(2025, time.February, 1)}
	require.NoError(t, ApplyStateEvent(s, domain.EventPaused{Event: 1}, nil))
	assert.False(t, s.repeating[1].active)
	require.NoError(t, ApplyStateEvent(s, domain.EventResumed{Event: 1}, nil))
	assert.True(t, s.repeating[1].active)
	assert.Equal(t, date(2025, time.February, 1), s.repeating[1].next, "resume keeps the schedule")

	require.NoError(t, ApplyStateEvent(s, domain.EventPaused{Event: 2}, nil))
	require.Contains(t, s.repeating, domain.EventID(2))
	assert.False(t, s.repeating[2].active, "paused before it started")
	require.NoError(t, ApplyStateEvent(s, domain.EventResumed{Event: 2}, nil))
	assert.NotContains(t, s.repeating, domain.EventID(2))

	require.NoError(t, ApplyStateEvent(s, domain.EventTerminated{Event: 1}, nil))
	assert.True(t, s.IsTerminated(1))
	assert.NotContains(t, s.repeating, domain.EventID(1))

	require.NoError(t, ApplyStateEvent(s, domain.ChainedTriggerRequested{Event: 3}, nil))
	assert.Equal(t, []domain.EventID{3}, s.pending)
}

func TestApplyStateEvent_LedgerSource(t *testing.T) {
	cfg := flatConfig(bank(checking, "0"))
	cfg.CollectLedger = true
	s := newState(t, cfg)

	require.NoError(t, ApplyStateEvent(s, domain.CashCredit{To: checking, Amount: d("5"), Flow: domain.FlowIncome}, eventID(7)))
	assert.Error(t, ApplyStateEvent(s, domain.CashCredit{To: 99, Amount: d("5")}, nil))

	ledger := s.Ledger()
	require.Len(t, ledger, 1, "failed events are not recorded")
	require.NotNil(t, ledger[0].SourceEvent)
	assert.Equal(t, domain.EventID(7), *ledger[0].SourceEvent)
	assert.Equal(t, s.StartDate, ledger[0].Date)
}
