package calculation

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// effectContext carries what one effect has already committed to but not
// yet applied: scratch copies of the investment accounts it sells from and
// the ordinary income stacked so far this year.
type effectContext struct {
	s         *SimulationState
	ytd       decimal.Decimal
	positions map[domain.AccountID]*domain.Investment
}

func newEffectContext(s *SimulationState) *effectContext {
	return &effectContext{
		s:         s,
		ytd:       s.YTDTax.OrdinaryIncome,
		positions: make(map[domain.AccountID]*domain.Investment),
	}
}

// investment returns the scratch copy of an investment account
func (ec *effectContext) investment(id domain.AccountID) (*domain.Investment, error) {
	if inv, ok := ec.positions[id]; ok {
		return inv, nil
	}
	a, err := ec.s.account("investment", id)
	if err != nil {
		return nil, err
	}
	inv, ok := a.Clone().Flavor.(*domain.Investment)
	if !ok {
		return nil, &LookupError{Op: "investment", ID: id, Err: ErrNotAnInvestmentAccount}
	}
	ec.positions[id] = inv
	return inv, nil
}

// EvaluateEffect turns one effect into the state events that carry it out.
// It reads s but never changes it.
func EvaluateEffect(effect domain.Effect, s *SimulationState) ([]domain.StateEvent, error) {
	ec := newEffectContext(s)

	switch e := effect.(type) {
	case domain.CreateAccount:
		if e.Account == nil {
			return nil, &LookupError{Op: "create account", Err: ErrInvalidAccountType}
		}
		return []domain.StateEvent{domain.AccountCreated{Account: e.Account.Clone()}}, nil

	case domain.DeleteAccount:
		if _, err := s.account("delete account", e.Account); err != nil {
			return nil, err
		}
		return []domain.StateEvent{domain.AccountDeleted{Account: e.Account}}, nil

	case domain.Income:
		return ec.income(e)

	case domain.Expense:
		amount, err := evaluateAmount(e.Amount, cashEndpoint(e.From), external, s)
		if err != nil {
			return nil, err
		}
		if !amount.IsPositive() {
			return nil, nil
		}
		return []domain.StateEvent{domain.CashDebit{From: e.From, Amount: amount, Flow: domain.FlowExpense}}, nil

	case domain.AssetPurchase:
		return ec.assetPurchase(e)

	case domain.AssetSale:
		return ec.assetSale(e)

	case domain.Sweep:
		target, err := EvaluateAmount(e.Amount, s)
		if err != nil {
			return nil, err
		}
		if _, err := s.AccountCashBalance(e.To); err != nil {
			return nil, err
		}
		_, events, err := ec.sweep(e.Sources, e.To, target, e.Mode, e.LotMethod, domain.FlowTransfer)
		return events, err

	case domain.ApplyRMD:
		return ec.applyRMD(e)

	case domain.CashTransfer:
		return ec.cashTransfer(e)

	case domain.AdjustBalance:
		delta, err := EvaluateAmount(e.Amount, s)
		if err != nil {
			return nil, err
		}
		if _, err := s.account("adjust balance", e.Account); err != nil {
			return nil, err
		}
		return []domain.StateEvent{domain.BalanceAdjusted{Account: e.Account, Delta: delta}}, nil

	case domain.RsuVesting:
		return ec.rsuVesting(e)

	case domain.TriggerEvent:
		return lifecycle(s, "trigger event", e.Event, domain.ChainedTriggerRequested{Event: e.Event})
	case domain.PauseEvent:
		return lifecycle(s, "pause event", e.Event, domain.EventPaused{Event: e.Event})
	case domain.ResumeEvent:
		return lifecycle(s, "resume event", e.Event, domain.EventResumed{Event: e.Event})
	case domain.TerminateEvent:
		return lifecycle(s, "terminate event", e.Event, domain.EventTerminated{Event: e.Event})

	default:
		return nil, &LookupError{Op: "evaluate effect", Err: fmt.Errorf("unsupported effect %T", effect)}
	}
}

func lifecycle(s *SimulationState, op string, id domain.EventID, ev domain.StateEvent) ([]domain.StateEvent, error) {
	if _, ok := s.events[id]; !ok {
		return nil, eventNotFound(op, id)
	}
	return []domain.StateEvent{ev}, nil
}

// limitContribution caps amount at the account's remaining contribution room
func (ec *effectContext) limitContribution(id domain.AccountID, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	room, limited, err := ec.s.ContributionRoom(id)
	if err != nil {
		return decimal.Zero, false, err
	}
	if limited {
		amount = decimal.Min(amount, room)
	}
	return amount, limited, nil
}

func (ec *effectContext) income(e domain.Income) ([]domain.StateEvent, error) {
	amount, err := evaluateAmount(e.Amount, external, cashEndpoint(e.To), ec.s)
	if err != nil {
		return nil, err
	}
	if _, err := ec.s.AccountCashBalance(e.To); err != nil {
		return nil, err
	}
	allowed, limited, err := ec.limitContribution(e.To, amount)
	if err != nil {
		return nil, err
	}
	if allowed.LessThan(minTrade) {
		return nil, nil
	}

	var events []domain.StateEvent
	if limited {
		events = append(events, domain.ContributionRecorded{Account: e.To, Amount: allowed})
	}

	if e.IncomeType == domain.TaxFreeIncome {
		return append(events, domain.CashCredit{To: e.To, Amount: allowed, Flow: domain.FlowIncome}), nil
	}

	var tax OrdinaryIncomeTax
	credit := allowed
	if e.Mode == domain.Gross {
		tax = ec.s.Tax.IncomeTax(allowed, ec.ytd)
		credit = tax.Net()
	} else {
		tax = ec.s.Tax.IncomeTax(ec.s.Tax.GrossFromNet(allowed, ec.ytd), ec.ytd)
	}
	return append(events,
		domain.CashCredit{To: e.To, Amount: credit, Flow: domain.FlowIncome},
		domain.IncomeTax{Gross: tax.Gross, Federal: tax.Federal, State: tax.State},
	), nil
}

func (ec *effectContext) assetPurchase(e domain.AssetPurchase) ([]domain.StateEvent, error) {
	amount, err := evaluateAmount(e.Amount, cashEndpoint(e.From), assetEndpoint(e.To), ec.s)
	if err != nil {
		return nil, err
	}
	if _, err := ec.investment(e.To.AccountID); err != nil {
		return nil, err
	}
	price, ok := ec.s.Price(e.To.AssetID)
	if !ok || !price.IsPositive() {
		return nil, &LookupError{Op: "asset purchase", ID: e.To, Err: ErrAssetNotFound}
	}

	crossAccount := e.From != e.To.AccountID
	limited := false
	if crossAccount {
		amount, limited, err = ec.limitContribution(e.To.AccountID, amount)
		if err != nil {
			return nil, err
		}
	}
	if amount.LessThan(minTrade) {
		return nil, nil
	}

	flow := domain.FlowInvestmentPurchase
	if crossAccount {
		flow = domain.FlowContribution
	}
	events := []domain.StateEvent{domain.CashDebit{From: e.From, Amount: amount, Flow: flow}}
	if limited {
		events = append(events, domain.ContributionRecorded{Account: e.To.AccountID, Amount: amount})
	}
	return append(events, domain.AssetPurchased{
		Asset:        e.To,
		Units:        amount.Div(price),
		CostBasis:    amount,
		PricePerUnit: price,
	}), nil
}

func (ec *effectContext) assetSale(e domain.AssetSale) ([]domain.StateEvent, error) {
	target, err := EvaluateAmount(e.Amount, ec.s)
	if err != nil {
		return nil, err
	}
	inv, err := ec.investment(e.From)
	if err != nil {
		return nil, err
	}
	assets := inv.AssetIDs()
	if e.Asset != nil {
		assets = []domain.AssetID{*e.Asset}
	}

	var events []domain.StateEvent
	remaining := target
	for _, asset := range assets {
		if remaining.LessThan(minTrade) {
			break
		}
		coord := domain.AssetCoord{AccountID: e.From, AssetID: asset}
		res, evs, err := ec.sellPosition(coord, e.From, remaining, e.Mode, e.LotMethod)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
		remaining = remaining.Sub(raised(res, e.Mode))
	}
	return events, nil
}

// applyRMD withdraws each tax-deferred account's required distribution,
// based on its prior Dec 31 balance, into the destination
func (ec *effectContext) applyRMD(e domain.ApplyRMD) ([]domain.StateEvent, error) {
	age, _ := ec.s.Age()
	divisor, ok := RMDDivisor(age)
	if !ok {
		return nil, nil
	}
	if _, err := ec.s.AccountCashBalance(e.Destination); err != nil {
		return nil, err
	}

	var events []domain.StateEvent
	for _, id := range slices.Sorted(maps.Keys(ec.s.Accounts)) {
		inv, ok := ec.s.Accounts[id].Flavor.(*domain.Investment)
		if !ok || inv.TaxStatus != domain.TaxDeferred {
			continue
		}
		balance, ok := ec.s.PriorYearEndBalance(id)
		if !ok || !balance.IsPositive() {
			continue
		}
		required := balance.Div(divisor)
		res, evs, err := ec.sweep(domain.SingleAccount{Account: id}, e.Destination, required, domain.Gross, e.LotMethod, domain.FlowRmdWithdrawal)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
		events = append(events, domain.RmdWithdrawal{
			Account:          id,
			Age:              age,
			PriorYearBalance: balance,
			Divisor:          divisor,
			Required:         required,
			Actual:           res.Gross,
		})
	}
	return events, nil
}

func (ec *effectContext) cashTransfer(e domain.CashTransfer) ([]domain.StateEvent, error) {
	amount, err := evaluateAmount(e.Amount, cashEndpoint(e.From), cashEndpoint(e.To), ec.s)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(minTrade) {
		return nil, nil
	}
	to, err := ec.s.account("cash transfer", e.To)
	if err != nil {
		return nil, err
	}
	if _, ok := to.Flavor.(*domain.Liability); ok {
		return []domain.StateEvent{
			domain.CashDebit{From: e.From, Amount: amount, Flow: domain.FlowExpense},
			domain.BalanceAdjusted{Account: e.To, Delta: amount.Neg()},
		}, nil
	}
	return []domain.StateEvent{
		domain.CashDebit{From: e.From, Amount: amount, Flow: domain.FlowTransfer},
		domain.CashCredit{To: e.To, Amount: amount, Flow: domain.FlowTransfer},
	}, nil
}

// rsuVesting deposits shares at fair market value and taxes them as income.
// With sell-to-cover, enough of the new shares are sold at no gain to pay
// the withholding, which never reaches the account's cash.
func (ec *effectContext) rsuVesting(e domain.RsuVesting) ([]domain.StateEvent, error) {
	if _, err := ec.investment(e.To.AccountID); err != nil {
		return nil, err
	}
	price, ok := ec.s.Price(e.To.AssetID)
	if !ok || !price.IsPositive() {
		return nil, &LookupError{Op: "rsu vesting", ID: e.To, Err: ErrAssetNotFound}
	}
	if !e.Units.IsPositive() {
		return nil, nil
	}

	fmv := e.Units.Mul(price)
	tax := ec.s.Tax.IncomeTax(fmv, ec.ytd)
	events := []domain.StateEvent{
		domain.AssetPurchased{Asset: e.To, Units: e.Units, CostBasis: fmv, PricePerUnit: price},
		domain.IncomeTax{Gross: fmv, Federal: tax.Federal, State: tax.State},
	}

	if e.SellToCover {
		units := decimal.Min(tax.Total().Div(price), e.Units)
		if units.GreaterThan(domain.LotEpsilon) {
			proceeds := units.Mul(price)
			events = append(events, domain.AssetSold{
				Asset:     e.To,
				LotDate:   ec.s.CurrentDate,
				Units:     units,
				CostBasis: proceeds,
				Proceeds:  proceeds,
			})
		}
	}
	return events, nil
}
