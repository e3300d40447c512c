package calculation

import (
	"fmt"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// ApplyStateEvent applies ev to s and records it against source. It fails
// without changing s when ev targets a missing account or the wrong kind of
// account.
func ApplyStateEvent(s *SimulationState, ev domain.StateEvent, source *domain.EventID) error {
	switch e := ev.(type) {
	case domain.TimeAdvance:
		from := s.CurrentDate
		s.CurrentDate = e.To
		if from.Year() != e.To.Year() || from.Month() != e.To.Month() {
			clear(s.contributionsMTD)
		}

	case domain.YearRollover:
		s.finalizeYearTaxes()
		s.YTDTax = domain.TaxSummary{Year: e.ToYear}
		clear(s.contributionsYTD)

	case domain.AccountCreated:
		if e.Account == nil {
			return &ApplyError{Kind: ev.Kind(), Err: ErrInvalidAccountType}
		}
		s.Accounts[e.Account.ID] = e.Account.Clone()

	case domain.AccountDeleted:
		if _, ok := s.Accounts[e.Account]; !ok {
			return &ApplyError{Kind: ev.Kind(), Account: e.Account, Err: ErrAccountNotFound}
		}
		delete(s.Accounts, e.Account)

	case domain.CashCredit:
		if err := adjustCash(s, ev, e.To, e.Amount); err != nil {
			return err
		}

	case domain.CashDebit:
		if err := adjustCash(s, ev, e.From, e.Amount.Neg()); err != nil {
			return err
		}

	case domain.ContributionRecorded:
		inv, err := investmentFor(s, ev, e.Account)
		if err != nil {
			return err
		}
		if inv.ContributionLimit != nil {
			counter := s.contributionsYTD
			if inv.ContributionLimit.Period == domain.Monthly {
				counter = s.contributionsMTD
			}
			counter[e.Account] = counter[e.Account].Add(e.Amount)
		}

	case domain.CashAppreciation:
		cash, err := cashFor(s, ev, e.Account)
		if err != nil {
			return err
		}
		cash.Value = e.New

	case domain.LiabilityInterestAccrual:
		liability, err := flavorFor[*domain.Liability](s, ev, e.Account, ErrInvalidAccountType)
		if err != nil {
			return err
		}
		liability.Principal = e.New

	case domain.AssetPurchased:
		inv, err := investmentFor(s, ev, e.Asset.AccountID)
		if err != nil {
			return err
		}
		addLot(inv, e.Asset.AssetID, s.CurrentDate, e.Units, e.CostBasis)

	case domain.AssetSold:
		inv, err := investmentFor(s, ev, e.Asset.AccountID)
		if err != nil {
			return err
		}
		price, _ := s.Price(e.Asset.AssetID)
		if !reduceLot(inv, e.Asset.AssetID, e.LotDate, e.Units, e.CostBasis, price) {
			return &ApplyError{Kind: ev.Kind(), Account: e.Asset.AccountID,
				Err: fmt.Errorf("%w: no lot of asset %d bought %s", ErrAssetNotFound, e.Asset.AssetID, e.LotDate.Format("2006-01-02"))}
		}

	case domain.IncomeTax:
		s.YTDTax.OrdinaryIncome = s.YTDTax.OrdinaryIncome.Add(e.Gross)
		s.YTDTax.FederalTax = s.YTDTax.FederalTax.Add(e.Federal)
		s.YTDTax.StateTax = s.YTDTax.StateTax.Add(e.State)

	case domain.ShortTermCapitalGainsTax:
		s.YTDTax.OrdinaryIncome = s.YTDTax.OrdinaryIncome.Add(e.Gain)
		s.YTDTax.CapitalGains = s.YTDTax.CapitalGains.Add(e.Gain)
		s.YTDTax.FederalTax = s.YTDTax.FederalTax.Add(e.Federal)
		s.YTDTax.StateTax = s.YTDTax.StateTax.Add(e.State)

	case domain.LongTermCapitalGainsTax:
		s.YTDTax.CapitalGains = s.YTDTax.CapitalGains.Add(e.Gain)
		s.YTDTax.FederalTax = s.YTDTax.FederalTax.Add(e.Federal)
		s.YTDTax.StateTax = s.YTDTax.StateTax.Add(e.State)

	case domain.EarlyWithdrawalPenalty:
		s.YTDTax.EarlyWithdrawalPenalties = s.YTDTax.EarlyWithdrawalPenalties.Add(e.Penalty)

	case domain.BalanceAdjusted:
		adjusted, err := adjustBalance(s, e)
		if err != nil {
			return err
		}
		ev = adjusted

	case domain.EventTriggered:
		s.triggered[e.Event] = s.CurrentDate
		s.firedOn[e.Event] = s.CurrentDate
		s.occurrences[e.Event]++

	case domain.EventPaused:
		if r, ok := s.repeating[e.Event]; ok {
			r.active = false
		} else {
			s.repeating[e.Event] = &repeatState{}
		}

	case domain.EventResumed:
		if r, ok := s.repeating[e.Event]; ok {
			if r.anchor.IsZero() {
				// paused before it ever started; let the start condition decide again
				delete(s.repeating, e.Event)
			} else {
				r.active = true
				s.skipMissedOccurrences(e.Event, r)
			}
		}

	case domain.EventTerminated:
		s.terminated[e.Event] = true
		delete(s.repeating, e.Event)

	case domain.ChainedTriggerRequested:
		s.pending = append(s.pending, e.Event)

	case domain.RmdWithdrawal:

	default:
		return &ApplyError{Kind: fmt.Sprintf("%T", ev), Err: fmt.Errorf("unsupported state event")}
	}

	s.record(source, ev)
	return nil
}

// flavorFor returns the account's flavor when it is a T, failing with
// wrongKind otherwise
func flavorFor[T domain.AccountFlavor](s *SimulationState, ev domain.StateEvent, id domain.AccountID, wrongKind error) (T, error) {
	var zero T
	a, ok := s.Accounts[id]
	if !ok {
		return zero, &ApplyError{Kind: ev.Kind(), Account: id, Err: ErrAccountNotFound}
	}
	f, ok := a.Flavor.(T)
	if !ok {
		return zero, &ApplyError{Kind: ev.Kind(), Account: id, Err: wrongKind}
	}
	return f, nil
}

func investmentFor(s *SimulationState, ev domain.StateEvent, id domain.AccountID) (*domain.Investment, error) {
	return flavorFor[*domain.Investment](s, ev, id, ErrNotAnInvestmentAccount)
}

func cashFor(s *SimulationState, ev domain.StateEvent, id domain.AccountID) (*domain.Cash, error) {
	a, ok := s.Accounts[id]
	if !ok {
		return nil, &ApplyError{Kind: ev.Kind(), Account: id, Err: ErrAccountNotFound}
	}
	switch f := a.Flavor.(type) {
	case *domain.Bank:
		return &f.Cash, nil
	case *domain.Investment:
		return &f.Cash, nil
	default:
		return nil, &ApplyError{Kind: ev.Kind(), Account: id, Err: ErrNotACashAccount}
	}
}

func adjustCash(s *SimulationState, ev domain.StateEvent, id domain.AccountID, delta decimal.Decimal) error {
	cash, err := cashFor(s, ev, id)
	if err != nil {
		return err
	}
	cash.Value = cash.Value.Add(delta)
	return nil
}

// adjustBalance moves the balance that defines the account's value and
// returns the event with Previous and New filled in. Debts and property
// values never go below zero.
func adjustBalance(s *SimulationState, e domain.BalanceAdjusted) (domain.BalanceAdjusted, error) {
	a, ok := s.Accounts[e.Account]
	if !ok {
		return e, &ApplyError{Kind: e.Kind(), Account: e.Account, Err: ErrAccountNotFound}
	}
	var target *decimal.Decimal
	clamp := false
	switch f := a.Flavor.(type) {
	case *domain.Bank:
		target = &f.Cash.Value
	case *domain.Investment:
		target = &f.Cash.Value
	case *domain.Property:
		target, clamp = &f.Value, true
	case *domain.Liability:
		target, clamp = &f.Principal, true
	default:
		return e, &ApplyError{Kind: e.Kind(), Account: e.Account, Err: ErrInvalidAccountType}
	}
	e.Previous = *target
	e.New = e.Previous.Add(e.Delta)
	if clamp && e.New.IsNegative() {
		e.New = decimal.Zero
	}
	*target = e.New
	return e, nil
}

// skipMissedOccurrences moves a resumed schedule past the dates it slept
// through, so it resumes on its next regular date instead of catching up
func (s *SimulationState) skipMissedOccurrences(id domain.EventID, r *repeatState) {
	if !r.next.Before(s.CurrentDate) {
		return
	}
	event, ok := s.events[id]
	if !ok {
		return
	}
	t, ok := event.Trigger.(domain.Repeating)
	if !ok {
		return
	}
	if next, ok := nextOccurrence(r.anchor, t.Interval, s.CurrentDate.AddDate(0, 0, -1)); ok {
		r.next = next
	}
}
