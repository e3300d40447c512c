package calculation

import (
	"github.com/rpgo/finplan/internal/domain"
	"github.com/shopspring/decimal"
)

// TAX MODEL ASSUMPTIONS:
//
// 1. Federal ordinary income uses progressive brackets. The last bracket
//    runs to infinity; income below the first threshold is untaxed.
// 2. State tax is a flat rate on ordinary income and on all realized gains.
// 3. Short-term gains stack on top of year-to-date ordinary income; long-term
//    gains pay the flat capital gains rate.
// 4. Brackets are not indexed for inflation.

// EarlyWithdrawalAge is the age below which tax-deferred withdrawals are
// penalized.
var EarlyWithdrawalAge = decimal.NewFromFloat(59.5)

// FederalTax returns the tax on income under brackets
func FederalTax(income decimal.Decimal, brackets []domain.TaxBracket) decimal.Decimal {
	if !income.IsPositive() || len(brackets) == 0 {
		return decimal.Zero
	}

	tax := decimal.Zero
	for i, b := range brackets {
		if income.LessThanOrEqual(b.Threshold) {
			break
		}
		upper := income
		if i+1 < len(brackets) {
			upper = decimal.Min(income, brackets[i+1].Threshold)
		}
		if taxable := upper.Sub(b.Threshold); taxable.IsPositive() {
			tax = tax.Add(taxable.Mul(b.Rate))
		}
	}
	return tax
}

// MarginalTax returns the federal tax on additional income stacked on ytd
func MarginalTax(additional, ytd decimal.Decimal, brackets []domain.TaxBracket) decimal.Decimal {
	return FederalTax(ytd.Add(additional), brackets).Sub(FederalTax(ytd, brackets))
}

// GrossFromNet returns the gross ordinary income that leaves net after
// marginal federal tax and flat state tax, given ytd income already taxed.
func GrossFromNet(net, ytd decimal.Decimal, brackets []domain.TaxBracket, stateRate decimal.Decimal) decimal.Decimal {
	if !net.IsPositive() {
		return decimal.Zero
	}
	if len(brackets) == 0 {
		return grossUp(net, stateRate)
	}

	current := 0
	for i, b := range brackets {
		if ytd.GreaterThanOrEqual(b.Threshold) {
			current = i
		}
	}

	remaining := net
	gross := decimal.Zero
	cursor := ytd
	for i := current; i < len(brackets); i++ {
		netPerGross := decimal.NewFromInt(1).Sub(brackets[i].Rate.Add(stateRate))
		if i+1 == len(brackets) {
			return gross.Add(remaining.Div(netPerGross))
		}

		room := brackets[i+1].Threshold.Sub(cursor)
		maxNet := room.Mul(netPerGross)
		if remaining.LessThanOrEqual(maxNet) {
			return gross.Add(remaining.Div(netPerGross))
		}
		gross = gross.Add(room)
		remaining = remaining.Sub(maxNet)
		cursor = brackets[i+1].Threshold
	}
	return gross
}

func grossUp(net, rate decimal.Decimal) decimal.Decimal {
	return net.Div(decimal.NewFromInt(1).Sub(rate))
}

// RealizedGainsTax is the tax due on realized capital gains
type RealizedGainsTax struct {
	ShortTermFederal decimal.Decimal
	LongTermFederal  decimal.Decimal
	ShortTermState   decimal.Decimal
	LongTermState    decimal.Decimal
}

// Federal returns total federal tax on the gains
func (r RealizedGainsTax) Federal() decimal.Decimal {
	return r.ShortTermFederal.Add(r.LongTermFederal)
}

// State returns total state tax on the gains
func (r RealizedGainsTax) State() decimal.Decimal {
	return r.ShortTermState.Add(r.LongTermState)
}

// Total returns all tax due on the gains
func (r RealizedGainsTax) Total() decimal.Decimal {
	return r.Federal().Add(r.State())
}

// OrdinaryIncomeTax is the tax due on ordinary income
type OrdinaryIncomeTax struct {
	Gross   decimal.Decimal
	Federal decimal.Decimal
	State   decimal.Decimal
	Penalty decimal.Decimal
}

// Total returns federal and state tax plus any penalty
func (o OrdinaryIncomeTax) Total() decimal.Decimal {
	return o.Federal.Add(o.State).Add(o.Penalty)
}

// Net returns what is left of the gross amount after Total
func (o OrdinaryIncomeTax) Net() decimal.Decimal {
	return o.Gross.Sub(o.Total())
}

// TaxCalculator applies one TaxConfig
type TaxCalculator struct {
	Config domain.TaxConfig
}

// NewTaxCalculator creates a tax calculator for cfg
func NewTaxCalculator(cfg domain.TaxConfig) *TaxCalculator {
	return &TaxCalculator{Config: cfg}
}

// IncomeTax returns marginal federal and flat state tax on gross ordinary
// income stacked on ytd
func (tc *TaxCalculator) IncomeTax(gross, ytd decimal.Decimal) OrdinaryIncomeTax {
	if !gross.IsPositive() {
		return OrdinaryIncomeTax{Gross: gross}
	}
	return OrdinaryIncomeTax{
		Gross:   gross,
		Federal: MarginalTax(gross, ytd, tc.Config.FederalBrackets),
		State:   gross.Mul(tc.Config.StateRate),
	}
}

// GrossFromNet inverts IncomeTax
func (tc *TaxCalculator) GrossFromNet(net, ytd decimal.Decimal) decimal.Decimal {
	return GrossFromNet(net, ytd, tc.Config.FederalBrackets, tc.Config.StateRate)
}

// RealizedGainsTax taxes short-term gains as ordinary income on top of ytd
// and long-term gains at the capital gains rate. Losses are not deducted.
func (tc *TaxCalculator) RealizedGainsTax(shortTerm, longTerm, ytd decimal.Decimal) RealizedGainsTax {
	var r RealizedGainsTax
	if shortTerm.IsPositive() {
		r.ShortTermFederal = MarginalTax(shortTerm, ytd, tc.Config.FederalBrackets)
		r.ShortTermState = shortTerm.Mul(tc.Config.StateRate)
	}
	if longTerm.IsPositive() {
		r.LongTermFederal = longTerm.Mul(tc.Config.CapitalGainsRate)
		r.LongTermState = longTerm.Mul(tc.Config.StateRate)
	}
	return r
}

// TaxDeferredWithdrawalTax taxes a tax-deferred withdrawal as ordinary
// income, adding the early withdrawal penalty when age is below 59.5.
func (tc *TaxCalculator) TaxDeferredWithdrawalTax(gross, ytd, age decimal.Decimal) OrdinaryIncomeTax {
	tax := tc.IncomeTax(gross, ytd)
	if gross.IsPositive() && age.LessThan(EarlyWithdrawalAge) {
		tax.Penalty = gross.Mul(tc.Config.EarlyWithdrawalPenaltyRate)
	}
	return tax
}
