package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotEpsilon is the unit count at or below which a lot is considered depleted
var LotEpsilon = decimal.NewFromFloat(0.001)

// DustValue is the market value below which a partially sold lot is swept away
var DustValue = decimal.NewFromFloat(0.01)

// PriceFunc looks up the current price of an asset
type PriceFunc func(AssetID) (decimal.Decimal, bool)

// Cash is an interest-bearing cash balance
type Cash struct {
	Value           decimal.Decimal `json:"value"`
	ReturnProfileID ReturnProfileID `json:"return_profile_id"`
}

// Lot is one purchase of an asset, tracked for cost basis accounting
type Lot struct {
	AssetID      AssetID         `json:"asset_id"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Units        decimal.Decimal `json:"units"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
}

// CostPerUnit returns the lot's basis per unit (zero for an empty lot)
func (l Lot) CostPerUnit() decimal.Decimal {
	if !l.Units.IsPositive() {
		return decimal.Zero
	}
	return l.CostBasis.Div(l.Units)
}

// IsDepleted reports whether the lot should be removed from its account.
// Units at or below LotEpsilon are always depleted; a lot worth less than a
// cent at price is dust.
func (l Lot) IsDepleted(price decimal.Decimal) bool {
	if l.Units.LessThanOrEqual(LotEpsilon) {
		return true
	}
	return price.IsPositive() && l.Units.Mul(price).LessThan(DustValue)
}

// ContributionLimit caps new money entering an investment account
type ContributionLimit struct {
	Amount decimal.Decimal    `json:"amount"`
	Period ContributionPeriod `json:"period"`
}

// AccountFlavor is the closed set of account kinds
type AccountFlavor interface {
	isAccountFlavor()
	clone() AccountFlavor
}

// Bank is a plain cash account
type Bank struct {
	Cash Cash `json:"cash"`
}

// Investment holds cash plus lots under one tax status
type Investment struct {
	TaxStatus         TaxStatus          `json:"tax_status"`
	Cash              Cash               `json:"cash"`
	Positions         []Lot              `json:"positions"`
	ContributionLimit *ContributionLimit `json:"contribution_limit,omitempty"`
}

// Property is a single illiquid holding such as a house
type Property struct {
	AssetID AssetID         `json:"asset_id"`
	Value   decimal.Decimal `json:"value"`
}

// Liability is a debt accruing interest at a fixed annual rate
type Liability struct {
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"`
}

func (*Bank) isAccountFlavor()       {}
func (*Investment) isAccountFlavor() {}
func (*Property) isAccountFlavor()   {}
func (*Liability) isAccountFlavor()  {}

func (b *Bank) clone() AccountFlavor { c := *b; return &c }

func (inv *Investment) clone() AccountFlavor {
	c := *inv
	c.Positions = append([]Lot(nil), inv.Positions...)
	if inv.ContributionLimit != nil {
		limit := *inv.ContributionLimit
		c.ContributionLimit = &limit
	}
	return &c
}

func (p *Property) clone() AccountFlavor  { c := *p; return &c }
func (l *Liability) clone() AccountFlavor { c := *l; return &c }

// Units returns the total units of asset held
func (inv *Investment) Units(asset AssetID) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range inv.Positions {
		if lot.AssetID == asset {
			total = total.Add(lot.Units)
		}
	}
	return total
}

// LotsFor returns a copy of the lots of asset, in holding order
func (inv *Investment) LotsFor(asset AssetID) []Lot {
	var lots []Lot
	for _, lot := range inv.Positions {
		if lot.AssetID == asset {
			lots = append(lots, lot)
		}
	}
	return lots
}

// AssetIDs returns the distinct assets held, in first-held order
func (inv *Investment) AssetIDs() []AssetID {
	seen := make(map[AssetID]bool)
	var ids []AssetID
	for _, lot := range inv.Positions {
		if !seen[lot.AssetID] {
			seen[lot.AssetID] = true
			ids = append(ids, lot.AssetID)
		}
	}
	return ids
}

// Account is one named holding in the portfolio
type Account struct {
	ID     AccountID     `json:"id"`
	Name   string        `json:"name"`
	Flavor AccountFlavor `json:"flavor"`
}

// Clone returns a deep copy so a simulation run can own its accounts
func (a *Account) Clone() *Account {
	c := *a
	if a.Flavor != nil {
		c.Flavor = a.Flavor.clone()
	}
	return &c
}

// IsLiquid reports whether the account holds spendable cash
func (a *Account) IsLiquid() bool {
	switch a.Flavor.(type) {
	case *Bank, *Investment:
		return true
	default:
		return false
	}
}

// CashBalance returns the cash held by a Bank or Investment account
func (a *Account) CashBalance() (decimal.Decimal, bool) {
	switch f := a.Flavor.(type) {
	case *Bank:
		return f.Cash.Value, true
	case *Investment:
		return f.Cash.Value, true
	default:
		return decimal.Zero, false
	}
}

// TotalValue returns the account's contribution to net worth. Liabilities are
// negative; lots without a price are carried at cost basis.
func (a *Account) TotalValue(price PriceFunc) decimal.Decimal {
	switch f := a.Flavor.(type) {
	case *Bank:
		return f.Cash.Value
	case *Investment:
		total := f.Cash.Value
		for _, lot := range f.Positions {
			if p, ok := price(lot.AssetID); ok {
				total = total.Add(lot.Units.Mul(p))
			} else {
				total = total.Add(lot.CostBasis)
			}
		}
		return total
	case *Property:
		if p, ok := price(f.AssetID); ok {
			return p
		}
		return f.Value
	case *Liability:
		return f.Principal.Neg()
	default:
		return decimal.Zero
	}
}
