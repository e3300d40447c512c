package domain

import (
	"github.com/shopspring/decimal"
)

// Amount is the closed set of amount expressions. Endpoint-relative
// variants (SourceBalance, ZeroTargetBalance, TargetToBalance) resolve
// against the effect's from/to endpoints.
type Amount interface {
	isAmount()
}

type Fixed struct {
	Value decimal.Decimal `json:"value"`
}

// SourceBalance is the full balance of the effect's source.
type SourceBalance struct{}

// ZeroTargetBalance is the full balance of the effect's destination.
type ZeroTargetBalance struct{}

// TargetToBalance is whatever tops the destination up to Target.
type TargetToBalance struct {
	Target decimal.Decimal `json:"target"`
}

type AssetBalanceAmount struct {
	Asset AssetCoord `json:"asset"`
}

type AccountTotalBalance struct {
	Account AccountID `json:"account"`
}

type AccountCashBalance struct {
	Account AccountID `json:"account"`
}

// PercentOfBalance is Percent (0.04 = 4%) of an account's total value.
type PercentOfBalance struct {
	Account AccountID       `json:"account"`
	Percent decimal.Decimal `json:"percent"`
}

// InflationAdjusted grows a start-date amount by cumulative inflation.
type InflationAdjusted struct {
	Amount Amount `json:"amount"`
}

type MinOf struct{ Left, Right Amount }
type MaxOf struct{ Left, Right Amount }
type Sum struct{ Left, Right Amount }
type Difference struct{ Left, Right Amount }
type Product struct{ Left, Right Amount }

func (Fixed) isAmount()               {}
func (SourceBalance) isAmount()       {}
func (ZeroTargetBalance) isAmount()   {}
func (TargetToBalance) isAmount()     {}
func (AssetBalanceAmount) isAmount()  {}
func (AccountTotalBalance) isAmount() {}
func (AccountCashBalance) isAmount()  {}
func (PercentOfBalance) isAmount()    {}
func (InflationAdjusted) isAmount()   {}
func (MinOf) isAmount()               {}
func (MaxOf) isAmount()               {}
func (Sum) isAmount()                 {}
func (Difference) isAmount()          {}
func (Product) isAmount()             {}

// FixedAmount is shorthand for a Fixed amount of v dollars.
func FixedAmount(v float64) Fixed { return Fixed{Value: decimal.NewFromFloat(v)} }

// WithdrawalSources is the closed set of ways a sweep picks its sources
type WithdrawalSources interface {
	isWithdrawalSources()
}

type SingleAsset struct {
	Asset AssetCoord `json:"asset"`
}

type SingleAccount struct {
	Account AccountID `json:"account"`
}

// Strategy draws from every investment account not in Exclude, in Order.
type Strategy struct {
	Order   WithdrawalOrder `json:"order"`
	Exclude []AccountID     `json:"exclude,omitempty"`
}

// CustomSources draws from the listed positions in the listed order.
type CustomSources struct {
	Assets []AssetCoord `json:"assets"`
}

func (SingleAsset) isWithdrawalSources()   {}
func (SingleAccount) isWithdrawalSources() {}
func (Strategy) isWithdrawalSources()      {}
func (CustomSources) isWithdrawalSources() {}

// Effect is the closed set of things an event can do when it fires
type Effect interface {
	isEffect()
}

type CreateAccount struct {
	Account *Account `json:"account"`
}

type DeleteAccount struct {
	Account AccountID `json:"account"`
}

type Income struct {
	To         AccountID  `json:"to"`
	Amount     Amount     `json:"amount"`
	Mode       AmountMode `json:"mode"`
	IncomeType IncomeType `json:"income_type"`
}

type Expense struct {
	From   AccountID `json:"from"`
	Amount Amount    `json:"amount"`
}

type AssetPurchase struct {
	From   AccountID  `json:"from"`
	To     AssetCoord `json:"to"`
	Amount Amount     `json:"amount"`
}

// AssetSale liquidates one asset (or every asset when Asset is nil) into
// the account's own cash.
type AssetSale struct {
	From      AccountID  `json:"from"`
	Asset     *AssetID   `json:"asset,omitempty"`
	Amount    Amount     `json:"amount"`
	Mode      AmountMode `json:"mode"`
	LotMethod LotMethod  `json:"lot_method"`
}

// Sweep liquidates across several accounts and moves the proceeds to To.
type Sweep struct {
	Sources   WithdrawalSources `json:"sources"`
	To        AccountID         `json:"to"`
	Amount    Amount            `json:"amount"`
	Mode      AmountMode        `json:"mode"`
	LotMethod LotMethod         `json:"lot_method"`
}

// ApplyRMD withdraws the required minimum distribution from every
// tax-deferred account into Destination.
type ApplyRMD struct {
	Destination AccountID `json:"destination"`
	LotMethod   LotMethod `json:"lot_method"`
}

type CashTransfer struct {
	From   AccountID `json:"from"`
	To     AccountID `json:"to"`
	Amount Amount    `json:"amount"`
}

type AdjustBalance struct {
	Account AccountID `json:"account"`
	Amount  Amount    `json:"amount"`
}

// RsuVesting deposits Units of an asset at fair market value.
type RsuVesting struct {
	To          AssetCoord      `json:"to"`
	Units       decimal.Decimal `json:"units"`
	SellToCover bool            `json:"sell_to_cover"`
	LotMethod   LotMethod       `json:"lot_method"`
}

type TriggerEvent struct {
	Event EventID `json:"event"`
}

type PauseEvent struct {
	Event EventID `json:"event"`
}

type ResumeEvent struct {
	Event EventID `json:"event"`
}

type TerminateEvent struct {
	Event EventID `json:"event"`
}

func (CreateAccount) isEffect()  {}
func (DeleteAccount) isEffect()  {}
func (Income) isEffect()         {}
func (Expense) isEffect()        {}
func (AssetPurchase) isEffect()  {}
func (AssetSale) isEffect()      {}
func (Sweep) isEffect()          {}
func (ApplyRMD) isEffect()       {}
func (CashTransfer) isEffect()   {}
func (AdjustBalance) isEffect()  {}
func (RsuVesting) isEffect()     {}
func (TriggerEvent) isEffect()   {}
func (PauseEvent) isEffect()     {}
func (ResumeEvent) isEffect()    {}
func (TerminateEvent) isEffect() {}
