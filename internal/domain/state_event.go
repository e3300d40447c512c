package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// StateEvent is one self-describing state mutation. Effects evaluate to
// state events; applying them is the only way simulation state changes.
type StateEvent interface {
	Kind() string
	isStateEvent()
}

type TimeAdvance struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Days int       `json:"days"`
}

type AccountCreated struct {
	Account *Account `json:"account"`
}

type AccountDeleted struct {
	Account AccountID `json:"account"`
}

type CashCredit struct {
	To     AccountID       `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Flow   CashFlowKind    `json:"flow"`
}

type CashDebit struct {
	From   AccountID       `json:"from"`
	Amount decimal.Decimal `json:"amount"`
	Flow   CashFlowKind    `json:"flow"`
}

// ContributionRecorded counts new money against an account's limit.
type ContributionRecorded struct {
	Account AccountID       `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

type CashAppreciation struct {
	Account  AccountID       `json:"account"`
	Previous decimal.Decimal `json:"previous"`
	New      decimal.Decimal `json:"new"`
	Return   decimal.Decimal `json:"return"`
	Days     int             `json:"days"`
}

type LiabilityInterestAccrual struct {
	Account      AccountID       `json:"account"`
	Previous     decimal.Decimal `json:"previous"`
	New          decimal.Decimal `json:"new"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Days         int             `json:"days"`
}

// AssetPurchased adds a lot dated on the apply date.
type AssetPurchased struct {
	Asset        AssetCoord      `json:"asset"`
	Units        decimal.Decimal `json:"units"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// AssetSold shrinks the lot bought on LotDate, removing it once depleted.
type AssetSold struct {
	Asset         AssetCoord      `json:"asset"`
	LotDate       time.Time       `json:"lot_date"`
	Units         decimal.Decimal `json:"units"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	Proceeds      decimal.Decimal `json:"proceeds"`
	ShortTermGain decimal.Decimal `json:"short_term_gain"`
	LongTermGain  decimal.Decimal `json:"long_term_gain"`
}

type IncomeTax struct {
	Gross   decimal.Decimal `json:"gross"`
	Federal decimal.Decimal `json:"federal"`
	State   decimal.Decimal `json:"state"`
}

type ShortTermCapitalGainsTax struct {
	Gain    decimal.Decimal `json:"gain"`
	Federal decimal.Decimal `json:"federal"`
	State   decimal.Decimal `json:"state"`
}

type LongTermCapitalGainsTax struct {
	Gain    decimal.Decimal `json:"gain"`
	Federal decimal.Decimal `json:"federal"`
	State   decimal.Decimal `json:"state"`
}

type EarlyWithdrawalPenalty struct {
	Gross   decimal.Decimal `json:"gross"`
	Penalty decimal.Decimal `json:"penalty"`
	Rate    decimal.Decimal `json:"rate"`
}

// BalanceAdjusted moves a balance by Delta; Previous and New are filled in
// when the adjustment is applied.
type BalanceAdjusted struct {
	Account  AccountID       `json:"account"`
	Delta    decimal.Decimal `json:"delta"`
	Previous decimal.Decimal `json:"previous"`
	New      decimal.Decimal `json:"new"`
}

type EventTriggered struct {
	Event EventID `json:"event"`
}

type EventPaused struct {
	Event EventID `json:"event"`
}

type EventResumed struct {
	Event EventID `json:"event"`
}

type EventTerminated struct {
	Event EventID `json:"event"`
}

// ChainedTriggerRequested queues Event to fire later on the same date.
type ChainedTriggerRequested struct {
	Event EventID `json:"event"`
}

type YearRollover struct {
	FromYear int `json:"from_year"`
	ToYear   int `json:"to_year"`
}

type RmdWithdrawal struct {
	Account          AccountID       `json:"account"`
	Age              int             `json:"age"`
	PriorYearBalance decimal.Decimal `json:"prior_year_balance"`
	Divisor          decimal.Decimal `json:"divisor"`
	Required         decimal.Decimal `json:"required"`
	Actual           decimal.Decimal `json:"actual"`
}

func (TimeAdvance) Kind() string              { return "time_advance" }
func (AccountCreated) Kind() string           { return "account_created" }
func (AccountDeleted) Kind() string           { return "account_deleted" }
func (CashCredit) Kind() string               { return "cash_credit" }
func (CashDebit) Kind() string                { return "cash_debit" }
func (ContributionRecorded) Kind() string     { return "contribution_recorded" }
func (CashAppreciation) Kind() string         { return "cash_appreciation" }
func (LiabilityInterestAccrual) Kind() string { return "liability_interest_accrual" }
func (AssetPurchased) Kind() string           { return "asset_purchased" }
func (AssetSold) Kind() string                { return "asset_sold" }
func (IncomeTax) Kind() string                { return "income_tax" }
func (ShortTermCapitalGainsTax) Kind() string { return "short_term_capital_gains_tax" }
func (LongTermCapitalGainsTax) Kind() string  { return "long_term_capital_gains_tax" }
func (EarlyWithdrawalPenalty) Kind() string   { return "early_withdrawal_penalty" }
func (BalanceAdjusted) Kind() string          { return "balance_adjusted" }
func (EventTriggered) Kind() string           { return "event_triggered" }
func (EventPaused) Kind() string              { return "event_paused" }
func (EventResumed) Kind() string             { return "event_resumed" }
func (EventTerminated) Kind() string          { return "event_terminated" }
func (ChainedTriggerRequested) Kind() string  { return "chained_trigger_requested" }
func (YearRollover) Kind() string             { return "year_rollover" }
func (RmdWithdrawal) Kind() string            { return "rmd_withdrawal" }

func (TimeAdvance) isStateEvent()              {}
func (AccountCreated) isStateEvent()           {}
func (AccountDeleted) isStateEvent()           {}
func (CashCredit) isStateEvent()               {}
func (CashDebit) isStateEvent()                {}
func (ContributionRecorded) isStateEvent()     {}
func (CashAppreciation) isStateEvent()         {}
func (LiabilityInterestAccrual) isStateEvent() {}
func (AssetPurchased) isStateEvent()           {}
func (AssetSold) isStateEvent()                {}
func (IncomeTax) isStateEvent()                {}
func (ShortTermCapitalGainsTax) isStateEvent() {}
func (LongTermCapitalGainsTax) isStateEvent()  {}
func (EarlyWithdrawalPenalty) isStateEvent()   {}
func (BalanceAdjusted) isStateEvent()          {}
func (EventTriggered) isStateEvent()           {}
func (EventPaused) isStateEvent()              {}
func (EventResumed) isStateEvent()             {}
func (EventTerminated) isStateEvent()          {}
func (ChainedTriggerRequested) isStateEvent()  {}
func (YearRollover) isStateEvent()             {}
func (RmdWithdrawal) isStateEvent()            {}

// LedgerEntry records one applied state event
type LedgerEntry struct {
	Date        time.Time  `json:"date"`
	SourceEvent *EventID   `json:"source_event,omitempty"`
	Event       StateEvent `json:"event"`
}

// MarshalJSON tags the state event with its kind so entries are self-describing.
func (e LedgerEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date        string     `json:"date"`
		SourceEvent *EventID   `json:"source_event,omitempty"`
		Kind        string     `json:"kind"`
		Event       StateEvent `json:"event"`
	}{
		Date:        e.Date.Format("2006-01-02"),
		SourceEvent: e.SourceEvent,
		Kind:        e.Event.Kind(),
		Event:       e.Event,
	})
}

// IsCashEvent reports whether the entry moved cash between accounts or the outside world
func (e LedgerEntry) IsCashEvent() bool {
	switch e.Event.(type) {
	case CashCredit, CashDebit, CashAppreciation:
		return true
	default:
		return false
	}
}
