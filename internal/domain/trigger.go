package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Threshold compares a balance against a fixed value
type Threshold struct {
	Op    ThresholdOp     `json:"op"`
	Value decimal.Decimal `json:"value"`
}

// Met reports whether balance satisfies the threshold
func (t Threshold) Met(balance decimal.Decimal) bool {
	if t.Op == LessOrEqual {
		return balance.LessThanOrEqual(t.Value)
	}
	return balance.GreaterThanOrEqual(t.Value)
}

// Offset is a calendar distance from another event's trigger date
type Offset struct {
	Unit OffsetUnit `json:"unit"`
	N    int        `json:"n"`
}

// Trigger is the closed set of trigger expressions. Triggers are evaluated
// against a read-only view of simulation state.
type Trigger interface {
	isTrigger()
}

// Immediate fires on the first date processed.
type Immediate struct{}

// OnDate fires once the current date reaches Date.
type OnDate struct {
	Date time.Time `json:"date"`
}

// AtAge fires once the account holder reaches Years and Months.
type AtAge struct {
	Years  int `json:"years"`
	Months int `json:"months"`
}

type AccountBalance struct {
	Account   AccountID `json:"account"`
	Threshold Threshold `json:"threshold"`
}

type AssetBalance struct {
	Asset     AssetCoord `json:"asset"`
	Threshold Threshold  `json:"threshold"`
}

type NetWorth struct {
	Threshold Threshold `json:"threshold"`
}

// Repeating fires every Interval once Start holds, until End holds or
// MaxOccurrences (when positive) is reached.
type Repeating struct {
	Interval       RepeatInterval `json:"interval"`
	Start          Trigger        `json:"start,omitempty"`
	End            Trigger        `json:"end,omitempty"`
	MaxOccurrences int            `json:"max_occurrences,omitempty"`
}

// RelativeToEvent fires Offset after the last trigger date of Event.
type RelativeToEvent struct {
	Event  EventID `json:"event"`
	Offset Offset  `json:"offset"`
}

type And struct {
	Triggers []Trigger `json:"triggers"`
}

type Or struct {
	Triggers []Trigger `json:"triggers"`
}

// Manual never fires on its own; another event must request it.
type Manual struct{}

func (Immediate) isTrigger()       {}
func (OnDate) isTrigger()          {}
func (AtAge) isTrigger()           {}
func (AccountBalance) isTrigger()  {}
func (AssetBalance) isTrigger()    {}
func (NetWorth) isTrigger()        {}
func (Repeating) isTrigger()       {}
func (RelativeToEvent) isTrigger() {}
func (And) isTrigger()             {}
func (Or) isTrigger()              {}
func (Manual) isTrigger()          {}

// Event is a trigger plus the effects it runs when it fires
type Event struct {
	ID      EventID  `json:"id"`
	Name    string   `json:"name"`
	Trigger Trigger  `json:"trigger"`
	Effects []Effect `json:"effects"`
	Once    bool     `json:"once"`
}
