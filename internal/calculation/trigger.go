package calculation

import (
	"fmt"
	"time"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/rpgo/finplan/pkg/dateutil"
)

// TriggerOutcomeKind is what a trigger evaluation asks the loop to do
type TriggerOutcomeKind int

const (
	NotTriggered TriggerOutcomeKind = iota
	Triggered
	// StartRepeating activates a repeating event and fires it; Date is the
	// next scheduled occurrence.
	StartRepeating
	// TriggerRepeating fires an active repeating event; Date is the
	// occurrence after this one.
	TriggerRepeating
	// StopRepeating terminates a repeating event.
	StopRepeating
	// NextTriggerDate means not yet, but Date is when it will be.
	NextTriggerDate
)

func (k TriggerOutcomeKind) String() string {
	switch k {
	case NotTriggered:
		return "not_triggered"
	case Triggered:
		return "triggered"
	case StartRepeating:
		return "start_repeating"
	case TriggerRepeating:
		return "trigger_repeating"
	case StopRepeating:
		return "stop_repeating"
	case NextTriggerDate:
		return "next_trigger_date"
	default:
		return fmt.Sprintf("TriggerOutcomeKind(%d)", int(k))
	}
}

// TriggerOutcome is the result of evaluating one trigger. Date is zero unless
// Kind carries a date.
type TriggerOutcome struct {
	Kind TriggerOutcomeKind
	Date time.Time
}

// Fires reports whether the event should run its effects now
func (o TriggerOutcome) Fires() bool {
	switch o.Kind {
	case Triggered, StartRepeating, TriggerRepeating:
		return true
	default:
		return false
	}
}

func outcomeAt(kind TriggerOutcomeKind, date time.Time) TriggerOutcome {
	return TriggerOutcome{Kind: kind, Date: date}
}

func when(cond bool) TriggerOutcome {
	if cond {
		return TriggerOutcome{Kind: Triggered}
	}
	return TriggerOutcome{Kind: NotTriggered}
}

// EvaluateTrigger decides whether trigger fires for event on the current date.
// It never changes s.
func EvaluateTrigger(event domain.EventID, trigger domain.Trigger, s *SimulationState) (TriggerOutcome, error) {
	if s.terminated[event] {
		return TriggerOutcome{Kind: NotTriggered}, nil
	}

	switch t := trigger.(type) {
	case domain.Immediate:
		return when(s.CurrentDate.Equal(s.StartDate)), nil

	case domain.OnDate:
		if !s.CurrentDate.Before(t.Date) {
			return TriggerOutcome{Kind: Triggered}, nil
		}
		return outcomeAt(NextTriggerDate, t.Date), nil

	case domain.AtAge:
		target := dateutil.DateAtAge(s.BirthDate, t.Years, t.Months)
		if !s.CurrentDate.Before(target) {
			return TriggerOutcome{Kind: Triggered}, nil
		}
		return outcomeAt(NextTriggerDate, target), nil

	case domain.RelativeToEvent:
		fired, ok := s.triggered[t.Event]
		if !ok {
			return TriggerOutcome{Kind: NotTriggered}, nil
		}
		target := applyOffset(fired, t.Offset)
		if !s.CurrentDate.Before(target) {
			return TriggerOutcome{Kind: Triggered}, nil
		}
		return outcomeAt(NextTriggerDate, target), nil

	case domain.AccountBalance:
		balance, err := s.AccountBalance(t.Account)
		if err != nil {
			return TriggerOutcome{}, err
		}
		return when(t.Threshold.Met(balance)), nil

	case domain.AssetBalance:
		balance, err := s.AssetBalance(t.Asset)
		if err != nil {
			return TriggerOutcome{}, err
		}
		return when(t.Threshold.Met(balance)), nil

	case domain.NetWorth:
		return when(t.Threshold.Met(s.NetWorth())), nil

	case domain.And:
		all := true
		for _, child := range t.Triggers {
			out, err := EvaluateTrigger(event, child, s)
			if err != nil {
				return TriggerOutcome{}, err
			}
			if out.Kind != Triggered {
				all = false
			}
		}
		return when(all), nil

	case domain.Or:
		for _, child := range t.Triggers {
			out, err := EvaluateTrigger(event, child, s)
			if err != nil {
				return TriggerOutcome{}, err
			}
			if out.Kind == Triggered {
				return TriggerOutcome{Kind: Triggered}, nil
			}
		}
		return TriggerOutcome{Kind: NotTriggered}, nil

	case domain.Repeating:
		return evaluateRepeating(event, t, s)

	case domain.Manual:
		return TriggerOutcome{Kind: NotTriggered}, nil

	default:
		return TriggerOutcome{}, &LookupError{Op: "evaluate trigger", ID: event, Err: fmt.Errorf("unsupported trigger %T", trigger)}
	}
}

func evaluateRepeating(event domain.EventID, t domain.Repeating, s *SimulationState) (TriggerOutcome, error) {
	if t.End != nil {
		out, err := EvaluateTrigger(event, t.End, s)
		if err != nil {
			return TriggerOutcome{}, err
		}
		if out.Kind == Triggered {
			return TriggerOutcome{Kind: StopRepeating}, nil
		}
	}

	state, started := s.repeating[event]
	if !started {
		if t.Start != nil {
			out, err := EvaluateTrigger(event, t.Start, s)
			if err != nil {
				return TriggerOutcome{}, err
			}
			switch out.Kind {
			case Triggered:
			case NextTriggerDate:
				return out, nil
			default:
				return TriggerOutcome{Kind: NotTriggered}, nil
			}
		}
		next, _ := nextOccurrence(s.CurrentDate, t.Interval, s.CurrentDate)
		return outcomeAt(StartRepeating, next), nil
	}

	if !state.active {
		return TriggerOutcome{Kind: NotTriggered}, nil
	}
	if t.MaxOccurrences > 0 && s.occurrences[event] >= t.MaxOccurrences {
		return TriggerOutcome{Kind: StopRepeating}, nil
	}
	if state.next.IsZero() || s.CurrentDate.Before(state.next) {
		return TriggerOutcome{Kind: NotTriggered}, nil
	}
	next, _ := nextOccurrence(state.anchor, t.Interval, s.CurrentDate)
	return outcomeAt(TriggerRepeating, next), nil
}

// addInterval returns date moved forward n intervals. Month based intervals
// clamp to the end of the month.
func addInterval(date time.Time, interval domain.RepeatInterval, n int) (time.Time, bool) {
	switch interval {
	case domain.Weekly:
		return date.AddDate(0, 0, 7*n), true
	case domain.BiWeekly:
		return date.AddDate(0, 0, 14*n), true
	case domain.MonthlyInterval:
		return dateutil.AddMonthsClamped(date, n), true
	case domain.Quarterly:
		return dateutil.AddMonthsClamped(date, 3*n), true
	case domain.YearlyInterval:
		return dateutil.AddYearsClamped(date, n), true
	default:
		return time.Time{}, false
	}
}

// nextOccurrence returns the first anchor + n*interval after current, n >= 1.
// Counting from the anchor keeps month-end schedules from drifting.
func nextOccurrence(anchor time.Time, interval domain.RepeatInterval, current time.Time) (time.Time, bool) {
	for n := 1; ; n++ {
		next, ok := addInterval(anchor, interval, n)
		if !ok {
			return time.Time{}, false
		}
		if next.After(current) {
			return next, true
		}
	}
}

func applyOffset(date time.Time, offset domain.Offset) time.Time {
	switch offset.Unit {
	case domain.OffsetMonths:
		return dateutil.AddMonthsClamped(date, offset.N)
	case domain.OffsetYears:
		return dateutil.AddYearsClamped(date, offset.N)
	default:
		return date.AddDate(0, 0, offset.N)
	}
}
