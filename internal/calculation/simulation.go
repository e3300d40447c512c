package calculation

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/rpgo/finplan/pkg/dateutil"
	"github.com/shopspring/decimal"
)

const (
	// maxChainDepth bounds how many times chained triggers may cascade on one date
	maxChainDepth = 10
	// maxDateIterations bounds the same-date fixed point
	maxDateIterations = 1000
	// heartbeatMonths is the longest the clock moves without a checkpoint
	heartbeatMonths = 3
)

// appreciationEpsilon is the smallest cash change worth an appreciation event
var appreciationEpsilon = decimal.NewFromFloat(0.001)

// Simulate runs one deterministic simulation of cfg. The same cfg and seed
// always produce the same result.
func Simulate(cfg *domain.SimulationConfig, seed uint64) (*domain.SimulationResult, error) {
	return simulate(cfg, seed, NopLogger{})
}

func simulate(cfg *domain.SimulationConfig, seed uint64, logger Logger) (*domain.SimulationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	s, err := NewSimulationState(cfg, seed)
	if err != nil {
		return nil, err
	}
	s.SetLogger(logger)
	s.Run()
	return s.result(seed, s.snapshots[0].Accounts), nil
}

// Run processes events and advances time until the end date
func (s *SimulationState) Run() {
	if len(s.snapshots) == 0 {
		s.snapshotWealth()
	}
	for s.CurrentDate.Before(s.EndDate) {
		s.dates = append(s.dates, s.CurrentDate)
		s.processDate()
		s.advanceTime()
	}
}

// processDate fires events until the current date reaches a fixed point
func (s *SimulationState) processDate() {
	for i := 0; i < maxDateIterations; i++ {
		if len(s.ProcessEvents()) == 0 {
			return
		}
	}
	s.warn(domain.WarningIterationLimitHit, nil, "events still firing after %d passes", maxDateIterations)
}

// ProcessEvents makes one pass over every event in id order, fires those
// whose triggers are met, then drains chained triggers. It returns the
// events that fired.
func (s *SimulationState) ProcessEvents() []domain.EventID {
	var fired []domain.EventID
	for _, id := range s.eventOrder {
		event := s.events[id]
		if !s.eligible(event) {
			continue
		}
		outcome, err := EvaluateTrigger(id, event.Trigger, s)
		if err != nil {
			s.warn(domain.WarningLookupFailed, &id, "trigger: %v", err)
			continue
		}
		switch outcome.Kind {
		case StartRepeating:
			s.repeating[id] = &repeatState{active: true, anchor: s.CurrentDate, next: outcome.Date}
		case TriggerRepeating:
			s.repeating[id].next = outcome.Date
		case StopRepeating:
			s.apply(domain.EventTerminated{Event: id}, &id)
			continue
		}
		if !outcome.Fires() {
			continue
		}
		s.fire(event)
		fired = append(fired, id)
	}
	return append(fired, s.drainChained()...)
}

// eligible reports whether event may fire on the current date. An event
// fires at most once per date; once-events fire at most once per run.
func (s *SimulationState) eligible(event *domain.Event) bool {
	if s.terminated[event.ID] {
		return false
	}
	if d, ok := s.firedOn[event.ID]; ok && d.Equal(s.CurrentDate) {
		return false
	}
	return !s.exhausted(event)
}

func (s *SimulationState) exhausted(event *domain.Event) bool {
	if _, repeating := event.Trigger.(domain.Repeating); repeating {
		return false
	}
	_, fired := s.triggered[event.ID]
	return event.Once && fired
}

// drainChained fires queued events level by level. Events queued by the
// last permitted level are dropped with a warning.
func (s *SimulationState) drainChained() []domain.EventID {
	var fired []domain.EventID
	for depth := 0; len(s.pending) > 0; depth++ {
		if depth >= maxChainDepth {
			s.warn(domain.WarningChainDepthExceeded, nil, "chained triggers stopped after %d levels, dropped events %v", maxChainDepth, s.pending)
			s.pending = nil
			break
		}
		batch := s.pending
		s.pending = nil
		for _, id := range batch {
			event, ok := s.events[id]
			if !ok {
				s.warn(domain.WarningLookupFailed, nil, "chained trigger: %v", eventNotFound("chained trigger", id))
				continue
			}
			if s.terminated[id] || s.exhausted(event) {
				continue
			}
			s.fire(event)
			fired = append(fired, id)
		}
	}
	return fired
}

// fire records the trigger and applies each effect in order, so later
// effects see the state left by earlier ones
func (s *SimulationState) fire(event *domain.Event) {
	id := event.ID
	s.apply(domain.EventTriggered{Event: id}, &id)
	for i, effect := range event.Effects {
		events, err := EvaluateEffect(effect, s)
		if err != nil {
			s.warn(domain.WarningLookupFailed, &id, "effect %d (%T): %v", i, effect, err)
			continue
		}
		for _, ev := range events {
			s.apply(ev, &id)
		}
	}
}

func (s *SimulationState) apply(ev domain.StateEvent, source *domain.EventID) {
	if err := ApplyStateEvent(s, ev, source); err != nil {
		s.warn(domain.WarningApplyFailed, source, "%v", err)
	}
}

// advanceTime moves the clock to the next checkpoint, growing cash and
// debts over the elapsed days
func (s *SimulationState) advanceTime() {
	from := s.CurrentDate
	next := s.nextCheckpoint()
	days := dateutil.DaysBetween(from, next)
	growth := s.growthEvents(from, next, days)

	s.apply(domain.TimeAdvance{From: from, To: next, Days: days}, nil)
	for _, ev := range growth {
		s.apply(ev, nil)
	}
	if dateutil.IsYearEnd(next) {
		s.snapshotYearEnd()
	}
	if next.Year() != from.Year() {
		s.apply(domain.YearRollover{FromYear: from.Year(), ToYear: next.Year()}, nil)
	}
}

// nextCheckpoint returns the earliest date after today that something
// scheduled happens, capped by the quarterly heartbeat, Dec 31 and the end
// date
func (s *SimulationState) nextCheckpoint() time.Time {
	next := s.EndDate
	consider := func(d time.Time) {
		if d.After(s.CurrentDate) && d.Before(next) {
			next = d
		}
	}

	for _, id := range s.eventOrder {
		event := s.events[id]
		if s.terminated[id] || s.exhausted(event) {
			continue
		}
		for _, d := range s.triggerDates(event.Trigger) {
			consider(d)
		}
	}
	for _, r := range s.repeating {
		if r.active && !r.next.IsZero() {
			consider(r.next)
		}
	}
	consider(dateutil.AddMonthsClamped(s.CurrentDate, heartbeatMonths))
	consider(dateutil.EndOfYear(s.CurrentDate))
	return next
}

// triggerDates lists the calendar dates a trigger is waiting for
func (s *SimulationState) triggerDates(trigger domain.Trigger) []time.Time {
	switch t := trigger.(type) {
	case domain.OnDate:
		return []time.Time{t.Date}
	case domain.AtAge:
		return []time.Time{dateutil.DateAtAge(s.BirthDate, t.Years, t.Months)}
	case domain.RelativeToEvent:
		if fired, ok := s.triggered[t.Event]; ok {
			return []time.Time{applyOffset(fired, t.Offset)}
		}
	case domain.And:
		return s.childDates(t.Triggers)
	case domain.Or:
		return s.childDates(t.Triggers)
	case domain.Repeating:
		return s.childDates([]domain.Trigger{t.Start, t.End})
	}
	return nil
}

func (s *SimulationState) childDates(triggers []domain.Trigger) []time.Time {
	var dates []time.Time
	for _, t := range triggers {
		if t != nil {
			dates = append(dates, s.triggerDates(t)...)
		}
	}
	return dates
}

// growthEvents compounds every cash balance by its return profile and every
// debt by its interest rate from from to to
func (s *SimulationState) growthEvents(from, to time.Time, days int) []domain.StateEvent {
	var events []domain.StateEvent
	for _, id := range slices.Sorted(maps.Keys(s.Accounts)) {
		switch f := s.Accounts[id].Flavor.(type) {
		case *domain.Bank:
			if ev, ok := s.cashGrowth(id, f.Cash, from, to, days); ok {
				events = append(events, ev)
			}
		case *domain.Investment:
			if ev, ok := s.cashGrowth(id, f.Cash, from, to, days); ok {
				events = append(events, ev)
			}
		case *domain.Liability:
			if !f.Principal.IsPositive() || !f.InterestRate.IsPositive() {
				continue
			}
			factor := math.Pow(1+f.InterestRate.InexactFloat64(), float64(days)/365)
			events = append(events, domain.LiabilityInterestAccrual{
				Account:      id,
				Previous:     f.Principal,
				New:          scale(f.Principal, factor),
				InterestRate: f.InterestRate,
				Days:         days,
			})
		}
	}
	return events
}

func (s *SimulationState) cashGrowth(id domain.AccountID, cash domain.Cash, from, to time.Time, days int) (domain.StateEvent, bool) {
	if !cash.Value.IsPositive() {
		return nil, false
	}
	factor, err := s.growthFactor(from, to, cash.ReturnProfileID)
	if err != nil {
		s.logger.Debugf("no growth for account %d: %v", id, err)
		return nil, false
	}
	grown := scale(cash.Value, factor)
	if grown.Sub(cash.Value).Abs().LessThanOrEqual(appreciationEpsilon) {
		return nil, false
	}
	return domain.CashAppreciation{
		Account:  id,
		Previous: cash.Value,
		New:      grown,
		Return:   decimal.NewFromFloat(factor - 1),
		Days:     days,
	}, true
}

// growthFactor compounds profile from from to to, using each simulation
// year's rate for the days that fall in it
func (s *SimulationState) growthFactor(from, to time.Time, profile domain.ReturnProfileID) (float64, error) {
	factor := 1.0
	for cur := from; cur.Before(to); {
		year := dateutil.YearsBetween(s.StartDate, cur)
		end := dateutil.AddYearsClamped(s.StartDate, year+1)
		if end.After(to) || !end.After(cur) {
			end = to
		}
		m, err := s.Market.PeriodMultiplier(year, dateutil.DaysBetween(cur, end), profile)
		if err != nil {
			return 0, err
		}
		factor *= m
		cur = end
	}
	return factor, nil
}
