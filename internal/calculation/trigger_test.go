package calculation

import (
	"errors"
	"testing"
	"time"

	"github.com/rpgo/finplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gte(v string) domain.Threshold { return domain.Threshold{Op: domain.GreaterOrEqual, Value: d(v)} }
func lte(v string) domain.Threshold { return domain.Threshold{Op: domain.LessOrEqual, Value: d(v)} }

func TestEvaluateTrigger_Simple(t *testing.T) {
	s := newState(t, flatConfig(bank(checking, "5000")))
	s.CurrentDate = date(2025, time.June, 1)
	s.triggered[7] = date(2025, time.May, 1)

	tests := []struct {
		name     string
		trigger  domain.Trigger
		expected TriggerOutcome
	}{
		{name: "immediate after the start date", trigger: domain.Immediate{}, expected: TriggerOutcome{Kind: NotTriggered}},
		{name: "date reached", trigger: domain.OnDate{Date: date(2025, time.June, 1)}, expected: TriggerOutcome{Kind: Triggered}},
		{name: "date passed", trigger: domain.OnDate{Date: date(2025, time.January, 1)}, expected: TriggerOutcome{Kind: Triggered}},
		{name: "date ahead", trigger: domain.OnDate{Date: date(2026, time.March, 1)},
			expected: TriggerOutcome{Kind: NextTriggerDate, Date: date(2026, time.March, 1)}},
		{name: "age reached", trigger: domain.AtAge{Years: 65}, expected: TriggerOutcome{Kind: Triggered}},
		{name: "age ahead", trigger: domain.AtAge{Years: 65, Months: 6},
			expected: TriggerOutcome{Kind: NextTriggerDate, Date: date(2025, time.July, 1)}},
		{name: "balance at threshold", trigger: domain.AccountBalance{Account: checking, Threshold: gte("5000")}, expected: TriggerOutcome{Kind: Triggered}},
		{name: "balance below threshold", trigger: domain.AccountBalance{Account: checking, Threshold: lte("4999")}, expected: TriggerOutcome{Kind: NotTriggered}},
		{name: "net worth", trigger: domain.NetWorth{Threshold: gte("1000")}, expected: TriggerOutcome{Kind: Triggered}},
		{name: "relative to unfired event", trigger: domain.RelativeToEvent{Event: 8}, expected: TriggerOutcome{Kind: NotTriggered}},
		{name: "relative offset elapsed", trigger: domain.RelativeToEvent{Event: 7, Offset: domain.Offset{Unit: domain.OffsetMonths, N: 1}},
			expected: TriggerOutcome{Kind: Triggered}},
		{name: "relative offset pending", trigger: domain.RelativeToEvent{Event: 7, Offset: domain.Offset{Unit: domain.OffsetYears, N: 1}},
			expected: TriggerOutcome{Kind: NextTriggerDate, Date: date(2026, time.May, 1)}},
		{name: "manual never fires", trigger: domain.Manual{}, expected: TriggerOutcome{Kind: NotTriggered}},
		{name: "empty and", trigger: domain.And{}, expected: TriggerOutcome{Kind: Triggered}},
		{name: "and with a pending date", trigger: domain.And{Triggers: []domain.Trigger{
			domain.AtAge{Years: 65},
			domain.OnDate{Date: date(2030, time.January, 1)},
		}}, expected: TriggerOutcome{Kind: NotTriggered}},
		{name: "or with one met", trigger: domain.Or{Triggers: []domain.Trigger{
			domain.Manual{},
			domain.NetWorth{Threshold: gte("1")},
		}}, expected: TriggerOutcome{Kind: Triggered}},
		{name: "empty or", trigger: domain.Or{}, expected: TriggerOutcome{Kind: NotTriggered}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := EvaluateTrigger(1, tt.trigger, s)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestEvaluateTrigger_ImmediateOnStart(t *testing.T) {
	s := newState(t, flatConfig())
	out, err := EvaluateTrigger(1, domain.Immediate{}, s)
	require.NoError(t, err)
	assert.True(t, out.Fires())
}

func TestEvaluateTrigger_LookupErrors(t *testing.T) {
	s := newState(t, flatConfig(bank(checking, "10")))

	_, err := EvaluateTrigger(1, domain.AccountBalance{Account: 99, Threshold: gte("0")}, s)
	assert.True(t, errors.Is(err, ErrAccountNotFound))

	_, err = EvaluateTrigger(1, domain.AssetBalance{Asset: domain.AssetCoord{AccountID: checking, AssetID: fund}, Threshold: gte("0")}, s)
	assert.True(t, errors.Is(err, ErrAssetNotFound))

	_, err = EvaluateTrigger(1, domain.Or{Triggers: []domain.Trigger{domain.AccountBalance{Account: 99}}}, s)
	assert.Error(t, err, "errors propagate through compound triggers")
}

func TestEvaluateTrigger_TerminatedNeverFires(t *testing.T) {
	s := newState(t, flatConfig())
	s.terminated[1] = true
	out, err := EvaluateTrigger(1, domain.Immediate{}, s)
	require.NoError(t, err)
	assert.Equal(t, NotTriggered, out.Kind)
}

func TestEvaluateTrigger_RepeatingLifecycle(t *testing.T) {
	s := newState(t, flatConfig())
	trigger := domain.Repeating{
		Interval: domain.MonthlyInterval,
		Start:    domain.OnDate{Date: date(2025, time.January, 31)},
		End:      domain.OnDate{Date: date(2025, time.May, 1)},
	}

	out, err := EvaluateTrigger(1, trigger, s)
	require.NoError(t, err)
	assert.Equal(t, TriggerOutcome{Kind: NextTriggerDate, Date: date(2025, time.January, 31)}, out, "waiting for the start condition")

	s.CurrentDate = date(2025, time.January, 31)
	out, err = EvaluateTrigger(1, trigger, s)
	require.NoError(t, err)
	assert.Equal(t, TriggerOutcome{Kind: StartRepeating, Date: date(2025, time.February, 28)}, out)
	s.repeating[1] = &repeatState{active: true, anchor: s.CurrentDate, next: out.Date}

	s.CurrentDate = date(2025, time.February, 15)
	out, err = EvaluateTrigger(1, trigger, s)
	require.NoError(t, err)
	assert.Equal(t, NotTriggered, out.Kind, "between occurrences")

	s.CurrentDate = date(2025, time.February, 28)
	out, err = EvaluateTrigger(1, trigger, s)
	require.NoError(t, err)
	assert.Equal(t, TriggerOutcome{Kind: TriggerRepeating, Date: date(2025, time.March, 31)}, out, "schedule counts from the anchor")

	s.repeating[1].active = false
	s.CurrentDate = date(2025, time.March, 31)
	out, err = EvaluateTrigger(1, trigger, s)
	require.NoError(t, err)
	assert.Equal(t, NotTriggered, out.Kind, "paused")

	s.CurrentDate = date(2025, time.May, 1)
	out, err = EvaluateTrigger(1, trigger, s)
	require.NoError(t, err)
	assert.Equal(t, StopRepeating, out.Kind)
}

func TestEvaluateTrigger_RepeatingMaxOccurrences(t *testing.T) {
	s := newState(t, flatConfig())
	trigger := domain.Repeating{Interval: domain.Weekly, MaxOccurrences: 2}
	s.repeating[1] = &repeatState{active: true, anchor: s.StartDate, next: s.StartDate}
	s.occurrences[1] = 2

	out, err := EvaluateTrigger(1, trigger, s)
	require.NoError(t, err)
	assert.Equal(t, StopRepeating, out.Kind)
}

func TestNextOccurrence(t *testing.T) {
	anchor := date(2024, time.January, 31)
	tests := []struct {
		interval domain.RepeatInterval
		current  time.Time
		expected time.Time
		ok       bool
	}{
		{interval: domain.Weekly, current: anchor, expected: date(2024, time.February, 7), ok: true},
		{interval: domain.BiWeekly, current: date(2024, time.February, 14), expected: date(2024, time.February, 28), ok: true},
		{interval: domain.MonthlyInterval, current: date(2024, time.February, 29), expected: date(2024, time.March, 31), ok: true},
		{interval: domain.Quarterly, current: anchor, expected: date(2024, time.April, 30), ok: true},
		{interval: domain.YearlyInterval, current: anchor, expected: date(2025, time.January, 31), ok: true},
		{interval: domain.Never, current: anchor, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.interval.String(), func(t *testing.T) {
			next, ok := nextOccurrence(anchor, tt.interval, tt.current)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}
