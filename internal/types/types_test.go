package types

import (
	"encoding/json"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStateCategory(t *testing.T) {
	tests := []struct {
		state State
		want  FilterState
	}{
		{StateUncompleted, FilterUncompleted},
		{StateCompleted, FilterCompleted},
		{StateInProgress, FilterInProgress},
		{State('-'), FilterUnknown},
		{State('?'), FilterUnknown},
	}
	for _, tt := range tests {
		if got := tt.state.Category(); got != tt.want {
			t.Errorf("State(%q).Category() = %q, want %q", tt.state.Char(), got, tt.want)
		}
	}
}

func TestStateText(t *testing.T) {
	for _, s := range []State{StateUncompleted, StateCompleted, StateInProgress, State('-'), State('X')} {
		b, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %q: %v", s.Char(), err)
		}
		var back State
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if back != s {
			t.Errorf("state %q came back as %q", s.Char(), back.Char())
		}
	}
	if _, err := ParseState("bogus"); err == nil {
		t.Error("expected error for multi-character unknown state")
	}

	tests := []struct {
		in   string
		want State
	}{
		{"X", State('X')},
		{"x", StateCompleted},
		{" ", StateUncompleted},
		{"/", StateInProgress},
		{"Done", StateCompleted},
		{" in_progress ", StateInProgress},
	}
	for _, tt := range tests {
		got, err := ParseState(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseState(%q) = %q, %v, want %q", tt.in, got.Char(), err, tt.want.Char())
		}
	}
}

func TestPriorityOrderAndSaturation(t *testing.T) {
	ps := Priorities()
	for i := 1; i < len(ps); i++ {
		if ps[i-1] >= ps[i] {
			t.Fatalf("priorities not ascending: %v", ps)
		}
	}
	var zero Priority
	if zero != PriorityNormal {
		t.Errorf("zero priority = %v, want normal", zero)
	}
	if PriorityHighest.Raise() != PriorityHighest || PriorityLowest.Lower() != PriorityLowest {
		t.Error("Raise/Lower must saturate")
	}
	if PriorityNormal.Raise() != PriorityMedium || PriorityNormal.Lower() != PriorityLow {
		t.Error("Raise/Lower must step by one level")
	}
	p, err := ParsePriority("High")
	if err != nil || p != PriorityHigh {
		t.Errorf("ParsePriority(High) = %v, %v", p, err)
	}
}

func TestBucketOf(t *testing.T) {
	now := time.Date(2025, 3, 5, 18, 30, 0, 0, time.Local)
	before, same, after := date(2025, 3, 4), date(2025, 3, 5), date(2025, 3, 6)

	tests := []struct {
		name string
		due  *time.Time
		want DueBucket
	}{
		{"nil", nil, DueNoDate},
		{"yesterday", &before, DueOverdue},
		{"today", &same, DueToday},
		{"tomorrow", &after, DueFuture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BucketOf(tt.due, now); got != tt.want {
				t.Errorf("BucketOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterAccept(t *testing.T) {
	now := date(2025, 3, 5)
	past := date(2025, 1, 1)

	f := Filter{States: []FilterState{FilterUncompleted}, Due: []DueBucket{DueOverdue}}
	if !f.Accept(StateUncompleted, &past, now) {
		t.Error("expected overdue uncompleted task to be accepted")
	}
	if f.Accept(StateCompleted, &past, now) {
		t.Error("completed task must be rejected")
	}
	if f.Accept(StateUncompleted, nil, now) {
		t.Error("undated task must be rejected")
	}
	if !FullFilter().Accept(State('-'), nil, now) {
		t.Error("full filter must accept unknown states without dates")
	}
	if DefaultFilter().Accept(StateCompleted, nil, now) {
		t.Error("default filter hides completed tasks")
	}
}

func TestDueItemDate(t *testing.T) {
	// 2025-03-05 is a Wednesday.
	wed := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	sat := time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)
	sun := time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		item DueItem
		now  time.Time
		want *time.Time
	}{
		{"today", DueTodayItem(), wed, ptr(date(2025, 3, 5))},
		{"tomorrow", DueTomorrowItem(), wed, ptr(date(2025, 3, 6))},
		{"weekend from wednesday", DueWeekendItem(), wed, ptr(date(2025, 3, 8))},
		{"weekend on saturday", DueWeekendItem(), sat, ptr(date(2025, 3, 8))},
		{"weekend on sunday", DueWeekendItem(), sun, ptr(date(2025, 3, 9))},
		{"next week from wednesday", DueNextWeekItem(), wed, ptr(date(2025, 3, 10))},
		{"next week from sunday", DueNextWeekItem(), sun, ptr(date(2025, 3, 10))},
		{"custom", DueOn(time.Date(2025, 4, 1, 15, 0, 0, 0, time.UTC)), wed, ptr(date(2025, 4, 1))},
		{"no date", DueNoDateItem(), wed, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.item.Date(tt.now)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDueItem(t *testing.T) {
	d, err := ParseDueItem("2025-02-28")
	if err != nil {
		t.Fatalf("ParseDueItem: %v", err)
	}
	if d.Kind != DueKindCustom || d.String() != "2025-02-28" {
		t.Errorf("unexpected item %+v", d)
	}
	if _, err := ParseDueItem("2025-02-30"); err == nil {
		t.Error("expected error for impossible date")
	}
	if p := DuePatch(DueNoDateItem()); !p.IsClear() {
		t.Error("no date must clear the field")
	}
	if p := DuePatch(DueTodayItem()); !p.IsSet() {
		t.Error("today must set the field")
	}
}

func TestValuePatch(t *testing.T) {
	var unset ValuePatch[string]
	if !unset.IsUnset() {
		t.Error("zero value must be unset")
	}
	if _, ok := ClearValue[string]().Value(); ok {
		t.Error("clear carries no value")
	}
	if v, ok := SetValue("x").Value(); !ok || v != "x" {
		t.Errorf("SetValue().Value() = %q, %v", v, ok)
	}
}

func ptr[T any](v T) *T { return &v }
