// Package types defines the task model shared by every provider, the CLI and the TUI.
package types

import (
	"fmt"
	"strings"
	"time"
)

// State is the checkbox character of a task: "- [ ]", "- [x]", "- [/]".
// Any other character is kept as an unknown state.
type State rune

const (
	StateUncompleted State = ' '
	StateCompleted   State = 'x'
	StateInProgress  State = '/'
)

// Char returns the checkbox character.
func (s State) Char() rune {
	return rune(s)
}

// Category maps the state onto the four filterable categories.
func (s State) Category() FilterState {
	switch s {
	case StateUncompleted:
		return FilterUncompleted
	case StateCompleted:
		return FilterCompleted
	case StateInProgress:
		return FilterInProgress
	default:
		return FilterUnknown
	}
}

// String returns a readable name; unknown states render as their character.
func (s State) String() string {
	if s.Category() == FilterUnknown {
		return fmt.Sprintf("unknown(%c)", rune(s))
	}
	return string(s.Category())
}

// MarshalText encodes known states by name and unknown ones by character.
func (s State) MarshalText() ([]byte, error) {
	if s.Category() == FilterUnknown {
		return []byte(string(rune(s))), nil
	}
	return []byte(s.Category()), nil
}

// UnmarshalText accepts what MarshalText produces plus "todo"/"done" aliases.
func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseState parses a single checkbox character or a state name. A single
// character is taken as is, so 'X' stays an unknown state.
func ParseState(v string) (State, error) {
	if r := []rune(v); len(r) == 1 {
		return State(r[0]), nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "uncompleted", "todo", "open":
		return StateUncompleted, nil
	case "completed", "done":
		return StateCompleted, nil
	case "in_progress", "in-progress", "started":
		return StateInProgress, nil
	}
	return StateUncompleted, fmt.Errorf("invalid state: %q", v)
}

// Priority is the six-level ordinal priority. The zero value is PriorityNormal.
type Priority int

const (
	PriorityLowest  Priority = -2
	PriorityLow     Priority = -1
	PriorityNormal  Priority = 0
	PriorityMedium  Priority = 1
	PriorityHigh    Priority = 2
	PriorityHighest Priority = 3
)

var priorityNames = map[Priority]string{
	PriorityLowest:  "lowest",
	PriorityLow:     "low",
	PriorityNormal:  "normal",
	PriorityMedium:  "medium",
	PriorityHigh:    "high",
	PriorityHighest: "highest",
}

// Priorities returns every level from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLowest, PriorityLow, PriorityNormal, PriorityMedium, PriorityHigh, PriorityHighest}
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Raise returns the next level up, saturating at PriorityHighest.
func (p Priority) Raise() Priority {
	if p >= PriorityHighest {
		return PriorityHighest
	}
	return p + 1
}

// Lower returns the next level down, saturating at PriorityLowest.
func (p Priority) Lower() Priority {
	if p <= PriorityLowest {
		return PriorityLowest
	}
	return p - 1
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	v, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePriority parses a priority name.
func ParsePriority(v string) (Priority, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for p, name := range priorityNames {
		if name == v {
			return p, nil
		}
	}
	return PriorityNormal, fmt.Errorf("invalid priority: %q", v)
}

// FilterState is the category a task state is filtered by.
type FilterState string

const (
	FilterCompleted   FilterState = "completed"
	FilterUncompleted FilterState = "uncompleted"
	FilterInProgress  FilterState = "in_progress"
	FilterUnknown     FilterState = "unknown"
)

// DueBucket classifies a due date relative to today.
type DueBucket string

const (
	DueOverdue DueBucket = "overdue"
	DueToday   DueBucket = "today"
	DueFuture  DueBucket = "future"
	DueNoDate  DueBucket = "no_date"
)

// Today returns the current calendar date as midnight UTC. All stored dates
// use this convention so they compare by calendar day.
func Today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// DateOf normalizes t to midnight UTC of its own calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BucketOf classifies due against the calendar date of now.
func BucketOf(due *time.Time, now time.Time) DueBucket {
	if due == nil {
		return DueNoDate
	}
	d, today := DateOf(*due), Today(now)
	switch {
	case d.Before(today):
		return DueOverdue
	case d.Equal(today):
		return DueToday
	default:
		return DueFuture
	}
}

// Filter selects tasks by state category and due bucket.
type Filter struct {
	States []FilterState `json:"states" yaml:"states"`
	Due    []DueBucket   `json:"due" yaml:"due"`
}

// FullFilter accepts everything.
func FullFilter() Filter {
	return Filter{
		States: []FilterState{FilterCompleted, FilterUncompleted, FilterInProgress, FilterUnknown},
		Due:    []DueBucket{DueOverdue, DueToday, DueFuture, DueNoDate},
	}
}

// DefaultFilter hides completed tasks.
func DefaultFilter() Filter {
	return Filter{
		States: []FilterState{FilterUncompleted, FilterInProgress},
		Due:    []DueBucket{DueOverdue, DueToday, DueFuture, DueNoDate},
	}
}

// Accept reports whether both the state category and the due bucket are selected.
func (f Filter) Accept(state State, due *time.Time, now time.Time) bool {
	return f.hasState(state.Category()) && f.hasDue(BucketOf(due, now))
}

func (f Filter) hasState(s FilterState) bool {
	for _, v := range f.States {
		if v == s {
			return true
		}
	}
	return false
}

func (f Filter) hasDue(b DueBucket) bool {
	for _, v := range f.Due {
		if v == b {
			return true
		}
	}
	return false
}

// ParseFilterState validates a state category name.
func ParseFilterState(v string) (FilterState, error) {
	switch s := FilterState(strings.ToLower(strings.TrimSpace(v))); s {
	case FilterCompleted, FilterUncompleted, FilterInProgress, FilterUnknown:
		return s, nil
	}
	return "", fmt.Errorf("invalid state filter: %q", v)
}

// ParseDueBucket validates a due bucket name.
func ParseDueBucket(v string) (DueBucket, error) {
	switch b := DueBucket(strings.ToLower(strings.TrimSpace(v))); b {
	case DueOverdue, DueToday, DueFuture, DueNoDate:
		return b, nil
	}
	return "", fmt.Errorf("invalid due filter: %q", v)
}
