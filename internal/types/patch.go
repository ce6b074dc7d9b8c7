package types

import (
	"fmt"
	"strings"
	"time"
)

// PatchKind says what a ValuePatch does to its field.
type PatchKind int

const (
	// PatchUnset leaves the field alone.
	PatchUnset PatchKind = iota
	// PatchClear removes the field's value.
	PatchClear
	// PatchSet replaces the field's value.
	PatchSet
)

// ValuePatch is a tri-state field update. The zero value is unset.
type ValuePatch[T any] struct {
	kind  PatchKind
	value T
}

// SetValue returns a patch that replaces the field with v.
func SetValue[T any](v T) ValuePatch[T] {
	return ValuePatch[T]{kind: PatchSet, value: v}
}

// ClearValue returns a patch that clears the field.
func ClearValue[T any]() ValuePatch[T] {
	return ValuePatch[T]{kind: PatchClear}
}

func (p ValuePatch[T]) Kind() PatchKind { return p.kind }
func (p ValuePatch[T]) IsSet() bool { return p.kind == PatchSet }
func (p ValuePatch[T]) IsClear() bool { return p.kind == PatchClear }
func (p ValuePatch[T]) IsUnset() bool { return p.kind == PatchUnset }

// Value returns the new value and whether the patch sets one.
func (p ValuePatch[T]) Value() (T, bool) {
	return p.value, p.kind == PatchSet
}

// DueKind names a relative or absolute due date choice.
type DueKind int

const (
	DueKindToday DueKind = iota
	DueKindTomorrow
	DueKindThisWeekend
	DueKindNextWeek
	DueKindNoDate
	DueKindCustom
)

// DueItem is a due date choice resolved against the current date.
type DueItem struct {
	Kind DueKind
	// Custom is used when Kind is DueKindCustom.
	Custom time.Time
}

func DueTodayItem() DueItem { return DueItem{Kind: DueKindToday} }
func DueTomorrowItem() DueItem { return DueItem{Kind: DueKindTomorrow} }
func DueWeekendItem() DueItem { return DueItem{Kind: DueKindThisWeekend} }
func DueNextWeekItem() DueItem { return DueItem{Kind: DueKindNextWeek} }
func DueNoDateItem() DueItem { return DueItem{Kind: DueKindNoDate} }
func DueOn(d time.Time) DueItem { return DueItem{Kind: DueKindCustom, Custom: d} }

// Date resolves the choice to a midnight UTC date, or nil for DueKindNoDate.
// ThisWeekend is Saturday of the current week (today on a weekend day);
// NextWeek is the coming Monday.
func (d DueItem) Date(now time.Time) *time.Time {
	today := Today(now)
	// Monday = 0
	wd := (int(today.Weekday()) + 6) % 7

	var out time.Time
	switch d.Kind {
	case DueKindToday:
		out = today
	case DueKindTomorrow:
		out = today.AddDate(0, 0, 1)
	case DueKindThisWeekend:
		if wd >= 5 {
			out = today
		} else {
			out = today.AddDate(0, 0, 5-wd)
		}
	case DueKindNextWeek:
		out = today.AddDate(0, 0, 7-wd)
	case DueKindCustom:
		out = DateOf(d.Custom)
	default:
		return nil
	}
	return &out
}

func (d DueItem) String() string {
	switch d.Kind {
	case DueKindToday:
		return "today"
	case DueKindTomorrow:
		return "tomorrow"
	case DueKindThisWeekend:
		return "weekend"
	case DueKindNextWeek:
		return "next_week"
	case DueKindNoDate:
		return "none"
	default:
		return d.Custom.Format(DateLayout)
	}
}

// DateLayout is the on-disk and CLI date format.
const DateLayout = "2006-01-02"

// ParseDueItem parses "today", "tomorrow", "weekend", "next_week", "none"
// or a YYYY-MM-DD date.
func ParseDueItem(v string) (DueItem, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "today":
		return DueTodayItem(), nil
	case "tomorrow":
		return DueTomorrowItem(), nil
	case "weekend", "this_weekend":
		return DueWeekendItem(), nil
	case "next_week", "next-week":
		return DueNextWeekItem(), nil
	case "none", "no_date", "":
		return DueNoDateItem(), nil
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(v))
	if err != nil {
		return DueItem{}, fmt.Errorf("invalid due date %q: %w", v, err)
	}
	return DueOn(t), nil
}

// DuePatch turns a due choice into a field patch: NoDate clears the date.
func DuePatch(d DueItem) ValuePatch[DueItem] {
	if d.Kind == DueKindNoDate {
		return ClearValue[DueItem]()
	}
	return SetValue(d)
}
