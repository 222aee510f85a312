package entities

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	minutesPerDay = 24 * 60

	// LastWeekOfMonth selects the last occurrence of a weekday in its month.
	LastWeekOfMonth = -1

	// nextActiveHorizonDays bounds the NextActive search. Thirteen months covers
	// every ordinal-weekday and day-of-month combination at least once.
	nextActiveHorizonDays = 400
)

// TimeWindow is a recurring predicate over instants, evaluated on the wall clock of
// Location. Start is inclusive and End exclusive, both in minutes since midnight.
// Empty Weekdays or DaysOfMonth mean every day; a zero WeekOfMonth means every week.
type TimeWindow struct {
	Weekdays    []time.Weekday
	WeekOfMonth int
	DaysOfMonth []int
	Start       int
	End         int
	Location    *time.Location
}

// NewTimeWindow returns a window covering every day, all day long, in loc.
func NewTimeWindow(loc *time.Location) TimeWindow {
	return TimeWindow{Start: 0, End: minutesPerDay, Location: loc}
}

// Validate checks the window can be evaluated. Invalid windows are never active.
func (w TimeWindow) Validate() error {
	if w.Location == nil {
		return fmt.Errorf("%w: window has no timezone", ErrInvalidWindowSpec)
	}
	if w.Start < 0 || w.End > minutesPerDay || w.Start >= w.End {
		return fmt.Errorf("%w: empty time range [%s, %s)",
			ErrInvalidWindowSpec, FormatClock(w.Start), FormatClock(w.End))
	}
	if w.WeekOfMonth < LastWeekOfMonth || w.WeekOfMonth > 5 {
		return fmt.Errorf("%w: week of month %d out of range", ErrInvalidWindowSpec, w.WeekOfMonth)
	}
	for _, day := range w.DaysOfMonth {
		if day < 1 || day > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidWindowSpec, day)
		}
	}
	for _, weekday := range w.Weekdays {
		if weekday < time.Sunday || weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidWindowSpec, weekday)
		}
	}
	return nil
}

// IsActive reports whether instant falls inside the window. A malformed window
// fails closed.
func (w TimeWindow) IsActive(instant time.Time) bool {
	if w.Validate() != nil {
		return false
	}
	local := instant.In(w.Location)
	if !w.matchesDay(local) {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= w.Start && minute < w.End
}

// matchesDay checks the calendar part of the window against a local date.
func (w TimeWindow) matchesDay(local time.Time) bool {
	if len(w.Weekdays) > 0 && !slices.Contains(w.Weekdays, local.Weekday()) {
		return false
	}
	if len(w.DaysOfMonth) > 0 && !slices.Contains(w.DaysOfMonth, local.Day()) {
		return false
	}
	switch {
	case w.WeekOfMonth == LastWeekOfMonth:
		return IsLastWeekdayOfMonth(local)
	case w.WeekOfMonth > 0:
		return WeekdayOrdinal(local) == w.WeekOfMonth
	}
	return true
}

// Schedule is a list of windows joined by OR. An empty schedule is always active.
type Schedule []TimeWindow

// IsAlways reports whether the schedule places no restriction.
func (s Schedule) IsAlways() bool {
	return len(s) == 0
}

// IsActive reports whether any window of the schedule contains instant.
func (s Schedule) IsActive(instant time.Time) bool {
	if s.IsAlways() {
		return true
	}
	for _, window := range s {
		if window.IsActive(instant) {
			return true
		}
	}
	return false
}

// Validate checks every window of the schedule.
func (s Schedule) Validate() error {
	for i, window := range s {
		if err := window.Validate(); err != nil {
			return fmt.Errorf("window %d: %w", i, err)
		}
	}
	return nil
}

// IsActiveWithin reports whether instant lies inside both the global schedule and
// the rule schedule. The intersection is never wider than either schedule.
func IsActiveWithin(global, rule Schedule, instant time.Time) bool {
	return global.IsActive(instant) && rule.IsActive(instant)
}

// NextActive returns the earliest instant at or after from that lies inside both
// schedules, at minute granularity. The boolean is false when the schedules do
// not coincide within the search horizon.
func NextActive(global, rule Schedule, from time.Time) (time.Time, bool) {
	if IsActiveWithin(global, rule, from) {
		return from, true
	}

	loc := scheduleLocation(global, rule)
	left := expandAlways(global, loc)
	right := expandAlways(rule, loc)

	local := from.In(loc)
	for offset := range nextActiveHorizonDays {
		day := time.Date(local.Year(), local.Month(), local.Day()+offset, 0, 0, 0, 0, loc)
		if found, ok := earliestOnDay(left, right, global, rule, day, from); ok {
			return found, true
		}
	}
	return time.Time{}, false
}

// earliestOnDay finds the first instant on day inside every pairwise overlap.
func earliestOnDay(left, right, global, rule Schedule, day, from time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, g := range left {
		if g.Validate() != nil || !g.matchesDay(day) {
			continue
		}
		for _, r := range right {
			if r.Validate() != nil || !r.matchesDay(day) {
				continue
			}
			start := max(g.Start, r.Start)
			end := min(g.End, r.End)
			if start >= end {
				continue
			}
			candidate, ok := firstActiveMinute(global, rule, day, start, end, from)
			if ok && (!found || candidate.Before(best)) {
				best = candidate
				found = true
			}
		}
	}
	return best, found
}

// firstActiveMinute walks the overlap [start, end) of day minute by minute and
// returns the first instant confirmed by IsActiveWithin. Confirming each step
// keeps DST gaps and folds honest.
func firstActiveMinute(global, rule Schedule, day time.Time, start, end int, from time.Time) (time.Time, bool) {
	floor := from.Truncate(time.Minute)
	for minute := start; minute < end; minute++ {
		instant := time.Date(day.Year(), day.Month(), day.Day(), 0, minute, 0, 0, day.Location())
		if instant.Before(floor) {
			continue
		}
		if instant.Before(from) {
			instant = from
		}
		if IsActiveWithin(global, rule, instant) {
			return instant, true
		}
	}
	return time.Time{}, false
}

// scheduleLocation returns the first zone found in either schedule, UTC otherwise.
func scheduleLocation(schedules ...Schedule) *time.Location {
	for _, schedule := range schedules {
		for _, window := range schedule {
			if window.Location != nil {
				return window.Location
			}
		}
	}
	return time.UTC
}

func expandAlways(schedule Schedule, loc *time.Location) Schedule {
	if schedule.IsAlways() {
		return Schedule{NewTimeWindow(loc)}
	}
	return schedule
}

// WeekdayOrdinal returns which occurrence of its weekday t is within its month
// (1 for the first Thursday, 2 for the second, ...).
func WeekdayOrdinal(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

// IsLastWeekdayOfMonth reports whether no later day in the month shares t's weekday.
func IsLastWeekdayOfMonth(t time.Time) bool {
	return t.Day()+7 > DaysInMonth(t.Year(), t.Month())
}

// DaysInMonth returns the number of days in month of year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NthWeekdayOfMonth returns the date of the n-th weekday of month in loc, or the
// last one when n is LastWeekOfMonth. The boolean is false when the month has no
// such day (e.g. a fifth Monday).
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, n int, loc *time.Location) (time.Time, bool) {
	if n == LastWeekOfMonth {
		last := time.Date(year, month, DaysInMonth(year, month), 0, 0, 0, 0, loc)
		back := (int(last.Weekday()) - int(weekday) + 7) % 7
		return last.AddDate(0, 0, -back), true
	}
	if n < 1 {
		return time.Time{}, false
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	forward := (int(weekday) - int(first.Weekday()) + 7) % 7
	day := 1 + forward + (n-1)*7
	if day > DaysInMonth(year, month) {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc), true
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// String renders the window in the schedule grammar accepted by ParseTimeWindow.
func (w TimeWindow) String() string {
	var days, clock []string
	switch {
	case w.WeekOfMonth != 0 && len(w.Weekdays) == 1:
		days = append(days, fmt.Sprintf("on the %s %s of the month",
			ordinalNames[w.WeekOfMonth], strings.ToLower(w.Weekdays[0].String())))
	case len(w.Weekdays) > 0:
		names := make([]string, 0, len(w.Weekdays))
		for _, weekday := range w.Weekdays {
			names = append(names, strings.ToLower(weekday.String()))
		}
		days = append(days, "on "+strings.Join(names, " and "))
	}
	for _, day := range w.DaysOfMonth {
		days = append(days, fmt.Sprintf("on the %s day of the month", dayOrdinal(day)))
	}
	if w.Start > 0 {
		clock = append(clock, "after "+FormatClock(w.Start))
	}
	if w.End < minutesPerDay {
		clock = append(clock, "before "+FormatClock(w.End))
	}

	var parts []string
	for _, group := range [][]string{days, clock} {
		if len(group) > 0 {
			parts = append(parts, strings.Join(group, " and "))
		}
	}
	if len(parts) == 0 {
		return anyTime
	}
	return strings.Join(parts, " ")
}

// Strings renders every window of the schedule; an empty schedule is "at any time".
func (s Schedule) Strings() []string {
	if s.IsAlways() {
		return []string{anyTime}
	}
	rendered := make([]string, 0, len(s))
	for _, window := range s {
		rendered = append(rendered, window.String())
	}
	return rendered
}

var ordinalNames = map[int]string{
	1: "first", 2: "second", 3: "third", 4: "fourth", 5: "fifth", LastWeekOfMonth: "last",
}

func dayOrdinal(day int) string {
	suffix := "th"
	switch {
	case day%100 >= 11 && day%100 <= 13:
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", day, suffix)
}
