package entities

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const anyTime = "at any time"

const weekdayAlternation = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`

var (
	clausePattern = regexp.MustCompile(
		`\b(after|before)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?(?:\s|$)`)
	ordinalWeekdayPattern = regexp.MustCompile(
		`\bon\s+the\s+(first|second|third|fourth|fifth|last|1st|2nd|3rd|4th|5th)\s+(` +
			weekdayAlternation + `)\s+of\s+the\s+month\b`)
	dayOfMonthPattern = regexp.MustCompile(
		`\bon\s+the\s+(first|\d{1,2}(?:st|nd|rd|th))\s+day\s+of\s+the\s+month\b`)
	everyPattern  = regexp.MustCompile(`\bevery\s+(weekday|weekend)\b`)
	onDaysPattern = regexp.MustCompile(
		`\bon\s+((?:` + weekdayAlternation + `)s?(?:\s*(?:,|\band\b)\s*(?:` + weekdayAlternation + `)s?)*)`)
	weekdayPattern = regexp.MustCompile(weekdayAlternation)
	leftoverPattern = regexp.MustCompile(`\band\b|,`)
)

// ParseSchedule parses a list of schedule expressions into a Schedule joined by OR.
// Any expression equal to "at any time" makes the whole schedule unrestricted.
func ParseSchedule(expressions []string, loc *time.Location) (Schedule, error) {
	schedule := Schedule{}
	for _, expression := range expressions {
		windows, err := ParseTimeWindow(expression, loc)
		if err != nil {
			return nil, err
		}
		if windows == nil {
			return Schedule{}, nil
		}
		schedule = append(schedule, windows...)
	}
	return schedule, nil
}

// ParseTimeWindow parses one expression such as "on tuesday before 10:00" or
// "on the first thursday of the month after 09:00 and before 12:00". An overnight
// range without a day clause ("after 22:00 and before 06:00") yields two windows.
// A nil result with no error means "at any time".
func ParseTimeWindow(expression string, loc *time.Location) ([]TimeWindow, error) {
	text := strings.Join(strings.Fields(strings.ToLower(expression)), " ")
	if text == "" {
		return nil, fmt.Errorf("%w: empty schedule expression", ErrInvalidWindowSpec)
	}
	if text == anyTime {
		return nil, nil
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: %q has no timezone", ErrInvalidWindowSpec, expression)
	}

	window := NewTimeWindow(loc)
	hasAfter, hasBefore, hasDays := false, false, false
	var err error

	text, err = consume(text, ordinalWeekdayPattern, func(groups []string) error {
		ordinal, ordinalErr := ParseOrdinal(groups[1])
		if ordinalErr != nil {
			return ordinalErr
		}
		if hasDays {
			return fmt.Errorf("duplicate \"of the month\" clause")
		}
		weekday, _ := ParseWeekday(groups[2])
		window.WeekOfMonth = ordinal
		window.Weekdays = append(window.Weekdays, weekday)
		hasDays = true
		return nil
	})
	if err != nil {
		return nil, scheduleError(expression, err)
	}

	text, err = consume(text, dayOfMonthPattern, func(groups []string) error {
		day, dayErr := ParseDayOfMonth(groups[1])
		if dayErr != nil {
			return dayErr
		}
		window.DaysOfMonth = append(window.DaysOfMonth, day)
		return nil
	})
	if err != nil {
		return nil, scheduleError(expression, err)
	}

	text, err = consume(text, everyPattern, func(groups []string) error {
		if hasDays {
			return fmt.Errorf("conflicting day clauses")
		}
		hasDays = true
		if groups[1] == "weekend" {
			window.Weekdays = []time.Weekday{time.Saturday, time.Sunday}
			return nil
		}
		window.Weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
		return nil
	})
	if err != nil {
		return nil, scheduleError(expression, err)
	}

	text, err = consume(text, onDaysPattern, func(groups []string) error {
		if hasDays {
			return fmt.Errorf("conflicting day clauses")
		}
		hasDays = true
		for _, name := range weekdayPattern.FindAllString(groups[1], -1) {
			weekday, _ := ParseWeekday(name)
			window.Weekdays = append(window.Weekdays, weekday)
		}
		return nil
	})
	if err != nil {
		return nil, scheduleError(expression, err)
	}

	text, err = consume(text, clausePattern, func(groups []string) error {
		minutes, clockErr := parseClockParts(groups[2], groups[3], groups[4])
		if clockErr != nil {
			return clockErr
		}
		if groups[1] == "after" {
			if hasAfter {
				return fmt.Errorf("duplicate \"after\" clause")
			}
			hasAfter = true
			window.Start = minutes
			return nil
		}
		if hasBefore {
			return fmt.Errorf("duplicate \"before\" clause")
		}
		hasBefore = true
		window.End = minutes
		return nil
	})
	if err != nil {
		return nil, scheduleError(expression, err)
	}

	if leftover := strings.TrimSpace(leftoverPattern.ReplaceAllString(text, " ")); leftover != "" {
		return nil, fmt.Errorf("%w: %q: unrecognised text %q", ErrInvalidWindowSpec, expression, leftover)
	}

	if hasAfter && hasBefore && window.Start == window.End {
		return nil, fmt.Errorf("%w: %q: \"after\" and \"before\" give an empty range", ErrInvalidWindowSpec, expression)
	}
	if hasAfter && hasBefore && window.Start > window.End {
		if hasDays || len(window.DaysOfMonth) > 0 {
			return nil, fmt.Errorf("%w: %q: overnight ranges cannot be combined with day clauses",
				ErrInvalidWindowSpec, expression)
		}
		evening := window
		evening.End = minutesPerDay
		morning := window
		morning.Start = 0
		return []TimeWindow{evening, morning}, nil
	}

	if validateErr := window.Validate(); validateErr != nil {
		return nil, fmt.Errorf("%q: %w", expression, validateErr)
	}
	return []TimeWindow{window}, nil
}

// consume applies handle to every match of pattern and blanks the matched text.
func consume(text string, pattern *regexp.Regexp, handle func(groups []string) error) (string, error) {
	for _, groups := range pattern.FindAllStringSubmatch(text, -1) {
		if err := handle(groups); err != nil {
			return text, err
		}
	}
	return pattern.ReplaceAllString(text, " "), nil
}

func scheduleError(expression string, err error) error {
	return fmt.Errorf("%w: %q: %w", ErrInvalidWindowSpec, expression, err)
}

// ParseWeekday converts an English weekday name (optionally plural) to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	value := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "s")
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.ToLower(day.String()) == value {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: unknown weekday %q", ErrInvalidWindowSpec, name)
}

// ParseOrdinal converts "first".."fifth", "1st".."5th" or "last" to a week-of-month value.
func ParseOrdinal(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "first", "1st", "1":
		return 1, nil
	case "second", "2nd", "2":
		return 2, nil
	case "third", "3rd", "3":
		return 3, nil
	case "fourth", "4th", "4":
		return 4, nil
	case "fifth", "5th", "5":
		return 5, nil
	case "last", "-1":
		return LastWeekOfMonth, nil
	}
	return 0, fmt.Errorf("%w: unknown ordinal %q", ErrInvalidWindowSpec, raw)
}

// ParseDayOfMonth converts "first", "15th" or "15" to a day number.
func ParseDayOfMonth(raw string) (int, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "first" {
		return 1, nil
	}
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		value = strings.TrimSuffix(value, suffix)
	}
	day, err := strconv.Atoi(value)
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("%w: invalid day of month %q", ErrInvalidWindowSpec, raw)
	}
	return day, nil
}

// ParseClock converts "09:00", "9am", "4:30pm" or "24:00" to minutes since midnight.
func ParseClock(raw string) (int, error) {
	value := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	meridiem := ""
	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(value, suffix) {
			meridiem = suffix
			value = strings.TrimSuffix(value, suffix)
		}
	}
	hours, minutes, _ := strings.Cut(value, ":")
	return parseClockParts(hours, minutes, meridiem)
}

func parseClockParts(hoursText, minutesText, meridiem string) (int, error) {
	hours, err := strconv.Atoi(hoursText)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid hour %q", ErrInvalidWindowSpec, hoursText)
	}
	minutes := 0
	if minutesText != "" {
		minutes, err = strconv.Atoi(minutesText)
		if err != nil || minutes < 0 || minutes > 59 {
			return 0, fmt.Errorf("%w: invalid minutes %q", ErrInvalidWindowSpec, minutesText)
		}
	}

	switch meridiem {
	case "am", "pm":
		if hours < 1 || hours > 12 {
			return 0, fmt.Errorf("%w: invalid 12-hour clock %d%s", ErrInvalidWindowSpec, hours, meridiem)
		}
		hours %= 12
		if meridiem == "pm" {
			hours += 12
		}
	default:
		if hours < 0 || hours > 24 || (hours == 24 && minutes != 0) {
			return 0, fmt.Errorf("%w: invalid hour %d", ErrInvalidWindowSpec, hours)
		}
	}
	return hours*60 + minutes, nil
}
