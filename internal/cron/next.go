package cron

import (
	"strconv"
	"strings"
	"time"

	robcron "github.com/robfig/cron/v3"
)

// searchHorizon bounds the day-by-day constraint walk. A valid
// day-of-week set matches within 7 days and a day-of-month within 31;
// the horizon only matters for nonsense fields like "0 9 32 * *".
const searchHorizon = 366

// Next computes the next fire time for a 5-field cron expression,
// starting from now. The hour and minute fields pin the clock time
// (a * leaves the current value), seconds are zeroed, and the candidate
// is pushed forward a day at a time until it is strictly in the future
// and satisfies the day-of-week and day-of-month constraints.
//
// The boolean is false when the expression cannot be interpreted;
// callers must treat that as "next run unknown", not as an error.
func Next(expr string, now time.Time) (time.Time, bool) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return time.Time{}, false
	}
	minuteField, hourField, domField, _, dowField := fields[0], fields[1], fields[2], fields[3], fields[4]

	hour := now.Hour()
	minute := now.Minute()
	if hourField != "*" {
		h, err := strconv.Atoi(hourField)
		if err != nil {
			return time.Time{}, false
		}
		hour = h
	}
	if minuteField != "*" {
		m, err := strconv.Atoi(minuteField)
		if err != nil {
			return time.Time{}, false
		}
		minute = m
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	if dowField != "*" {
		days, ok := parseDaySet(dowField)
		if !ok {
			return time.Time{}, false
		}
		matched := false
		for i := 0; i < 7; i++ {
			if days[int(next.Weekday())] {
				matched = true
				break
			}
			next = next.AddDate(0, 0, 1)
		}
		if !matched {
			return time.Time{}, false
		}
	}

	if domField != "*" {
		want, err := strconv.Atoi(domField)
		if err != nil || want < 1 || want > 31 {
			return time.Time{}, false
		}
		matched := false
		for i := 0; i < searchHorizon; i++ {
			if next.Day() == want {
				matched = true
				break
			}
			next = next.AddDate(0, 0, 1)
		}
		if !matched {
			return time.Time{}, false
		}
	}

	return next, true
}

// parseDaySet accepts the day-of-week shapes the task editor emits:
// a literal digit, a comma list ("1,3,5") or a range ("1-5").
func parseDaySet(field string) (map[int]bool, bool) {
	days := make(map[int]bool)
	if from, to, ok := strings.Cut(field, "-"); ok {
		lo, err1 := strconv.Atoi(from)
		hi, err2 := strconv.Atoi(to)
		if err1 != nil || err2 != nil || lo < 0 || hi > 6 || lo > hi {
			return nil, false
		}
		for d := lo; d <= hi; d++ {
			days[d] = true
		}
		return days, true
	}
	for _, part := range strings.Split(field, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || d < 0 || d > 6 {
			return nil, false
		}
		days[d] = true
	}
	return days, true
}

// Weekdays expands a day-of-week field into a sorted list of weekday
// numbers (0=Sunday). Used by the native scheduler adapters to derive
// calendar triggers from the same grammar Next understands.
func Weekdays(field string) ([]int, bool) {
	set, ok := parseDaySet(field)
	if !ok {
		return nil, false
	}
	out := make([]int, 0, len(set))
	for d := 0; d <= 6; d++ {
		if set[d] {
			out = append(out, d)
		}
	}
	return out, true
}

// Validate reports whether expr is an acceptable 5-field cron
// expression. Used at the API boundary so unparseable schedules are
// rejected before they reach the store.
func Validate(expr string) error {
	parser := robcron.NewParser(robcron.Minute | robcron.Hour | robcron.Dom | robcron.Month | robcron.Dow)
	_, err := parser.Parse(expr)
	return err
}
