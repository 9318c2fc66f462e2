// Package cron translates the restricted cron grammar produced by the
// task editor into human phrases and concrete next-fire times. The
// grammar covers *, literal integers, comma lists and (for day-of-week)
// a start-end range; anything richer passes through untranslated.
package cron

import (
	"fmt"
	"strconv"
	"strings"
)

var dayNames = map[string]string{
	"0": "Sunday",
	"1": "Monday",
	"2": "Tuesday",
	"3": "Wednesday",
	"4": "Thursday",
	"5": "Friday",
	"6": "Saturday",
}

// Describe renders a 5-field cron expression as an English phrase.
// Unrecognized shapes, including anything with an explicit month,
// comma lists, or slash steps, are returned unchanged. Describe never
// fails: the raw input is always an acceptable answer.
func Describe(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]

	if minute == "*" && hour == "*" {
		return "Every minute"
	}

	if hour == "*" && dom == "*" && month == "*" && dow == "*" {
		if minute == "0" {
			return "Every hour"
		}
		m, err := strconv.Atoi(minute)
		if err != nil {
			return expr
		}
		return fmt.Sprintf("Every hour at :%02d", m)
	}

	clock, ok := clockPhrase(hour, minute)
	if !ok {
		return expr
	}

	if dom == "*" && month == "*" && dow == "*" {
		return "Daily at " + clock
	}

	if dow == "1-5" && dom == "*" && month == "*" {
		return "Weekdays at " + clock
	}

	if dom == "*" && month == "*" && len(dow) == 1 && dow != "*" && isDigits(dow) {
		name, known := dayNames[dow]
		if !known {
			name = dow
		}
		return fmt.Sprintf("%ss at %s", name, clock)
	}

	if dom != "*" && month == "*" && dow == "*" && isDigits(dom) {
		day, err := strconv.Atoi(dom)
		if err != nil {
			return expr
		}
		return fmt.Sprintf("Monthly on the %d%s at %s", day, ordinalSuffix(day), clock)
	}

	return expr
}

// clockPhrase renders hour/minute fields on a 12-hour clock. Hour 0 is
// 12 AM and hour 12 is 12 PM.
func clockPhrase(hourField, minuteField string) (string, bool) {
	hour, err := strconv.Atoi(hourField)
	if err != nil {
		return "", false
	}
	minute := 0
	if minuteField != "*" {
		minute, err = strconv.Atoi(minuteField)
		if err != nil {
			return "", false
		}
	}

	period := "AM"
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour == 12:
		period = "PM"
	case hour > 12:
		display = hour - 12
		period = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, period), true
}

// ordinalSuffix implements the shipped suffix rule, which keys off the
// last digit only. That renders 11, 12 and 13 as "11st", "12nd" and
// "13rd" — a long-standing quirk preserved deliberately for parity with
// existing schedules; see DESIGN.md.
func ordinalSuffix(n int) string {
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
