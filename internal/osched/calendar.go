package osched

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentdeck/agentdeck/internal/cron"
)

// calendarSpec is the subset of a cron expression the native
// schedulers consume: a clock time plus optional weekday or
// day-of-month constraints. -1 means wildcard.
type calendarSpec struct {
	Minute     int
	Hour       int
	DayOfMonth int
	Weekdays   []int // 0=Sunday; empty means every day
}

func parseCalendar(expr string) (calendarSpec, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return calendarSpec{}, fmt.Errorf("expected 5 cron fields, got %d", len(fields))
	}
	spec := calendarSpec{Minute: -1, Hour: -1, DayOfMonth: -1}

	var err error
	if fields[0] != "*" {
		if spec.Minute, err = strconv.Atoi(fields[0]); err != nil {
			return calendarSpec{}, fmt.Errorf("minute field %q: %w", fields[0], err)
		}
	}
	if fields[1] != "*" {
		if spec.Hour, err = strconv.Atoi(fields[1]); err != nil {
			return calendarSpec{}, fmt.Errorf("hour field %q: %w", fields[1], err)
		}
	}
	if fields[2] != "*" {
		if spec.DayOfMonth, err = strconv.Atoi(fields[2]); err != nil {
			return calendarSpec{}, fmt.Errorf("day-of-month field %q: %w", fields[2], err)
		}
	}
	if fields[4] != "*" {
		days, ok := cron.Weekdays(fields[4])
		if !ok {
			return calendarSpec{}, fmt.Errorf("day-of-week field %q", fields[4])
		}
		spec.Weekdays = days
	}
	return spec, nil
}

var systemdDayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// OnCalendar renders the spec as a systemd calendar event expression.
func (c calendarSpec) OnCalendar() string {
	minute := "*"
	if c.Minute >= 0 {
		minute = fmt.Sprintf("%02d", c.Minute)
	}
	hour := "*"
	if c.Hour >= 0 {
		hour = fmt.Sprintf("%02d", c.Hour)
	}
	day := "*"
	if c.DayOfMonth >= 0 {
		day = fmt.Sprintf("%02d", c.DayOfMonth)
	}

	date := fmt.Sprintf("*-*-%s %s:%s:00", day, hour, minute)
	if len(c.Weekdays) == 0 {
		return date
	}
	names := make([]string, len(c.Weekdays))
	for i, d := range c.Weekdays {
		names[i] = systemdDayNames[d]
	}
	return strings.Join(names, ",") + " " + date
}
