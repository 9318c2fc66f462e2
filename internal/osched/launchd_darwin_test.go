//go:build darwin

package osched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPlistEscapesScriptPath(t *testing.T) {
	spec := calendarSpec{Minute: 0, Hour: 9, DayOfMonth: -1}
	plist := renderPlist("com.agentdeck.task.t1", "/Users/dev/a&b <data>/jobs/t1.sh", spec)

	assert.Contains(t, plist, "<string>/Users/dev/a&amp;b &lt;data&gt;/jobs/t1.sh</string>")
	assert.NotContains(t, plist, "a&b")
	assert.Contains(t, plist, "<key>Minute</key>\n\t\t\t<integer>0</integer>")
	assert.Contains(t, plist, "<key>Hour</key>\n\t\t\t<integer>9</integer>")
}

func TestRenderPlistWeekdayIntervals(t *testing.T) {
	spec := calendarSpec{Minute: 30, Hour: 18, DayOfMonth: -1, Weekdays: []int{1, 3}}
	plist := renderPlist("com.agentdeck.task.t2", "/tmp/jobs/t2.sh", spec)

	assert.Contains(t, plist, "<key>Weekday</key>\n\t\t\t<integer>1</integer>")
	assert.Contains(t, plist, "<key>Weekday</key>\n\t\t\t<integer>3</integer>")
}
