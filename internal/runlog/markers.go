// Package runlog reconstructs a task's run history from its append-only
// log file. Runs are delimited by marker lines the job script prints
// around the agent invocation; no state beyond the log is consulted, so
// the history survives runs started by the native scheduler in process
// trees this application never owned.
package runlog

import (
	"fmt"
	"regexp"
	"time"
)

// The marker grammar is a stable mini-protocol shared with the script
// generator. Changing these literals breaks every previously written
// log, so additions must stay backward compatible: content that matches
// no marker parses as a single legacy run.
const (
	startMarkerFormat    = "=== Task started at %s ==="
	completeMarkerFormat = "=== Task completed at %s ==="
	errorLogSeparator    = "=== Error Log ==="

	// CompleteMarkerPrefix identifies a completion marker line without
	// its timestamp. Tailing code watches appended output for it.
	CompleteMarkerPrefix = "=== Task completed at"

	// MarkerTimeLayout is the timestamp format the job script embeds
	// in marker lines (the output of date(1) with a stable layout).
	MarkerTimeLayout = "Mon Jan  2 15:04:05 MST 2006"
)

var (
	startMarkerRe    = regexp.MustCompile(`=== Task started at (.+?) ===`)
	completeMarkerRe = regexp.MustCompile(`=== Task completed at (.+?) ===`)
)

// StartMarker renders the line the job script prints before invoking
// the agent.
func StartMarker(ts time.Time) string {
	return fmt.Sprintf(startMarkerFormat, ts.Format(MarkerTimeLayout))
}

// CompleteMarker renders the line printed after the agent exits.
func CompleteMarker(ts time.Time) string {
	return fmt.Sprintf(completeMarkerFormat, ts.Format(MarkerTimeLayout))
}
