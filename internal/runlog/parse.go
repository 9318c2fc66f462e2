package runlog

import (
	"os"
	"strings"

	"github.com/agentdeck/agentdeck/internal/task"
)

// UnknownStart is the startedAt value assigned to content written
// before marker lines existed (legacy logs).
const UnknownStart = "Unknown"

// History is a task's reconstructed run history.
type History struct {
	Runs    []task.Run `json:"runs"`
	RawLogs string     `json:"rawLogs"`
}

// ParseFiles reads a task's log file and, when present, its sibling
// error log, and reconstructs the run history. A missing log file
// yields an empty history, not an error; a missing error log is simply
// skipped. Read failures other than absence degrade the same way so
// status display never breaks the caller.
func ParseFiles(logPath, errorLogPath string) History {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return History{}
	}
	content := string(data)
	if errData, err := os.ReadFile(errorLogPath); err == nil && len(errData) > 0 {
		return Parse(content, string(errData))
	}
	return Parse(content, "")
}

// Parse reconstructs runs from raw log content. Each segment between a
// start marker and the next start marker (or end of input) is one run;
// a completion marker inside the segment closes it. Content before the
// first start marker — the pre-marker legacy format — becomes a single
// run with an unknown start time. Error-log content, when non-empty, is
// appended to the most recent run under a separator so the UI shows
// stderr alongside the run it most plausibly belongs to.
func Parse(content, errorContent string) History {
	h := History{RawLogs: content}
	if strings.TrimSpace(content) == "" && strings.TrimSpace(errorContent) == "" {
		return h
	}

	starts := startMarkerRe.FindAllStringSubmatchIndex(content, -1)
	if len(starts) == 0 {
		if strings.TrimSpace(content) != "" {
			h.Runs = append(h.Runs, buildRun(UnknownStart, content))
		}
	} else {
		if head := content[:starts[0][0]]; strings.TrimSpace(head) != "" {
			h.Runs = append(h.Runs, buildRun(UnknownStart, head))
		}
		for i, loc := range starts {
			end := len(content)
			if i+1 < len(starts) {
				end = starts[i+1][0]
			}
			startedAt := content[loc[2]:loc[3]]
			segment := content[loc[1]:end]
			h.Runs = append(h.Runs, buildRun(startedAt, segment))
		}
	}

	if strings.TrimSpace(errorContent) != "" {
		if len(h.Runs) == 0 {
			h.Runs = append(h.Runs, buildRun(UnknownStart, ""))
		}
		last := &h.Runs[len(h.Runs)-1]
		// Status is inferred before the separator is added: the
		// separator line itself contains "Error" and must not count.
		if last.Status == task.RunStatusSuccess {
			last.Status = inferStatus(errorContent)
		}
		last.Content = strings.TrimRight(last.Content, "\n") + "\n\n" + errorLogSeparator + "\n" + errorContent
	}

	return h
}

// LastStatus infers the status of the most recent run by scanning only
// the text after the last start marker. An error logged by an earlier
// run must not poison the status of a later successful one.
func LastStatus(content string) task.RunStatus {
	tail := content
	if starts := startMarkerRe.FindAllStringIndex(content, -1); len(starts) > 0 {
		tail = content[starts[len(starts)-1][1]:]
	}
	return inferStatus(tail)
}

// LastStatusFromFiles is LastStatus over the most recent run in the
// files on disk; absence reads as success so empty histories display
// cleanly.
func LastStatusFromFiles(logPath, errorLogPath string) task.RunStatus {
	h := ParseFiles(logPath, errorLogPath)
	if len(h.Runs) == 0 {
		return task.RunStatusSuccess
	}
	return h.Runs[len(h.Runs)-1].Status
}

func buildRun(startedAt, segment string) task.Run {
	run := task.Run{
		StartedAt: startedAt,
		Status:    inferStatus(segment),
	}
	if m := completeMarkerRe.FindStringSubmatch(segment); m != nil {
		run.CompletedAt = m[1]
	}
	run.Content = strings.Trim(stripMarkers(segment), "\n")
	return run
}

func stripMarkers(segment string) string {
	return completeMarkerRe.ReplaceAllString(segment, "")
}

// inferStatus looks for the two case-sensitive substrings the agent CLI
// and the shell actually emit on failure.
func inferStatus(text string) task.RunStatus {
	if strings.Contains(text, "error") || strings.Contains(text, "Error") {
		return task.RunStatusError
	}
	return task.RunStatusSuccess
}
