package runlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdeck/agentdeck/internal/task"
)

const sampleLog = `=== Task started at Mon Mar  9 09:00:00 UTC 2026 ===
checked 12 files, error in widget.go
=== Task completed at Mon Mar  9 09:01:30 UTC 2026 ===
=== Task started at Tue Mar 10 09:00:00 UTC 2026 ===
all checks passed
=== Task completed at Tue Mar 10 09:00:45 UTC 2026 ===
`

func TestParseSplitsRuns(t *testing.T) {
	h := Parse(sampleLog, "")
	require.Len(t, h.Runs, 2)

	assert.Equal(t, "Mon Mar  9 09:00:00 UTC 2026", h.Runs[0].StartedAt)
	assert.Equal(t, "Mon Mar  9 09:01:30 UTC 2026", h.Runs[0].CompletedAt)
	assert.Equal(t, task.RunStatusError, h.Runs[0].Status)
	assert.Contains(t, h.Runs[0].Content, "error in widget.go")

	assert.Equal(t, "Tue Mar 10 09:00:00 UTC 2026", h.Runs[1].StartedAt)
	assert.Equal(t, "Tue Mar 10 09:00:45 UTC 2026", h.Runs[1].CompletedAt)
	assert.Equal(t, task.RunStatusSuccess, h.Runs[1].Status)

	assert.Equal(t, sampleLog, h.RawLogs)
}

func TestLastStatusOnlyExaminesTail(t *testing.T) {
	// The first run failed, the second succeeded; the old error must
	// not poison the current status.
	assert.Equal(t, task.RunStatusSuccess, LastStatus(sampleLog))

	failed := sampleLog + "=== Task started at Wed Mar 11 09:00:00 UTC 2026 ===\nError: agent exited\n"
	assert.Equal(t, task.RunStatusError, LastStatus(failed))
}

func TestLastStatusCaseSensitive(t *testing.T) {
	assert.Equal(t, task.RunStatusSuccess, LastStatus("ERROR IN CAPS ONLY"))
	assert.Equal(t, task.RunStatusError, LastStatus("an error occurred"))
	assert.Equal(t, task.RunStatusError, LastStatus("Error: boom"))
	assert.Equal(t, task.RunStatusSuccess, LastStatus(""))
}

func TestParseRunStillInProgress(t *testing.T) {
	content := "=== Task started at Mon Mar  9 09:00:00 UTC 2026 ===\nworking...\n"
	h := Parse(content, "")
	require.Len(t, h.Runs, 1)
	assert.Empty(t, h.Runs[0].CompletedAt)
	assert.Equal(t, "Mon Mar  9 09:00:00 UTC 2026", h.Runs[0].StartedAt)
}

func TestParseLegacyContent(t *testing.T) {
	h := Parse("output from before markers existed\n", "")
	require.Len(t, h.Runs, 1)
	assert.Equal(t, UnknownStart, h.Runs[0].StartedAt)
	assert.Empty(t, h.Runs[0].CompletedAt)

	// Legacy head followed by a marked run.
	mixed := "old output\n" + sampleLog
	h = Parse(mixed, "")
	require.Len(t, h.Runs, 3)
	assert.Equal(t, UnknownStart, h.Runs[0].StartedAt)
	assert.Equal(t, "old output", h.Runs[0].Content)
}

func TestParseAppendsErrorLog(t *testing.T) {
	h := Parse(sampleLog, "stack trace here\n")
	require.Len(t, h.Runs, 2)
	last := h.Runs[1]
	assert.Contains(t, last.Content, "=== Error Log ===")
	assert.Contains(t, last.Content, "stack trace here")
	// stderr content flips the inferred status only when it mentions
	// an error, which a bare stack trace line does not.
	assert.Equal(t, task.RunStatusSuccess, last.Status)

	h = Parse(sampleLog, "Error: exploded\n")
	assert.Equal(t, task.RunStatusError, h.Runs[1].Status)
}

func TestParseEmpty(t *testing.T) {
	h := Parse("", "")
	assert.Empty(t, h.Runs)
	assert.Empty(t, h.RawLogs)
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "task.log")
	errPath := filepath.Join(dir, "task.error.log")

	// Missing file: empty history, no error surfaced.
	h := ParseFiles(logPath, errPath)
	assert.Empty(t, h.Runs)

	require.NoError(t, os.WriteFile(logPath, []byte(sampleLog), 0o644))
	require.NoError(t, os.WriteFile(errPath, []byte("boom\n"), 0o644))
	h = ParseFiles(logPath, errPath)
	require.Len(t, h.Runs, 2)
	assert.Contains(t, h.Runs[1].Content, "boom")
}

func TestMarkerRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	content := StartMarker(ts) + "\nhello\n" + CompleteMarker(ts.Add(time.Minute)) + "\n"
	h := Parse(content, "")
	require.Len(t, h.Runs, 1)
	assert.Equal(t, ts.Format(MarkerTimeLayout), h.Runs[0].StartedAt)
	assert.Equal(t, ts.Add(time.Minute).Format(MarkerTimeLayout), h.Runs[0].CompletedAt)
	assert.Equal(t, "hello", h.Runs[0].Content)
}
