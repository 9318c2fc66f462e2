package osched

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/agentdeck/agentdeck/internal/paths"
	"github.com/agentdeck/agentdeck/internal/task"
)

func testBuilder(t *testing.T) ScriptBuilder {
	t.Helper()
	return ScriptBuilder{
		Layout:      paths.Layout{DataDir: t.TempDir()},
		AgentBinary: "claude",
	}
}

func TestGenerateScript(t *testing.T) {
	b := testBuilder(t)
	script := b.Generate(task.Task{
		ID:          "abc-123",
		Prompt:      "summarize the changelog",
		Schedule:    "0 9 * * *",
		ProjectPath: "/home/dev/widgets",
		Autonomous:  true,
	})

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash\n"))
	assert.Contains(t, script, "cd '/home/dev/widgets' || exit 1")
	assert.Contains(t, script, `echo "=== Task started at $(date) ===" >> "$LOG"`)
	assert.Contains(t, script, `echo "=== Task completed at $(date) ===" >> "$LOG"`)
	assert.Contains(t, script, "'claude' -p --dangerously-skip-permissions 'summarize the changelog'")
	assert.Contains(t, script, b.Layout.Log("abc-123"))
	assert.Contains(t, script, b.Layout.ErrorLog("abc-123"))
}

func TestGenerateScriptEscapesQuotes(t *testing.T) {
	b := testBuilder(t)
	script := b.Generate(task.Task{
		ID:         "q-1",
		Prompt:     "don't touch 'main'",
		Autonomous: true,
	})
	assert.Contains(t, script, `'don'\''t touch '\''main'\'''`)
}

func TestGenerateScriptRespectsFlags(t *testing.T) {
	b := testBuilder(t)

	script := b.Generate(task.Task{ID: "x", Prompt: "p", Autonomous: false, AgentID: "reviewer"})
	assert.NotContains(t, script, "--dangerously-skip-permissions")
	assert.Contains(t, script, "--agent 'reviewer'")

	script = b.Generate(task.Task{
		ID:         "y",
		Prompt:     "p",
		Autonomous: true,
		Worktree:   &task.Worktree{Enabled: true, BranchPrefix: "sched/"},
	})
	assert.Contains(t, script, "git worktree add")
	assert.Contains(t, script, "BRANCH='sched/'")
}

func TestWriteAndRemoveScript(t *testing.T) {
	b := testBuilder(t)
	path, err := b.Write(task.Task{ID: "w-1", Prompt: "p", Autonomous: true})
	require.NoError(t, err)
	assert.Equal(t, b.Path("w-1"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	require.NoError(t, b.Remove("w-1"))
	assert.NoFileExists(t, path)
	// Removing an absent script succeeds.
	assert.NoError(t, b.Remove("w-1"))
}

func TestParseCalendar(t *testing.T) {
	spec, err := parseCalendar("30 9 * * 1-5")
	require.NoError(t, err)
	assert.Equal(t, 30, spec.Minute)
	assert.Equal(t, 9, spec.Hour)
	assert.Equal(t, -1, spec.DayOfMonth)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, spec.Weekdays)

	_, err = parseCalendar("not a cron")
	assert.Error(t, err)
	_, err = parseCalendar("*/5 * * * *")
	assert.Error(t, err)
}

func TestOnCalendar(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"30 9 * * *", "*-*-* 09:30:00"},
		{"0 9 * * 1-5", "Mon,Tue,Wed,Thu,Fri *-*-* 09:00:00"},
		{"0 9 * * 1", "Mon *-*-* 09:00:00"},
		{"0 0 1 * *", "*-*-01 00:00:00"},
		{"* * * * *", "*-*-* *:*:00"},
		{"15 * * * *", "*-*-* *:15:00"},
	}
	for _, tt := range tests {
		spec, err := parseCalendar(tt.expr)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, spec.OnCalendar(), tt.expr)
	}
}

func TestFallbackInstallUninstall(t *testing.T) {
	b := testBuilder(t)
	f := NewFallback(b, zaptest.NewLogger(t))

	path, err := f.Install(task.Task{ID: "fb-1", Prompt: "p", Schedule: "0 9 * * *", Autonomous: true})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, f.Scheduled("fb-1"))

	// Reinstall replaces the existing entry instead of stacking.
	_, err = f.Install(task.Task{ID: "fb-1", Prompt: "p", Schedule: "30 7 * * *", Autonomous: true})
	require.NoError(t, err)
	assert.True(t, f.Scheduled("fb-1"))

	require.NoError(t, f.Uninstall("fb-1"))
	assert.False(t, f.Scheduled("fb-1"))
	assert.NoFileExists(t, path)
}

func TestFallbackBadScheduleKeepsScript(t *testing.T) {
	b := testBuilder(t)
	f := NewFallback(b, zaptest.NewLogger(t))

	path, err := f.Install(task.Task{ID: "fb-2", Prompt: "p", Schedule: "garbage", Autonomous: true})
	assert.Error(t, err)
	// The script survives so run-now still works; only the timer
	// registration failed.
	assert.FileExists(t, path)
	assert.False(t, f.Scheduled("fb-2"))
}

func TestFallbackFixPathsNoop(t *testing.T) {
	f := NewFallback(testBuilder(t), zaptest.NewLogger(t))
	assert.NoError(t, f.FixPaths())
}

func TestRewriteScriptPath(t *testing.T) {
	unit := "[Service]\nType=oneshot\nExecStart=/bin/bash /old/data/jobs/t-1.sh\n"
	fixed, changed := rewriteScriptPath(unit, "t-1", "/new/data/jobs/t-1.sh")
	assert.True(t, changed)
	assert.Contains(t, fixed, "ExecStart=/bin/bash /new/data/jobs/t-1.sh")

	// Already current: untouched, reported as such.
	same, changed := rewriteScriptPath(fixed, "t-1", "/new/data/jobs/t-1.sh")
	assert.False(t, changed)
	assert.Equal(t, fixed, same)
}
