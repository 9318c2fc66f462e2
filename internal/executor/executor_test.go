package executor

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/agentdeck/agentdeck/internal/osched"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/internal/task"
)

func newTestExecutor(t *testing.T) (*Executor, *store.Store, osched.ScriptBuilder) {
	t.Helper()
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)
	st := store.New(dir, logger)
	scripts := osched.ScriptBuilder{
		Layout:      st.Layout(),
		AgentBinary: "true", // a no-op stand-in for the agent CLI
	}
	adapter := osched.NewFallback(scripts, logger)
	return New(st, adapter, scripts, logger), st, scripts
}

func TestRunNowUnknownTask(t *testing.T) {
	e, _, _ := newTestExecutor(t)
	err := e.RunNow("no-such-id")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRunNowInstallsMissingScript(t *testing.T) {
	e, st, scripts := newTestExecutor(t)

	created, err := st.Create(task.Fields{Prompt: "hello", Schedule: "0 9 * * *"})
	require.NoError(t, err)
	assert.NoFileExists(t, scripts.Path(created.ID))

	require.NoError(t, e.RunNow(created.ID))
	assert.FileExists(t, scripts.Path(created.ID))

	// The detached script writes both markers around the (no-op)
	// agent invocation.
	logPath := st.Layout().Log(created.ID)
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(logPath)
		return err == nil && strings.Contains(string(data), "=== Task completed at ")
	}, 5*time.Second, 50*time.Millisecond)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=== Task started at ")
}

func TestRunNowOverlappingRunsAppend(t *testing.T) {
	e, st, _ := newTestExecutor(t)

	created, err := st.Create(task.Fields{Prompt: "hi", Schedule: "0 9 * * *"})
	require.NoError(t, err)

	require.NoError(t, e.RunNow(created.ID))
	require.NoError(t, e.RunNow(created.ID))

	logPath := st.Layout().Log(created.ID)
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(logPath)
		return err == nil && strings.Count(string(data), "=== Task started at ") == 2
	}, 5*time.Second, 50*time.Millisecond)
}
