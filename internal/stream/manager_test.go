package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/agentdeck/agentdeck/internal/paths"
)

func newTestManager(t *testing.T) (*Manager, paths.Layout) {
	t.Helper()
	layout := paths.Layout{DataDir: t.TempDir()}
	return NewManager(layout, 10*time.Millisecond, zaptest.NewLogger(t)), layout
}

func appendLog(t *testing.T, layout paths.Layout, taskID, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(layout.Log(taskID)), 0o755))
	f, err := os.OpenFile(layout.Log(taskID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(text)
	require.NoError(t, err)
}

func TestSubscribeSeesAppendedOutput(t *testing.T) {
	m, layout := newTestManager(t)

	// Pre-existing content must not be replayed.
	appendLog(t, layout, "t1", "old output\n")

	client := m.Subscribe("t1", "c1")
	defer m.Unsubscribe("t1", "c1")

	// Give the tail a tick to record the starting offset.
	time.Sleep(30 * time.Millisecond)
	appendLog(t, layout, "t1", "fresh line\n")

	select {
	case chunk := <-client.Chunks:
		assert.Equal(t, "t1", chunk.TaskID)
		assert.Equal(t, "fresh line\n", chunk.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("no chunk received")
	}
}

func TestCompletionMarkerEmitsEvent(t *testing.T) {
	m, layout := newTestManager(t)

	client := m.Subscribe("t1", "c1")
	defer m.Unsubscribe("t1", "c1")

	time.Sleep(30 * time.Millisecond)
	appendLog(t, layout, "t1", "=== Task started at Mon Jan  2 15:04:05 UTC 2006 ===\nall good\n=== Task completed at Mon Jan  2 15:05:05 UTC 2006 ===\n")

	select {
	case ev := <-client.Complete:
		assert.Equal(t, "t1", ev.TaskID)
		assert.Equal(t, "success", ev.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no completion event")
	}
}

func TestUnsubscribeStopsTail(t *testing.T) {
	m, _ := newTestManager(t)

	for i := 0; i < 3; i++ {
		m.Subscribe("t1", fmt.Sprintf("c%d", i))
	}
	assert.Equal(t, 1, m.ActiveTails())

	for i := 0; i < 3; i++ {
		m.Unsubscribe("t1", fmt.Sprintf("c%d", i))
	}
	assert.Equal(t, 0, m.ActiveTails())

	// Unsubscribing an unknown client is a no-op.
	m.Unsubscribe("t1", "ghost")
	m.Unsubscribe("never-seen", "c0")
}

func TestMissingLogFileKeepsPolling(t *testing.T) {
	m, layout := newTestManager(t)

	client := m.Subscribe("t1", "c1")
	defer m.Unsubscribe("t1", "c1")

	// File does not exist yet; tail must survive and pick it up later.
	time.Sleep(50 * time.Millisecond)
	appendLog(t, layout, "t1", "born late\n")

	select {
	case chunk := <-client.Chunks:
		assert.Equal(t, "born late\n", chunk.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("no chunk received")
	}
}
