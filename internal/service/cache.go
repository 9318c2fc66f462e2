package service

import (
	"os"
	"sync"
	"time"

	"github.com/agentdeck/agentdeck/internal/runlog"
	"github.com/agentdeck/agentdeck/internal/task"
)

// statusCache memoizes the last-run summary per task, keyed by the log
// files' modification times. Parsing a large log on every list call is
// wasteful; the mtime key invalidates naturally when a run appends, and
// operations that change run state invalidate explicitly.
type statusCache struct {
	mu      sync.Mutex
	entries map[string]statusEntry
}

type statusEntry struct {
	logMod  time.Time
	errMod  time.Time
	lastRun string
	status  task.RunStatus
}

func newStatusCache() *statusCache {
	return &statusCache{entries: make(map[string]statusEntry)}
}

func (c *statusCache) lookup(taskID, logPath, errorLogPath string) (string, task.RunStatus) {
	logMod := mtime(logPath)
	errMod := mtime(errorLogPath)

	c.mu.Lock()
	if e, ok := c.entries[taskID]; ok && e.logMod.Equal(logMod) && e.errMod.Equal(errMod) {
		c.mu.Unlock()
		return e.lastRun, e.status
	}
	c.mu.Unlock()

	var lastRun string
	status := task.RunStatusSuccess
	if h := runlog.ParseFiles(logPath, errorLogPath); len(h.Runs) > 0 {
		last := h.Runs[len(h.Runs)-1]
		lastRun = last.StartedAt
		status = last.Status
	}

	c.mu.Lock()
	c.entries[taskID] = statusEntry{logMod: logMod, errMod: errMod, lastRun: lastRun, status: status}
	c.mu.Unlock()
	return lastRun, status
}

func (c *statusCache) invalidate(taskID string) {
	c.mu.Lock()
	delete(c.entries, taskID)
	c.mu.Unlock()
}

func mtime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
