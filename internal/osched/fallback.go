package osched

import (
	"os/exec"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/task"
)

// Fallback drives schedules from an in-process cron timer. Jobs only
// fire while the process is alive, unlike the native adapters, so this
// is used on platforms without a supported native scheduler and by the
// explicit daemon mode.
type Fallback struct {
	scripts ScriptBuilder
	cron    *cron.Cron
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewFallback creates a fallback adapter. Call Start to begin firing.
func NewFallback(scripts ScriptBuilder, logger *zap.Logger) *Fallback {
	return &Fallback{
		scripts: scripts,
		cron:    cron.New(),
		logger:  logger.Named("osched.fallback"),
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins the timer loop.
func (f *Fallback) Start() { f.cron.Start() }

// Stop halts the timer and waits for in-flight firings to hand off.
// The spawned scripts themselves are detached and keep running.
func (f *Fallback) Stop() {
	ctx := f.cron.Stop()
	<-ctx.Done()
}

// Install writes the job script and schedules it on the in-process
// timer. An unparseable schedule leaves the script installed so run-now
// still works; the error is reported for the caller to surface.
func (f *Fallback) Install(t task.Task) (string, error) {
	path, err := f.scripts.Write(t)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.entries[t.ID]; ok {
		f.cron.Remove(id)
		delete(f.entries, t.ID)
	}

	entryID, err := f.cron.AddFunc(t.Schedule, func() { f.fire(t.ID, path) })
	if err != nil {
		return path, err
	}
	f.entries[t.ID] = entryID
	f.logger.Info("scheduled task on fallback timer",
		zap.String("id", t.ID),
		zap.String("schedule", t.Schedule))
	return path, nil
}

// Uninstall removes the timer entry and the job script.
func (f *Fallback) Uninstall(taskID string) error {
	f.mu.Lock()
	if id, ok := f.entries[taskID]; ok {
		f.cron.Remove(id)
		delete(f.entries, taskID)
	}
	f.mu.Unlock()
	return f.scripts.Remove(taskID)
}

// FixPaths is a no-op: fallback entries are rebuilt from the store on
// every start, so there are no persisted job definitions to repair.
func (f *Fallback) FixPaths() error { return nil }

// Scheduled reports whether a timer entry exists for taskID.
func (f *Fallback) Scheduled(taskID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[taskID]
	return ok
}

// fire spawns the job script detached. The script owns its own logging
// through the marker protocol; stdout and stderr here are deliberately
// discarded.
func (f *Fallback) fire(taskID, scriptPath string) {
	cmd := exec.Command("/bin/bash", scriptPath)
	Detach(cmd)
	if err := cmd.Start(); err != nil {
		f.logger.Error("failed to start job script",
			zap.String("id", taskID), zap.Error(err))
		return
	}
	_ = cmd.Process.Release()
	f.logger.Info("fired task", zap.String("id", taskID))
}
