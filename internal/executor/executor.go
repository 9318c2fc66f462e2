// Package executor fires a task's job script on demand. The spawned
// process is fully detached: it must keep running and appending to the
// task's log after the requesting caller, or the whole application,
// goes away.
package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/osched"
	"github.com/agentdeck/agentdeck/internal/store"
)

// ErrTaskNotFound distinguishes an unknown task from one that merely
// has no installed script yet.
var ErrTaskNotFound = errors.New("task not found")

// Executor spawns job scripts detached from the caller.
type Executor struct {
	store   *store.Store
	adapter osched.Adapter
	scripts osched.ScriptBuilder
	logger  *zap.Logger
}

// New creates an executor over the given store and scheduler adapter.
func New(st *store.Store, adapter osched.Adapter, scripts osched.ScriptBuilder, logger *zap.Logger) *Executor {
	return &Executor{
		store:   st,
		adapter: adapter,
		scripts: scripts,
		logger:  logger.Named("executor"),
	}
}

// RunNow fires the task's job script immediately and returns without
// waiting for completion. A task that exists but was never installed
// is installed first; an unknown ID returns ErrTaskNotFound.
//
// Overlapping invocations for the same task are allowed: both scripts
// append to the same log and the reconstructor tolerates interleaved
// segments. At-least-once, not exactly-once.
func (e *Executor) RunNow(taskID string) error {
	scriptPath := e.scripts.Path(taskID)
	if _, err := os.Stat(scriptPath); err != nil {
		t, lookupErr := e.store.Get(taskID)
		if lookupErr != nil {
			return ErrTaskNotFound
		}
		scriptPath, err = e.adapter.Install(t)
		if scriptPath == "" {
			return fmt.Errorf("install job script: %w", err)
		}
		if err != nil {
			// Script written but native registration failed; the
			// manual run can still proceed.
			e.logger.Warn("native registration failed during run-now",
				zap.String("id", taskID), zap.Error(err))
		}
	}

	cmd := exec.Command("/bin/bash", scriptPath)
	osched.Detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start job script: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		e.logger.Warn("release child process", zap.Int("pid", pid), zap.Error(err))
	}

	e.logger.Info("task fired", zap.String("id", taskID), zap.Int("pid", pid))
	return nil
}
