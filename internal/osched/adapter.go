// Package osched registers task schedules with the host operating
// system's own recurring-job facility, so firings are independent of
// this application's process lifetime. One implementation exists per
// platform (launchd on darwin, systemd user timers on linux) plus a
// portable in-process fallback; nothing outside this package branches
// on platform.
package osched

import (
	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/task"
)

// Adapter installs and removes native recurring jobs for tasks.
//
// Install writes the job script and registers it; it returns the
// script path even when registration fails, because the script (and
// the task record behind it) remain the source of truth and the caller
// surfaces registration failure as a warning, never as data loss.
type Adapter interface {
	Install(t task.Task) (scriptPath string, err error)
	Uninstall(taskID string) error

	// FixPaths rewrites absolute paths embedded in already-installed
	// job definitions after the application's own location changes.
	// It succeeds as a no-op when there is nothing to fix.
	FixPaths() error
}

// New returns the native adapter for this platform, or the in-process
// fallback when no native integration exists or it cannot be reached.
func New(scripts ScriptBuilder, logger *zap.Logger) Adapter {
	if native := newNative(scripts, logger); native != nil {
		return native
	}
	logger.Named("osched").Info("native scheduler unavailable, using in-process fallback timer")
	return NewFallback(scripts, logger)
}
