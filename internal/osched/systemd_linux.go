//go:build linux

package osched

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdbus "github.com/coreos/go-systemd/v22/dbus"
	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/task"
)

const systemdUnitPrefix = "agentdeck-task-"

// systemdAdapter registers one user-level service/timer unit pair per
// task. The user manager fires the job script on its OnCalendar
// trigger independent of this application's lifetime.
type systemdAdapter struct {
	scripts  ScriptBuilder
	unitsDir string
	logger   *zap.Logger
}

func newNative(scripts ScriptBuilder, logger *zap.Logger) Adapter {
	// Probe the user manager once; without it (containers, bare
	// sessions) the caller falls back to the in-process timer.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, err := sdbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil
	}
	conn.Close()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return &systemdAdapter{
		scripts:  scripts,
		unitsDir: filepath.Join(home, ".config", "systemd", "user"),
		logger:   logger.Named("osched.systemd"),
	}
}

func (a *systemdAdapter) Install(t task.Task) (string, error) {
	scriptPath, err := a.scripts.Write(t)
	if err != nil {
		return "", err
	}

	spec, err := parseCalendar(t.Schedule)
	if err != nil {
		return scriptPath, fmt.Errorf("schedule not expressible as calendar trigger: %w", err)
	}

	if err := os.MkdirAll(a.unitsDir, 0o755); err != nil {
		return scriptPath, err
	}
	serviceName := systemdUnitPrefix + t.ID + ".service"
	timerName := systemdUnitPrefix + t.ID + ".timer"

	service := fmt.Sprintf(`[Unit]
Description=agentdeck task %s

[Service]
Type=oneshot
ExecStart=/bin/bash %s
`, t.ID, scriptPath)

	timer := fmt.Sprintf(`[Unit]
Description=agentdeck timer for task %s

[Timer]
OnCalendar=%s

[Install]
WantedBy=timers.target
`, t.ID, spec.OnCalendar())

	if err := os.WriteFile(filepath.Join(a.unitsDir, serviceName), []byte(service), 0o644); err != nil {
		return scriptPath, err
	}
	if err := os.WriteFile(filepath.Join(a.unitsDir, timerName), []byte(timer), 0o644); err != nil {
		return scriptPath, err
	}

	err = a.withConn(func(ctx context.Context, conn *sdbus.Conn) error {
		if err := conn.ReloadContext(ctx); err != nil {
			return fmt.Errorf("daemon-reload: %w", err)
		}
		if _, _, err := conn.EnableUnitFilesContext(ctx, []string{timerName}, false, true); err != nil {
			return fmt.Errorf("enable %s: %w", timerName, err)
		}
		if _, err := conn.StartUnitContext(ctx, timerName, "replace", nil); err != nil {
			return fmt.Errorf("start %s: %w", timerName, err)
		}
		return nil
	})
	if err != nil {
		return scriptPath, err
	}

	a.logger.Info("installed systemd timer",
		zap.String("id", t.ID), zap.String("on_calendar", spec.OnCalendar()))
	return scriptPath, nil
}

func (a *systemdAdapter) Uninstall(taskID string) error {
	serviceName := systemdUnitPrefix + taskID + ".service"
	timerName := systemdUnitPrefix + taskID + ".timer"

	// Best effort against the manager; unit file removal below is what
	// actually guarantees the job never fires again.
	_ = a.withConn(func(ctx context.Context, conn *sdbus.Conn) error {
		_, _ = conn.StopUnitContext(ctx, timerName, "replace", nil)
		_, _ = conn.DisableUnitFilesContext(ctx, []string{timerName}, false)
		_ = conn.ReloadContext(ctx)
		return nil
	})

	for _, name := range []string{timerName, serviceName} {
		if err := os.Remove(filepath.Join(a.unitsDir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return a.scripts.Remove(taskID)
}

// FixPaths rewrites ExecStart lines pointing at a stale data
// directory, then reloads the user manager. Nothing to rewrite is
// success.
func (a *systemdAdapter) FixPaths() error {
	entries, err := os.ReadDir(a.unitsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	repaired := false
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, systemdUnitPrefix) || !strings.HasSuffix(name, ".service") {
			continue
		}
		taskID := strings.TrimSuffix(strings.TrimPrefix(name, systemdUnitPrefix), ".service")
		want := a.scripts.Path(taskID)

		unitPath := filepath.Join(a.unitsDir, name)
		data, err := os.ReadFile(unitPath)
		if err != nil {
			continue
		}
		fixed, changed := rewriteScriptPath(string(data), taskID, want)
		if !changed {
			continue
		}
		if err := os.WriteFile(unitPath, []byte(fixed), 0o644); err != nil {
			return err
		}
		repaired = true
		a.logger.Info("repaired job definition", zap.String("id", taskID))
	}
	if !repaired {
		return nil
	}
	return a.withConn(func(ctx context.Context, conn *sdbus.Conn) error {
		return conn.ReloadContext(ctx)
	})
}

func (a *systemdAdapter) withConn(fn func(context.Context, *sdbus.Conn) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := sdbus.NewUserConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("connect to user manager: %w", err)
	}
	defer conn.Close()
	return fn(ctx, conn)
}
