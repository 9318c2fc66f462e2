//go:build darwin

package osched

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/task"
)

const launchdLabelPrefix = "com.agentdeck.task."

// launchdAdapter registers one LaunchAgent per task. launchd fires the
// job script on its calendar interval whether or not this application
// is running.
type launchdAdapter struct {
	scripts   ScriptBuilder
	agentsDir string
	logger    *zap.Logger
}

func newNative(scripts ScriptBuilder, logger *zap.Logger) Adapter {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return &launchdAdapter{
		scripts:   scripts,
		agentsDir: filepath.Join(home, "Library", "LaunchAgents"),
		logger:    logger.Named("osched.launchd"),
	}
}

func (a *launchdAdapter) Install(t task.Task) (string, error) {
	scriptPath, err := a.scripts.Write(t)
	if err != nil {
		return "", err
	}

	spec, err := parseCalendar(t.Schedule)
	if err != nil {
		return scriptPath, fmt.Errorf("schedule not expressible as calendar interval: %w", err)
	}

	plistPath := a.plistPath(t.ID)
	if err := os.MkdirAll(a.agentsDir, 0o755); err != nil {
		return scriptPath, err
	}
	if err := os.WriteFile(plistPath, []byte(renderPlist(launchdLabelPrefix+t.ID, scriptPath, spec)), 0o644); err != nil {
		return scriptPath, err
	}

	// Reload: unload of a not-yet-loaded job fails harmlessly.
	_ = exec.Command("launchctl", "unload", plistPath).Run()
	if out, err := exec.Command("launchctl", "load", plistPath).CombinedOutput(); err != nil {
		return scriptPath, fmt.Errorf("launchctl load: %v: %s", err, strings.TrimSpace(string(out)))
	}

	a.logger.Info("installed launchd job",
		zap.String("id", t.ID), zap.String("plist", plistPath))
	return scriptPath, nil
}

func (a *launchdAdapter) Uninstall(taskID string) error {
	plistPath := a.plistPath(taskID)
	if _, err := os.Stat(plistPath); err == nil {
		_ = exec.Command("launchctl", "unload", plistPath).Run()
		if err := os.Remove(plistPath); err != nil {
			return err
		}
	}
	return a.scripts.Remove(taskID)
}

// FixPaths rewrites each installed plist whose script argument no
// longer matches the current data directory, then reloads it. Nothing
// to rewrite is success.
func (a *launchdAdapter) FixPaths() error {
	entries, err := os.ReadDir(a.agentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, launchdLabelPrefix) || !strings.HasSuffix(name, ".plist") {
			continue
		}
		taskID := strings.TrimSuffix(strings.TrimPrefix(name, launchdLabelPrefix), ".plist")
		want := xmlEscape(a.scripts.Path(taskID))

		plistPath := filepath.Join(a.agentsDir, name)
		data, err := os.ReadFile(plistPath)
		if err != nil {
			continue
		}
		fixed, changed := rewriteScriptPath(string(data), taskID, want)
		if !changed {
			continue
		}
		if err := os.WriteFile(plistPath, []byte(fixed), 0o644); err != nil {
			return err
		}
		_ = exec.Command("launchctl", "unload", plistPath).Run()
		_ = exec.Command("launchctl", "load", plistPath).Run()
		a.logger.Info("repaired job definition", zap.String("id", taskID))
	}
	return nil
}

func (a *launchdAdapter) plistPath(taskID string) string {
	return filepath.Join(a.agentsDir, launchdLabelPrefix+taskID+".plist")
}

// xmlEscape protects plist string values against data dirs containing
// XML metacharacters.
var xmlEscape = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
).Replace

func renderPlist(label, scriptPath string, spec calendarSpec) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	sb.WriteString("<plist version=\"1.0\">\n<dict>\n")
	fmt.Fprintf(&sb, "\t<key>Label</key>\n\t<string>%s</string>\n", xmlEscape(label))
	sb.WriteString("\t<key>ProgramArguments</key>\n\t<array>\n")
	sb.WriteString("\t\t<string>/bin/bash</string>\n")
	fmt.Fprintf(&sb, "\t\t<string>%s</string>\n", xmlEscape(scriptPath))
	sb.WriteString("\t</array>\n")

	// One calendar dict per constrained weekday; omitted keys are
	// wildcards in launchd.
	writeInterval := func(weekday int) {
		sb.WriteString("\t\t<dict>\n")
		if spec.Minute >= 0 {
			fmt.Fprintf(&sb, "\t\t\t<key>Minute</key>\n\t\t\t<integer>%d</integer>\n", spec.Minute)
		}
		if spec.Hour >= 0 {
			fmt.Fprintf(&sb, "\t\t\t<key>Hour</key>\n\t\t\t<integer>%d</integer>\n", spec.Hour)
		}
		if spec.DayOfMonth >= 0 {
			fmt.Fprintf(&sb, "\t\t\t<key>Day</key>\n\t\t\t<integer>%d</integer>\n", spec.DayOfMonth)
		}
		if weekday >= 0 {
			fmt.Fprintf(&sb, "\t\t\t<key>Weekday</key>\n\t\t\t<integer>%d</integer>\n", weekday)
		}
		sb.WriteString("\t\t</dict>\n")
	}

	sb.WriteString("\t<key>StartCalendarInterval</key>\n\t<array>\n")
	if len(spec.Weekdays) == 0 {
		writeInterval(-1)
	} else {
		for _, d := range spec.Weekdays {
			writeInterval(d)
		}
	}
	sb.WriteString("\t</array>\n")
	sb.WriteString("</dict>\n</plist>\n")
	return sb.String()
}
