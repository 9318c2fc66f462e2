package osched

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentdeck/agentdeck/internal/paths"
	"github.com/agentdeck/agentdeck/internal/task"
)

// ScriptBuilder generates the per-task job script the native scheduler
// (or the fallback timer) executes. The script is self-contained: it
// prints the start marker, invokes the agent CLI, and prints the
// completion marker, appending everything to the task's log files so a
// firing needs nothing from the parent application.
type ScriptBuilder struct {
	Layout      paths.Layout
	AgentBinary string
}

// Path returns where a task's script lives.
func (b ScriptBuilder) Path(taskID string) string {
	return b.Layout.Script(taskID)
}

// Write renders the script for t and installs it executable at its
// fixed path.
func (b ScriptBuilder) Write(t task.Task) (string, error) {
	path := b.Path(t.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(b.Generate(t)), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Remove deletes a task's script. Absence is success.
func (b ScriptBuilder) Remove(taskID string) error {
	err := os.Remove(b.Path(taskID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Generate renders the job script body.
func (b ScriptBuilder) Generate(t task.Task) string {
	logPath := shellQuote(b.Layout.Log(t.ID))
	errPath := shellQuote(b.Layout.ErrorLog(t.ID))

	var sb strings.Builder
	sb.WriteString("#!/bin/bash\n")
	fmt.Fprintf(&sb, "# agentdeck job script for task %s. Regenerated on every install; do not edit.\n", t.ID)
	sb.WriteString("set -u\n")
	fmt.Fprintf(&sb, "LOG=%s\n", logPath)
	fmt.Fprintf(&sb, "ERR=%s\n", errPath)
	sb.WriteString(`mkdir -p "$(dirname "$LOG")"` + "\n")
	if t.ProjectPath != "" {
		fmt.Fprintf(&sb, "cd %s || exit 1\n", shellQuote(t.ProjectPath))
	}
	if t.Worktree != nil && t.Worktree.Enabled {
		prefix := t.Worktree.BranchPrefix
		if prefix == "" {
			prefix = "agentdeck/"
		}
		fmt.Fprintf(&sb, "BRANCH=%s\"$(date +%%Y%%m%%d%%H%%M%%S)\"\n", shellQuote(prefix))
		sb.WriteString(`WT=".agentdeck-worktrees/$BRANCH"` + "\n")
		sb.WriteString(`if git worktree add -b "$BRANCH" "$WT" >> "$LOG" 2>> "$ERR"; then cd "$WT" || exit 1; fi` + "\n")
	}
	sb.WriteString(`echo "=== Task started at $(date) ===" >> "$LOG"` + "\n")
	fmt.Fprintf(&sb, "%s >> \"$LOG\" 2>> \"$ERR\"\n", strings.Join(b.agentArgs(t), " "))
	sb.WriteString(`echo "=== Task completed at $(date) ===" >> "$LOG"` + "\n")
	return sb.String()
}

func (b ScriptBuilder) agentArgs(t task.Task) []string {
	bin := b.AgentBinary
	if bin == "" {
		bin = "claude"
	}
	args := []string{shellQuote(bin), "-p"}
	if t.Autonomous {
		args = append(args, "--dangerously-skip-permissions")
	}
	if t.AgentID != "" {
		args = append(args, "--agent", shellQuote(t.AgentID))
	}
	return append(args, shellQuote(t.Prompt))
}

// shellQuote single-quotes s for safe interpolation into the script,
// closing and reopening the quote around any embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
