// Package paths centralizes the on-disk layout under the data
// directory. Every component derives file locations from here so the
// generated job scripts, the store and the log reconstructor agree on
// where things live.
package paths

import (
	"path/filepath"
	"strings"
)

// Layout resolves paths beneath a single data directory.
type Layout struct {
	DataDir string
}

// GlobalTasks is the global scope's task collection.
func (l Layout) GlobalTasks() string {
	return filepath.Join(l.DataDir, "tasks.json")
}

// ProjectTasks is the per-project scope collection for projectPath.
func (l Layout) ProjectTasks(projectPath string) string {
	return filepath.Join(l.DataDir, "projects", SanitizeProject(projectPath), "tasks.json")
}

// ProjectsDir holds the per-project scope directories.
func (l Layout) ProjectsDir() string {
	return filepath.Join(l.DataDir, "projects")
}

// Metadata is the sidecar map of UI-only fields keyed by task ID.
func (l Layout) Metadata() string {
	return filepath.Join(l.DataDir, "task-meta.json")
}

// Script is the generated job script for a task.
func (l Layout) Script(taskID string) string {
	return filepath.Join(l.DataDir, "jobs", taskID+".sh")
}

// Log is the task's append-only stdout log.
func (l Layout) Log(taskID string) string {
	return filepath.Join(l.DataDir, "logs", taskID+".log")
}

// ErrorLog is the sibling stderr log.
func (l Layout) ErrorLog(taskID string) string {
	return filepath.Join(l.DataDir, "logs", taskID+".error.log")
}

// SanitizeProject turns an absolute project path into a directory-safe
// key. Distinct projects may collide only if they differ solely in
// characters outside [A-Za-z0-9._-], which path components in practice
// do not.
func SanitizeProject(projectPath string) string {
	cleaned := strings.Trim(filepath.Clean(projectPath), string(filepath.Separator))
	var b strings.Builder
	for _, r := range cleaned {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "root"
	}
	return b.String()
}
