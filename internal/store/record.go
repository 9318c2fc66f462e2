package store

import (
	"github.com/agentdeck/agentdeck/internal/task"
)

// record is the canonical on-disk shape of one task inside a scope
// collection. UI-only fields travel in the metadata sidecar instead so
// the natively-scheduled job scripts depend on as little as possible.
type record struct {
	ID          string         `json:"id"`
	Prompt      string         `json:"prompt"`
	Schedule    string         `json:"schedule"`
	ProjectPath string         `json:"projectPath"`
	AgentID     string         `json:"agentId,omitempty"`
	Autonomous  bool           `json:"autonomous"`
	Worktree    *task.Worktree `json:"worktree,omitempty"`
}

// rawRecord accepts the field-name drift of older collection formats.
// Aliases are resolved here, at the read boundary, and never leak past
// normalize: the rest of the system only ever sees canonical records.
type rawRecord struct {
	ID           string         `json:"id"`
	Prompt       string         `json:"prompt"`
	TaskAlias    string         `json:"task"`
	Schedule     string         `json:"schedule"`
	CronAlias    string         `json:"cron"`
	ProjectPath  string         `json:"projectPath"`
	ProjectAlias string         `json:"project"`
	AgentID      string         `json:"agentId"`
	Autonomous   *bool          `json:"autonomous"`
	Worktree     *task.Worktree `json:"worktree"`
}

func (r rawRecord) normalize() record {
	out := record{
		ID:          r.ID,
		Prompt:      r.Prompt,
		Schedule:    r.Schedule,
		ProjectPath: r.ProjectPath,
		AgentID:     r.AgentID,
		Autonomous:  true,
		Worktree:    r.Worktree,
	}
	if out.Prompt == "" {
		out.Prompt = r.TaskAlias
	}
	if out.Schedule == "" {
		out.Schedule = r.CronAlias
	}
	if out.ProjectPath == "" {
		out.ProjectPath = r.ProjectAlias
	}
	if r.Autonomous != nil {
		out.Autonomous = *r.Autonomous
	}
	return out
}
