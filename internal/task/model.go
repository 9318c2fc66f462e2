package task

import "time"

// Task represents a scheduled agent task.
//
// The persisted record is split across two files: the core fields the
// generated job script needs live in a scope collection, while UI-only
// fields (title, notification flags, creation time) live in a metadata
// sidecar keyed by ID. The store reassembles both into this struct.
type Task struct {
	ID            string        `json:"id"`
	Title         string        `json:"title,omitempty"`
	Prompt        string        `json:"prompt"`
	Schedule      string        `json:"schedule"`
	ProjectPath   string        `json:"projectPath"`
	AgentID       string        `json:"agentId,omitempty"`
	Autonomous    bool          `json:"autonomous"`
	Worktree      *Worktree     `json:"worktree,omitempty"`
	Notifications Notifications `json:"notifications"`
	CreatedAt     time.Time     `json:"createdAt"`

	// Derived fields, never persisted. Populated by the service layer
	// from the cron translator and the run log.
	ScheduleHuman string     `json:"scheduleHuman,omitempty"`
	NextRun       *time.Time `json:"nextRun,omitempty"`
	LastRun       string     `json:"lastRun,omitempty"`
	LastRunStatus RunStatus  `json:"lastRunStatus,omitempty"`
}

// Worktree requests an isolated version-control branch per run.
type Worktree struct {
	Enabled      bool   `json:"enabled"`
	BranchPrefix string `json:"branchPrefix,omitempty"`
}

// Notifications selects the channels that receive a post-run summary.
type Notifications struct {
	Telegram bool `json:"telegram"`
	Slack    bool `json:"slack"`
}

// RunStatus is the inferred outcome of a single run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// Run is one execution segment reconstructed from a task's log file.
// StartedAt is the raw timestamp string captured from the start marker;
// CompletedAt is empty while the run is still in progress.
type Run struct {
	StartedAt   string    `json:"startedAt"`
	CompletedAt string    `json:"completedAt,omitempty"`
	Content     string    `json:"content"`
	Status      RunStatus `json:"status"`
}

// Fields carries the writable attributes for task creation.
type Fields struct {
	Title         string
	Prompt        string
	Schedule      string
	ProjectPath   string
	AgentID       string
	Autonomous    *bool
	Worktree      *Worktree
	Notifications *Notifications
}

// Update carries a partial update; nil members are left untouched.
type Update struct {
	Title         *string
	Prompt        *string
	Schedule      *string
	ProjectPath   *string
	AgentID       *string
	Autonomous    *bool
	Worktree      *Worktree
	Notifications *Notifications
}
