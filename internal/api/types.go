package api

import "github.com/agentdeck/agentdeck/internal/task"

// TaskRequest is the body for task creation.
type TaskRequest struct {
	Title         string              `json:"title"`
	Prompt        string              `json:"prompt"`
	Schedule      string              `json:"schedule"`
	ProjectPath   string              `json:"projectPath"`
	AgentID       string              `json:"agentId"`
	Autonomous    *bool               `json:"autonomous"`
	Worktree      *task.Worktree      `json:"worktree"`
	Notifications *task.Notifications `json:"notifications"`
}

// UpdateRequest is the body for a partial task update. Absent fields
// are left untouched.
type UpdateRequest struct {
	Title         *string             `json:"title"`
	Prompt        *string             `json:"prompt"`
	Schedule      *string             `json:"schedule"`
	ProjectPath   *string             `json:"projectPath"`
	AgentID       *string             `json:"agentId"`
	Autonomous    *bool               `json:"autonomous"`
	Worktree      *task.Worktree      `json:"worktree"`
	Notifications *task.Notifications `json:"notifications"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// DescribeResponse is the translator preview body.
type DescribeResponse struct {
	Expr  string `json:"expr"`
	Human string `json:"human"`
}
