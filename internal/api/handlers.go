package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentdeck/agentdeck/internal/cron"
	"github.com/agentdeck/agentdeck/internal/service"
	"github.com/agentdeck/agentdeck/internal/task"
	"github.com/agentdeck/agentdeck/internal/version"
)

// HealthCheck handles GET /api/v1/health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Version,
	})
}

// ListTasks handles GET /api/v1/tasks
func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	s.serviceResponse(w, http.StatusOK, s.svc.List())
}

// CreateTask handles POST /api/v1/tasks
func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateTaskRequest(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	res := s.svc.Create(task.Fields{
		Title:         req.Title,
		Prompt:        req.Prompt,
		Schedule:      req.Schedule,
		ProjectPath:   req.ProjectPath,
		AgentID:       req.AgentID,
		Autonomous:    req.Autonomous,
		Worktree:      req.Worktree,
		Notifications: req.Notifications,
	})
	s.serviceResponse(w, http.StatusCreated, res)
}

// GetTask handles GET /api/v1/tasks/{id}
func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	s.serviceResponse(w, http.StatusOK, s.svc.Get(chi.URLParam(r, "id")))
}

// UpdateTask handles PUT /api/v1/tasks/{id}
func (s *Server) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res := s.svc.Update(chi.URLParam(r, "id"), task.Update{
		Title:         req.Title,
		Prompt:        req.Prompt,
		Schedule:      req.Schedule,
		ProjectPath:   req.ProjectPath,
		AgentID:       req.AgentID,
		Autonomous:    req.Autonomous,
		Worktree:      req.Worktree,
		Notifications: req.Notifications,
	})
	s.serviceResponse(w, http.StatusOK, res)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}
func (s *Server) DeleteTask(w http.ResponseWriter, r *http.Request) {
	s.serviceResponse(w, http.StatusOK, s.svc.Delete(chi.URLParam(r, "id")))
}

// RunTask handles POST /api/v1/tasks/{id}/run
func (s *Server) RunTask(w http.ResponseWriter, r *http.Request) {
	s.serviceResponse(w, http.StatusAccepted, s.svc.RunNow(chi.URLParam(r, "id")))
}

// GetTaskLogs handles GET /api/v1/tasks/{id}/logs
func (s *Server) GetTaskLogs(w http.ResponseWriter, r *http.Request) {
	s.serviceResponse(w, http.StatusOK, s.svc.Logs(chi.URLParam(r, "id")))
}

// GetTaskRuns handles GET /api/v1/tasks/{id}/runs, the reconstructed
// run list without the raw log text.
func (s *Server) GetTaskRuns(w http.ResponseWriter, r *http.Request) {
	res := s.svc.Logs(chi.URLParam(r, "id"))
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": res.Success,
		"runs":    res.Runs,
		"total":   len(res.Runs),
	})
}

// DescribeCron handles GET /api/v1/cron/describe?expr=
func (s *Server) DescribeCron(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("expr")
	if expr == "" {
		s.errorResponse(w, http.StatusBadRequest, "expr query parameter is required", nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, DescribeResponse{
		Expr:  expr,
		Human: cron.Describe(expr),
	})
}

// StreamTaskLogs handles GET /api/v1/tasks/{id}/logs/stream as SSE.
// The connection tails the task's log file; each growth event becomes
// an "output" event and a completion marker becomes a "complete" event
// that closes the stream.
func (s *Server) StreamTaskLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.errorResponse(w, http.StatusInternalServerError, "Streaming not supported", nil)
		return
	}

	taskID := chi.URLParam(r, "id")
	clientID := middleware.GetReqID(r.Context())
	client := s.streams.Subscribe(taskID, clientID)
	defer s.streams.Unsubscribe(taskID, clientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case chunk := <-client.Chunks:
			writeSSE(w, "output", chunk)
			flusher.Flush()
		case ev := <-client.Complete:
			writeSSE(w, "complete", ev)
			flusher.Flush()
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

// serviceResponse maps a structured service result onto HTTP status
// codes: not-found and validation failures keep their conventional
// codes, everything else that failed is a 500.
func (s *Server) serviceResponse(w http.ResponseWriter, okStatus int, res any) {
	switch r := res.(type) {
	case service.Result:
		s.writeResult(w, okStatus, r, res)
	case service.TaskResult:
		s.writeResult(w, okStatus, r.Result, res)
	case service.ListResult:
		s.writeResult(w, okStatus, r.Result, res)
	case service.LogsResult:
		s.writeResult(w, okStatus, r.Result, res)
	default:
		s.jsonResponse(w, okStatus, res)
	}
}

func (s *Server) writeResult(w http.ResponseWriter, okStatus int, r service.Result, body any) {
	if r.Success {
		s.jsonResponse(w, okStatus, body)
		return
	}
	status := http.StatusInternalServerError
	switch {
	case r.Error == "Task not found":
		status = http.StatusNotFound
	case strings.HasPrefix(r.Error, "invalid schedule"):
		status = http.StatusBadRequest
	}
	s.jsonResponse(w, status, body)
}

func validateTaskRequest(req *TaskRequest) error {
	if req.Prompt == "" {
		return errEmptyPrompt
	}
	if req.Schedule == "" {
		return errEmptySchedule
	}
	return nil
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	s.jsonResponse(w, status, resp)
}

type validationError string

func (e validationError) Error() string { return string(e) }

const (
	errEmptyPrompt   validationError = "Prompt is required"
	errEmptySchedule validationError = "Schedule is required"
)
