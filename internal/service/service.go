// Package service is the boundary the UI and automation surfaces call.
// Every operation returns a structured result instead of an error: the
// caller sits across a process boundary and must never see a panic or
// a bare failure that could be mistaken for lost data.
package service

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/cron"
	"github.com/agentdeck/agentdeck/internal/executor"
	"github.com/agentdeck/agentdeck/internal/notify"
	"github.com/agentdeck/agentdeck/internal/osched"
	"github.com/agentdeck/agentdeck/internal/runlog"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/internal/task"
)

// Result is the common envelope. A Warning reports a degraded but
// non-fatal outcome, typically a native scheduler registration failure
// while the task record itself is safely stored.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// TaskResult carries the affected task on success.
type TaskResult struct {
	Result
	Task *task.Task `json:"task,omitempty"`
}

// ListResult carries the merged task collection.
type ListResult struct {
	Result
	Tasks []task.Task `json:"tasks"`
}

// LogsResult carries a task's reconstructed run history.
type LogsResult struct {
	Result
	Runs    []task.Run `json:"runs"`
	RawLogs string     `json:"rawLogs"`
}

func ok() Result                { return Result{Success: true} }
func fail(msg string) Result    { return Result{Success: false, Error: msg} }
func warning(msg string) Result { return Result{Success: true, Warning: msg} }

// Service composes the store, the scheduler adapter and the executor
// behind one facade.
type Service struct {
	store    *store.Store
	adapter  osched.Adapter
	scripts  osched.ScriptBuilder
	exec     *executor.Executor
	notifier *notify.Dispatcher
	logger   *zap.Logger
	cache    *statusCache
	now      func() time.Time
}

func New(st *store.Store, adapter osched.Adapter, scripts osched.ScriptBuilder, exec *executor.Executor, notifier *notify.Dispatcher, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		adapter:  adapter,
		scripts:  scripts,
		exec:     exec,
		notifier: notifier,
		logger:   logger.Named("service"),
		cache:    newStatusCache(),
		now:      time.Now,
	}
}

// List returns every task, decorated with the derived display fields:
// the human-readable schedule, the predicted next firing, and the last
// run's start time and inferred status from the log file.
func (s *Service) List() ListResult {
	tasks, err := s.store.List()
	if err != nil {
		return ListResult{Result: fail(err.Error())}
	}
	for i := range tasks {
		s.decorate(&tasks[i])
	}
	return ListResult{Result: ok(), Tasks: tasks}
}

// Get returns a single decorated task.
func (s *Service) Get(id string) TaskResult {
	t, err := s.store.Get(id)
	if err != nil {
		return TaskResult{Result: fail("Task not found")}
	}
	s.decorate(&t)
	return TaskResult{Result: ok(), Task: &t}
}

// Create stores the task and registers it with the OS scheduler. The
// record is written first: a registration failure downgrades to a
// warning, it never loses the task.
func (s *Service) Create(fields task.Fields) TaskResult {
	if err := cron.Validate(fields.Schedule); err != nil {
		return TaskResult{Result: fail("invalid schedule: " + err.Error())}
	}
	t, err := s.store.Create(fields)
	if err != nil {
		return TaskResult{Result: fail(err.Error())}
	}

	res := ok()
	if _, err := s.adapter.Install(t); err != nil {
		s.logger.Warn("scheduler registration failed",
			zap.String("task", t.ID), zap.Error(err))
		res = warning("task saved but scheduler registration failed: " + err.Error())
	}
	s.decorate(&t)
	return TaskResult{Result: res, Task: &t}
}

// Update applies a partial update and re-installs the job so the
// generated script tracks the stored record.
func (s *Service) Update(id string, upd task.Update) TaskResult {
	if upd.Schedule != nil {
		if err := cron.Validate(*upd.Schedule); err != nil {
			return TaskResult{Result: fail("invalid schedule: " + err.Error())}
		}
	}
	t, scheduleChanged, err := s.store.Update(id, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TaskResult{Result: fail("Task not found")}
		}
		return TaskResult{Result: fail(err.Error())}
	}
	if scheduleChanged {
		s.logger.Info("schedule changed, re-registering",
			zap.String("task", id), zap.String("schedule", t.Schedule))
	}

	res := ok()
	if _, err := s.adapter.Install(t); err != nil {
		s.logger.Warn("scheduler re-registration failed",
			zap.String("task", id), zap.Error(err))
		res = warning("task updated but scheduler registration failed: " + err.Error())
	}
	s.decorate(&t)
	return TaskResult{Result: res, Task: &t}
}

// Delete removes the task record, its native job and its script.
// Deleting an unknown id succeeds: the desired end state holds.
func (s *Service) Delete(id string) Result {
	if err := s.store.Delete(id); err != nil {
		return fail(err.Error())
	}
	res := ok()
	if err := s.adapter.Uninstall(id); err != nil {
		s.logger.Warn("scheduler unregistration failed",
			zap.String("task", id), zap.Error(err))
		res = warning("task deleted but scheduler unregistration failed: " + err.Error())
	}
	if err := s.scripts.Remove(id); err != nil {
		s.logger.Warn("script removal failed",
			zap.String("task", id), zap.Error(err))
	}
	s.cache.invalidate(id)
	return res
}

// RunNow fires the task immediately, outside its schedule.
func (s *Service) RunNow(id string) Result {
	if err := s.exec.RunNow(id); err != nil {
		if errors.Is(err, executor.ErrTaskNotFound) {
			return fail("Task not found")
		}
		return fail(err.Error())
	}
	s.cache.invalidate(id)
	return ok()
}

// Logs reconstructs the task's run history from its log files. Missing
// logs yield an empty history, matching a task that has never run.
func (s *Service) Logs(id string) LogsResult {
	layout := s.store.Layout()
	h := runlog.ParseFiles(layout.Log(id), layout.ErrorLog(id))
	return LogsResult{Result: ok(), Runs: h.Runs, RawLogs: h.RawLogs}
}

// FixPaths rewrites installed job definitions after the application
// binary or data directory moved.
func (s *Service) FixPaths() Result {
	if err := s.adapter.FixPaths(); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func (s *Service) decorate(t *task.Task) {
	t.ScheduleHuman = cron.Describe(t.Schedule)
	if next, ok := cron.Next(t.Schedule, s.now()); ok {
		t.NextRun = &next
	}
	layout := s.store.Layout()
	lastRun, status := s.cache.lookup(t.ID, layout.Log(t.ID), layout.ErrorLog(t.ID))
	t.LastRun = lastRun
	t.LastRunStatus = status
}
