// Package store persists task records across two storage scopes: one
// global collection and one collection per project. A task is created
// into exactly one scope, but migrations can leave the same ID visible
// from both, so every read merges by ID before anything downstream
// sees the list.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/paths"
	"github.com/agentdeck/agentdeck/internal/task"
)

// ErrNotFound is returned when no scope contains the requested task.
var ErrNotFound = errors.New("task not found")

// Store owns the scope collections and the metadata sidecar. The HTTP
// layer dispatches requests concurrently, so every operation holds mu
// across its full read-modify-write; writes are additionally atomic so
// a natively-fired job never reads a half-written collection.
type Store struct {
	layout paths.Layout
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New creates a store rooted at dataDir.
func New(dataDir string, logger *zap.Logger) *Store {
	return &Store{
		layout: paths.Layout{DataDir: dataDir},
		logger: logger.Named("store"),
		now:    time.Now,
	}
}

// Layout exposes the on-disk layout for collaborators that derive
// script and log paths.
func (s *Store) Layout() paths.Layout { return s.layout }

// List reads every scope, normalizes legacy field aliases, merges by
// ID (first seen wins) and attaches sidecar metadata. Missing or
// corrupt collections are treated as empty; the next write to that
// scope rewrites it wholesale, which resets the corruption.
func (s *Store) List() ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.readMeta()

	seen := make(map[string]bool)
	var out []task.Task
	for _, scope := range s.scopePaths() {
		for _, rec := range s.readScope(scope) {
			if rec.ID == "" || seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			out = append(out, s.assemble(rec, meta[rec.ID]))
		}
	}
	return out, nil
}

// Get locates a task by ID across all scopes.
func (s *Store) Get(id string) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, idx := s.find(id)
	if idx < 0 {
		return task.Task{}, ErrNotFound
	}
	meta := s.readMeta()
	return s.assemble(rec, meta[id]), nil
}

// Create assigns a fresh ID and appends the task to its canonical
// scope: the owning project's collection when a project path is set,
// the global collection otherwise.
func (s *Store) Create(fields task.Fields) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{
		ID:          uuid.NewString(),
		Prompt:      fields.Prompt,
		Schedule:    fields.Schedule,
		ProjectPath: fields.ProjectPath,
		AgentID:     fields.AgentID,
		Autonomous:  true,
		Worktree:    fields.Worktree,
	}
	if fields.Autonomous != nil {
		rec.Autonomous = *fields.Autonomous
	}

	scope := s.layout.GlobalTasks()
	if rec.ProjectPath != "" {
		scope = s.layout.ProjectTasks(rec.ProjectPath)
	}
	records := s.readScope(scope)
	records = append(records, rec)
	if err := s.writeScope(scope, records); err != nil {
		return task.Task{}, fmt.Errorf("persist task: %w", err)
	}

	m := metaEntry{CreatedAt: s.now()}
	m.Title = fields.Title
	if fields.Notifications != nil {
		m.Notifications = *fields.Notifications
	}
	if err := s.putMeta(rec.ID, m); err != nil {
		s.logger.Warn("metadata write failed", zap.String("id", rec.ID), zap.Error(err))
	}

	t := s.assemble(rec, m)
	s.logger.Info("task created",
		zap.String("id", rec.ID),
		zap.String("schedule", rec.Schedule),
		zap.String("project", rec.ProjectPath))
	return t, nil
}

// Update applies only the explicitly provided fields to an existing
// task and reports whether the schedule changed, so the caller knows
// to re-register the native job.
func (s *Store) Update(id string, upd task.Update) (task.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, scope, idx := s.find(id)
	if idx < 0 {
		return task.Task{}, false, ErrNotFound
	}

	scheduleChanged := false
	if upd.Prompt != nil {
		rec.Prompt = *upd.Prompt
	}
	if upd.Schedule != nil && *upd.Schedule != rec.Schedule {
		rec.Schedule = *upd.Schedule
		scheduleChanged = true
	}
	if upd.ProjectPath != nil {
		rec.ProjectPath = *upd.ProjectPath
	}
	if upd.AgentID != nil {
		rec.AgentID = *upd.AgentID
	}
	if upd.Autonomous != nil {
		rec.Autonomous = *upd.Autonomous
	}
	if upd.Worktree != nil {
		rec.Worktree = upd.Worktree
	}

	records := s.readScope(scope)
	records[idx] = rec
	if err := s.writeScope(scope, records); err != nil {
		return task.Task{}, false, fmt.Errorf("persist task: %w", err)
	}

	meta := s.readMeta()
	m := meta[id]
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	if upd.Title != nil {
		m.Title = *upd.Title
	}
	if upd.Notifications != nil {
		m.Notifications = *upd.Notifications
	}
	if err := s.putMeta(id, m); err != nil {
		s.logger.Warn("metadata write failed", zap.String("id", id), zap.Error(err))
	}

	return s.assemble(rec, m), scheduleChanged, nil
}

// Delete removes the task from whichever scopes hold it. Deleting an
// absent ID succeeds: the desired end state is already true.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, scope := range s.scopePaths() {
		records := s.readScope(scope)
		kept := records[:0]
		for _, rec := range records {
			if rec.ID == id {
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == len(records) {
			continue
		}
		if err := s.writeScope(scope, kept); err != nil {
			return fmt.Errorf("persist scope: %w", err)
		}
	}
	if err := s.deleteMeta(id); err != nil {
		s.logger.Warn("metadata delete failed", zap.String("id", id), zap.Error(err))
	}
	return nil
}

// find returns the normalized record, its scope path and its index in
// that scope, or idx -1 when absent everywhere. Caller holds mu.
func (s *Store) find(id string) (record, string, int) {
	for _, scope := range s.scopePaths() {
		for i, rec := range s.readScope(scope) {
			if rec.ID == id {
				return rec, scope, i
			}
		}
	}
	return record{}, "", -1
}

// scopePaths lists the global collection first, then every project
// collection in deterministic order, which fixes the first-seen-wins
// merge ordering.
func (s *Store) scopePaths() []string {
	out := []string{s.layout.GlobalTasks()}
	entries, err := os.ReadDir(s.layout.ProjectsDir())
	if err != nil {
		return out
	}
	var projects []string
	for _, e := range entries {
		if e.IsDir() {
			projects = append(projects, filepath.Join(s.layout.ProjectsDir(), e.Name(), "tasks.json"))
		}
	}
	sort.Strings(projects)
	return append(out, projects...)
}

func (s *Store) readScope(path string) []record {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var raw []rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("scope file unreadable, treating as empty",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	out := make([]record, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.normalize())
	}
	return out
}

func (s *Store) writeScope(path string, records []record) error {
	if records == nil {
		records = []record{}
	}
	return writeJSONAtomic(path, records)
}

func (s *Store) assemble(rec record, m metaEntry) task.Task {
	return task.Task{
		ID:            rec.ID,
		Title:         m.Title,
		Prompt:        rec.Prompt,
		Schedule:      rec.Schedule,
		ProjectPath:   rec.ProjectPath,
		AgentID:       rec.AgentID,
		Autonomous:    rec.Autonomous,
		Worktree:      rec.Worktree,
		Notifications: m.Notifications,
		CreatedAt:     m.CreatedAt,
	}
}

// writeJSONAtomic persists via write-to-temp-then-rename so a native
// job firing mid-write never observes a half-written collection.
func writeJSONAtomic(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp-%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
