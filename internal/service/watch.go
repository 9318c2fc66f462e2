package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/runlog"
	"github.com/agentdeck/agentdeck/internal/task"
)

// WatchCompletions polls for newly completed runs and dispatches the
// post-run summaries. Scheduled runs are fired by the OS directly from
// the job script, so this process only learns about them from the log
// files; polling the completion markers is the one signal that covers
// native, fallback and manual firings alike.
//
// Blocks until ctx is cancelled.
func (s *Service) WatchCompletions(ctx context.Context, interval time.Duration) {
	if s.notifier == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	// Runs completed before the watcher started are not announced.
	seen := make(map[string]string)
	s.sweepCompletions(ctx, seen, true)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepCompletions(ctx, seen, false)
		}
	}
}

func (s *Service) sweepCompletions(ctx context.Context, seen map[string]string, prime bool) {
	tasks, err := s.store.List()
	if err != nil {
		s.logger.Warn("completion sweep: listing tasks failed", zap.Error(err))
		return
	}

	layout := s.store.Layout()
	for _, t := range tasks {
		if !t.Notifications.Telegram && !t.Notifications.Slack {
			continue
		}
		h := runlog.ParseFiles(layout.Log(t.ID), layout.ErrorLog(t.ID))
		last := latestCompleted(h.Runs)
		if last == nil {
			continue
		}
		if seen[t.ID] == last.CompletedAt {
			continue
		}
		seen[t.ID] = last.CompletedAt
		if prime {
			continue
		}
		s.notifier.RunSummary(ctx, t, summaryMessage(t, *last))
	}
}

func latestCompleted(runs []task.Run) *task.Run {
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].CompletedAt != "" {
			return &runs[i]
		}
	}
	return nil
}

func summaryMessage(t task.Task, run task.Run) string {
	name := t.Title
	if name == "" {
		name = t.ID
	}
	switch run.Status {
	case task.RunStatusError:
		return fmt.Sprintf("❌ Task %q finished with errors at %s", name, run.CompletedAt)
	default:
		return fmt.Sprintf("✅ Task %q completed at %s", name, run.CompletedAt)
	}
}
