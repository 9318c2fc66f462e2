// Package notify delivers post-run summaries to external channels.
// Senders are thin "deliver text" collaborators: failures are logged
// and reported, never fatal, and never block task machinery.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/task"
)

// Sender delivers one message to a single channel.
type Sender interface {
	Deliver(ctx context.Context, message string) error
}

// Dispatcher fans a task's post-run summary out to the channels its
// notification flags select. A nil sender means the channel is not
// configured and is silently skipped.
type Dispatcher struct {
	telegram Sender
	slack    Sender
	logger   *zap.Logger
}

// NewDispatcher wires the configured senders. Either may be nil.
func NewDispatcher(telegram, slack Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		telegram: telegram,
		slack:    slack,
		logger:   logger.Named("notify"),
	}
}

// RunSummary sends the summary for a completed run to every enabled
// channel.
func (d *Dispatcher) RunSummary(ctx context.Context, t task.Task, message string) {
	if t.Notifications.Telegram && d.telegram != nil {
		if err := d.telegram.Deliver(ctx, message); err != nil {
			d.logger.Warn("telegram delivery failed",
				zap.String("task", t.ID), zap.Error(err))
		}
	}
	if t.Notifications.Slack && d.slack != nil {
		if err := d.slack.Deliver(ctx, message); err != nil {
			d.logger.Warn("slack delivery failed",
				zap.String("task", t.ID), zap.Error(err))
		}
	}
}
