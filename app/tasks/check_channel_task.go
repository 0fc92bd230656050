package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// CheckChannelTask runs the scheduled (non-forced) tracking pass for one
// channel. The workflow re-reads channel state at execution time, so a
// channel deactivated between enqueue and execution is skipped there.
type CheckChannelTask struct {
	Task
	checker ChannelChecker
}

func NewCheckChannelTask(channelID string, checker ChannelChecker) *CheckChannelTask {
	return &CheckChannelTask{
		Task:    NewTask(TaskTypeCheckChannel, channelID),
		checker: checker,
	}
}

func (t *CheckChannelTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.checker.CheckChannel(ctx, t.ChannelID, false)
	if err != nil {
		return fmt.Errorf("channel check failed: %w", err)
	}

	if result.Skipped {
		slog.Debug("Task completed",
			"type", "CheckChannel",
			"channel_id", t.ChannelID,
			"skipped", result.SkipReason)
		return nil
	}

	slog.Info("Task completed",
		"type", "CheckChannel",
		"channel_id", t.ChannelID,
		"duration", t.GetDuration(),
		"found", result.VideosFound,
		"processed", result.VideosProcessed,
		"notified", result.NotificationsSent,
		"queued_retry", result.QueuedForRetry,
		"errors", result.Errors)

	return nil
}
