package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tubewatch/tubewatch/app/database"
	"github.com/tubewatch/tubewatch/app/notify"
	"github.com/tubewatch/tubewatch/app/tracker"
)

const (
	maxRetryBackoff = time.Hour

	// Bound on concurrent sends while draining; the notifier's per-chat
	// throttle still spaces out messages to the same chat.
	drainConcurrency = 3
)

// RetryDrainTask delivers due entries from the retry queue. Each entry is
// checked against the video's dedup flag first, so a video notified through
// another path since enqueueing is dropped without a send.
type RetryDrainTask struct {
	Task
	retryRepo        database.RetryQueueRepository
	videoRepo        database.VideoRepository
	notificationRepo database.NotificationRepository
	notifier         tracker.Notifier
	maxAttempts      int
	baseDelay        time.Duration
}

func NewRetryDrainTask(retryRepo database.RetryQueueRepository, videoRepo database.VideoRepository,
	notificationRepo database.NotificationRepository, notifier tracker.Notifier,
	maxAttempts int, baseDelay time.Duration) *RetryDrainTask {
	return &RetryDrainTask{
		Task:             NewTask(TaskTypeRetryDrain, ""),
		retryRepo:        retryRepo,
		videoRepo:        videoRepo,
		notificationRepo: notificationRepo,
		notifier:         notifier,
		maxAttempts:      maxAttempts,
		baseDelay:        baseDelay,
	}
}

func (t *RetryDrainTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	due, err := t.retryRepo.GetDue(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to load due retry entries: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	delivered, dropped, rescheduled := 0, 0, 0

	// First pass drops entries whose video was delivered through another
	// path since enqueueing; the rest are sent as one bounded batch.
	var pending []database.RetryEntry
	var msgs []notify.Message

	for _, entry := range due {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		video, err := t.videoRepo.GetVideo(entry.VideoID)
		if err != nil {
			slog.Warn("Failed to load video for retry entry", "video_id", entry.VideoID, "error", err)
			rescheduled++
			continue
		}

		if video != nil && video.NotificationSent {
			t.remove(entry, "already notified")
			dropped++
			continue
		}

		pending = append(pending, entry)
		msgs = append(msgs, t.message(entry))
	}

	results := t.notifier.SendBatch(ctx, msgs, drainConcurrency)

	for i, entry := range pending {
		switch t.settle(entry, results[i]) {
		case drainDelivered:
			delivered++
		case drainDropped:
			dropped++
		case drainRescheduled:
			rescheduled++
		}
	}

	slog.Info("Task completed",
		"type", "RetryDrain",
		"duration", t.GetDuration(),
		"due", len(due),
		"delivered", delivered,
		"dropped", dropped,
		"rescheduled", rescheduled)

	return nil
}

type drainOutcome int

const (
	drainDelivered drainOutcome = iota
	drainDropped
	drainRescheduled
)

func (t *RetryDrainTask) message(entry database.RetryEntry) notify.Message {
	msg := notify.Message{
		ChatID:       entry.ChatID,
		VideoID:      entry.VideoID,
		ChannelID:    entry.ChannelID,
		Title:        entry.Title,
		URL:          "https://www.youtube.com/watch?v=" + entry.VideoID,
		ThumbnailURL: entry.ThumbnailURL,
		Summary:      entry.Summary,
	}
	if entry.PublishedAt != nil {
		msg.PublishedAt = *entry.PublishedAt
	}
	return msg
}

// settle applies one batch send result to its queue entry.
func (t *RetryDrainTask) settle(entry database.RetryEntry, result notify.Result) drainOutcome {
	if result.Success {
		if _, err := t.videoRepo.MarkNotified(entry.VideoID); err != nil {
			slog.Warn("Failed to mark video notified after retry delivery", "video_id", entry.VideoID, "error", err)
		}
		t.recordDelivery(entry, result)
		t.remove(entry, "delivered")
		return drainDelivered
	}

	attempts := entry.Attempts + 1
	if attempts >= t.maxAttempts {
		slog.Warn("Retry attempts exhausted, dropping entry",
			"video_id", entry.VideoID, "chat_id", entry.ChatID, "attempts", attempts, "error", result.Err)
		t.recordDelivery(entry, result)
		t.remove(entry, "exhausted")
		return drainDropped
	}

	reason := ""
	if result.Err != nil {
		reason = result.Err.Error()
	}

	nextAttempt := time.Now().UTC().Add(t.backoff(attempts))
	if err := t.retryRepo.BumpAttempt(entry.ID, nextAttempt, reason); err != nil {
		slog.Error("Failed to reschedule retry entry", "video_id", entry.VideoID, "error", err)
	}

	return drainRescheduled
}

func (t *RetryDrainTask) backoff(attempts int) time.Duration {
	delay := t.baseDelay * time.Duration(1<<uint(attempts-1))
	if delay > maxRetryBackoff || delay <= 0 {
		delay = maxRetryBackoff
	}
	return delay
}

func (t *RetryDrainTask) recordDelivery(entry database.RetryEntry, result notify.Result) {
	n := database.Notification{
		VideoID:    entry.VideoID,
		ChannelID:  entry.ChannelID,
		ChatID:     entry.ChatID,
		Type:       "new_video",
		MessageID:  result.MessageID,
		Success:    result.Success,
		RetryCount: entry.Attempts + 1,
	}
	if result.Err != nil {
		n.ErrorMessage = result.Err.Error()
	}

	if err := t.notificationRepo.RecordDelivery(n); err != nil {
		slog.Warn("Failed to record retry delivery audit entry", "video_id", entry.VideoID, "error", err)
	}
}

func (t *RetryDrainTask) remove(entry database.RetryEntry, why string) {
	if err := t.retryRepo.Remove(entry.ID); err != nil {
		slog.Warn("Failed to remove retry entry", "video_id", entry.VideoID, "reason", why, "error", err)
	}
}
