package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tubewatch/tubewatch/app/database"
)

const (
	// Fetch window lower bound for a channel that has never been checked.
	initialLookback = 24 * time.Hour

	SkipReasonInactive = "channel_inactive"
	SkipReasonInterval = "interval_not_elapsed"
)

// CheckResult summarizes one tracking run for a channel. Errors counts the
// videos whose processing or delivery failed, so a partially failed batch is
// distinguishable from a clean one.
type CheckResult struct {
	ChannelID         string
	ChannelName       string
	Skipped           bool
	SkipReason        string
	VideosFound       int
	VideosProcessed   int
	NotificationsSent int
	QueuedForRetry    int
	Errors            int
	NoNewVideos       bool
	CheckedAt         time.Time
}

// Workflow runs the tracking pass for a channel: gate on the check interval,
// fetch the window of new videos, run each through the processor, then
// advance the watermark.
type Workflow struct {
	channelRepo       database.ChannelRepository
	source            VideoSource
	processor         *Processor
	notifier          Notifier
	maxVideosPerCheck int

	now func() time.Time
}

func NewWorkflow(channelRepo database.ChannelRepository, source VideoSource,
	processor *Processor, notifier Notifier, maxVideosPerCheck int) *Workflow {
	return &Workflow{
		channelRepo:       channelRepo,
		source:            source,
		processor:         processor,
		notifier:          notifier,
		maxVideosPerCheck: maxVideosPerCheck,
		now:               time.Now,
	}
}

// CheckChannel polls one channel. With force set the interval gate is
// bypassed; the inactive gate always applies. The watermark advances on
// every completed poll, including polls that found nothing.
func (w *Workflow) CheckChannel(ctx context.Context, channelID string, force bool) (*CheckResult, error) {
	ch, err := w.channelRepo.GetChannel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %s is not registered", channelID)
	}

	now := w.now().UTC()
	result := &CheckResult{
		ChannelID:   ch.ChannelID,
		ChannelName: ch.Name,
		CheckedAt:   now,
	}

	if !ch.IsActive {
		result.Skipped = true
		result.SkipReason = SkipReasonInactive
		return result, nil
	}

	if !force && ch.LastCheck != nil {
		due := ch.LastCheck.Add(time.Duration(ch.CheckInterval) * time.Second)
		if now.Before(due) {
			slog.Debug("Channel not due for check", "channel_id", ch.ChannelID, "due_at", due)
			result.Skipped = true
			result.SkipReason = SkipReasonInterval
			return result, nil
		}
	}

	since := now.Add(-initialLookback)
	if ch.LastCheck != nil {
		since = *ch.LastCheck
	}

	feed, err := w.source.FetchLatest(ctx, ch.ChannelID, &since, w.maxVideosPerCheck)
	if err != nil {
		w.alertFetchFailure(ctx, ch, err)
		return nil, fmt.Errorf("failed to fetch videos for channel %s: %w", ch.ChannelID, err)
	}

	result.VideosFound = len(feed.Videos)

	for _, video := range feed.Videos {
		outcome, err := w.processor.Process(ctx, *ch, video)
		if err != nil {
			slog.Error("Video processing failed", "channel_id", ch.ChannelID, "video_id", video.VideoID, "error", err)
			result.Errors++
			continue
		}

		switch outcome.Status {
		case StatusAlreadyNotified:
			// Not counted: nothing new happened for this video.
		case StatusNotified:
			result.VideosProcessed++
			result.NotificationsSent++
		default:
			result.VideosProcessed++
			result.Errors++
			if outcome.Status == StatusQueuedRetry {
				result.QueuedForRetry++
			}
		}
	}

	result.NoNewVideos = len(feed.Videos) == 0

	// Videos arrive oldest first; the newest fetched ID becomes the channel's
	// last observed video. An empty poll leaves it unchanged.
	var lastVideoID *string
	if n := len(feed.Videos); n > 0 {
		id := feed.Videos[n-1].VideoID
		lastVideoID = &id
	}

	if err := w.channelRepo.UpdateChannelState(ch.ChannelID, now, lastVideoID); err != nil {
		return nil, fmt.Errorf("failed to advance channel watermark: %w", err)
	}

	slog.Info("Channel check completed",
		"channel_id", ch.ChannelID,
		"channel", ch.Name,
		"found", result.VideosFound,
		"processed", result.VideosProcessed,
		"notified", result.NotificationsSent,
		"queued_retry", result.QueuedForRetry,
		"errors", result.Errors)

	return result, nil
}

// alertFetchFailure tells the channel's chat that polling broke. Best-effort:
// a failed alert is only logged.
func (w *Workflow) alertFetchFailure(ctx context.Context, ch *database.Channel, cause error) {
	if ch.TelegramChatID == "" {
		return
	}

	err := w.notifier.SendErrorAlert(ctx, ch.TelegramChatID, ch.Name, "fetch_failure", cause.Error())
	if err != nil {
		slog.Warn("Failed to deliver fetch failure alert", "channel_id", ch.ChannelID, "error", err)
	}
}
