package tracker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/tubewatch/tubewatch/app/database"
	"github.com/tubewatch/tubewatch/app/notify"
	"github.com/tubewatch/tubewatch/app/source"
)

type ProcessStatus string

const (
	// StatusNotified means delivery succeeded and the dedup flag was set.
	StatusNotified ProcessStatus = "notified"
	// StatusAlreadyNotified means the video had been delivered before; no
	// summarization and no delivery attempt happened.
	StatusAlreadyNotified ProcessStatus = "already_notified"
	// StatusQueuedRetry means delivery failed and the video was queued for
	// a later attempt.
	StatusQueuedRetry ProcessStatus = "queued_retry"
	// StatusFailed means delivery failed and the failure is not retryable.
	StatusFailed ProcessStatus = "failed"
)

// ProcessResult reports the outcome of each pipeline step independently:
// a failed summarization does not cancel a successful delivery and vice
// versa. Persistence failures are returned as the Process error instead.
type ProcessResult struct {
	Status     ProcessStatus
	Summarized bool
	SummaryErr error
	NotifyErr  error
}

const lockStripes = 64

// Processor runs one video through the summarize-notify-persist pipeline.
//
// A striped per-video lock serializes overlapping invocations for the same
// video within the process; combined with the repository's monotonic
// notification_sent handling this keeps delivery at most once.
type Processor struct {
	videoRepo        database.VideoRepository
	notificationRepo database.NotificationRepository
	retryRepo        database.RetryQueueRepository
	summarizer       Summarizer
	notifier         Notifier
	extractor        DescriptionExtractor // optional
	maxRetryAttempts int
	retryDelay       time.Duration

	locks [lockStripes]sync.Mutex
}

func NewProcessor(videoRepo database.VideoRepository, notificationRepo database.NotificationRepository,
	retryRepo database.RetryQueueRepository, summarizer Summarizer, notifier Notifier,
	maxRetryAttempts int, retryDelay time.Duration) *Processor {
	return &Processor{
		videoRepo:        videoRepo,
		notificationRepo: notificationRepo,
		retryRepo:        retryRepo,
		summarizer:       summarizer,
		notifier:         notifier,
		maxRetryAttempts: maxRetryAttempts,
		retryDelay:       retryDelay,
	}
}

// WithDescriptionExtractor enables the watch page fallback for feed entries
// without a description.
func (p *Processor) WithDescriptionExtractor(extractor DescriptionExtractor) *Processor {
	p.extractor = extractor
	return p
}

func (p *Processor) lockFor(videoID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(videoID))
	return &p.locks[h.Sum32()%lockStripes]
}

// Process handles one fetched video for a channel. Summarization is
// best-effort and delivery is always attempted for a video that has not been
// notified yet, even with no summary. The outcome is persisted regardless of
// delivery success.
func (p *Processor) Process(ctx context.Context, ch database.Channel, v source.Video) (ProcessResult, error) {
	lock := p.lockFor(v.VideoID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := p.videoRepo.GetVideo(v.VideoID)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("failed to load video state: %w", err)
	}

	if existing != nil && existing.NotificationSent {
		slog.Debug("Video already notified, skipping", "video_id", v.VideoID)
		return ProcessResult{Status: StatusAlreadyNotified}, nil
	}

	summary, summarized, summaryErr := p.resolveSummary(ctx, existing, v)

	result := p.notifier.Send(ctx, notify.Message{
		ChatID:       ch.TelegramChatID,
		VideoID:      v.VideoID,
		ChannelID:    ch.ChannelID,
		ChannelName:  ch.Name,
		Title:        v.Title,
		URL:          v.URL,
		ThumbnailURL: v.ThumbnailURL,
		PublishedAt:  v.PublishedAt,
		ViewCount:    v.ViewCount,
		Summary:      summary,
	})

	err = p.videoRepo.UpsertVideo(database.VideoUpsert{
		VideoID:          v.VideoID,
		ChannelID:        ch.ChannelID,
		Title:            v.Title,
		Description:      v.Description,
		PublishedAt:      v.PublishedAt,
		ThumbnailURL:     v.ThumbnailURL,
		ViewCount:        v.ViewCount,
		Summary:          summary,
		NotificationSent: result.Success,
	})
	if err != nil {
		return ProcessResult{}, fmt.Errorf("failed to persist video: %w", err)
	}

	p.recordDelivery(ch, v, result)

	outcome := ProcessResult{
		Summarized: summarized,
		SummaryErr: summaryErr,
		NotifyErr:  result.Err,
	}

	if result.Success {
		outcome.Status = StatusNotified
		return outcome, nil
	}

	slog.Warn("Notification delivery failed", "video_id", v.VideoID, "chat_id", ch.TelegramChatID, "error", result.Err)

	if isRetryable(result.Err) && p.enqueueRetry(ch, v, summary, result.Err) {
		outcome.Status = StatusQueuedRetry
		return outcome, nil
	}

	outcome.Status = StatusFailed
	return outcome, nil
}

// resolveSummary returns the summary to deliver with, whether a new summary
// was generated, and the summarization error if one occurred. A known video
// reuses whatever was stored on the first pass and is never summarized again;
// a new video gets one best-effort summarization attempt.
func (p *Processor) resolveSummary(ctx context.Context, existing *database.Video, v source.Video) (*string, bool, error) {
	if existing != nil {
		return existing.Summary, false, nil
	}

	description := v.Description
	if description == "" && p.extractor != nil {
		extracted, err := p.extractor.Run(ctx, v.URL)
		if err != nil {
			slog.Debug("Watch page extraction failed", "video_id", v.VideoID, "error", err)
		} else {
			description = extracted
		}
	}

	text, err := p.summarizer.Run(ctx, v.Title, description)
	if err != nil {
		slog.Warn("Summarization failed, notifying without summary", "video_id", v.VideoID, "error", err)
		return nil, false, err
	}

	return &text, true, nil
}

func (p *Processor) recordDelivery(ch database.Channel, v source.Video, result notify.Result) {
	n := database.Notification{
		VideoID:   v.VideoID,
		ChannelID: ch.ChannelID,
		ChatID:    ch.TelegramChatID,
		Type:      "new_video",
		MessageID: result.MessageID,
		Success:   result.Success,
	}
	if result.Err != nil {
		n.ErrorMessage = result.Err.Error()
	}

	if err := p.notificationRepo.RecordDelivery(n); err != nil {
		slog.Warn("Failed to record delivery audit entry", "video_id", v.VideoID, "error", err)
	}
}

func (p *Processor) enqueueRetry(ch database.Channel, v source.Video, summary *string, cause error) bool {
	publishedAt := v.PublishedAt
	entry := database.RetryEntry{
		VideoID:       v.VideoID,
		ChannelID:     ch.ChannelID,
		ChatID:        ch.TelegramChatID,
		Title:         v.Title,
		ThumbnailURL:  v.ThumbnailURL,
		PublishedAt:   &publishedAt,
		Summary:       summary,
		NextAttemptAt: time.Now().Add(p.retryDelay),
	}
	if cause != nil {
		entry.Reason = cause.Error()
	}

	err := p.retryRepo.Enqueue(entry, p.maxRetryAttempts)
	switch {
	case err == nil:
		return true
	case errors.Is(err, database.ErrRetryExists):
		slog.Debug("Retry entry already queued", "video_id", v.VideoID, "chat_id", ch.TelegramChatID)
		return true
	case errors.Is(err, database.ErrRetryExhausted):
		slog.Warn("Retry attempts exhausted, dropping video", "video_id", v.VideoID, "chat_id", ch.TelegramChatID)
		return false
	default:
		slog.Error("Failed to enqueue retry entry", "video_id", v.VideoID, "error", err)
		return false
	}
}

// isRetryable reports whether a delivery failure is worth queueing. Broken
// credentials and missing chats will not fix themselves by waiting.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, notify.ErrAuth) && !errors.Is(err, notify.ErrChatNotFound)
}
