package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/tubewatch/tubewatch/app/database"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrChannelNotFound = errors.New("channel not found")
	ErrInvalidChannel  = errors.New("invalid channel ID")
	ErrInvalidChatID   = errors.New("invalid telegram chat ID")
)

const (
	DefaultCheckInterval = 3600 // seconds
	minCheckInterval     = 60
)

// Channel IDs are 24 characters starting with "UC"; chat IDs are numeric,
// negative for groups.
var (
	channelIDPattern = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)
	chatIDPattern    = regexp.MustCompile(`^-?[0-9]+$`)
)

// Orchestrator is the management surface for channel tracking: registration,
// removal, manual checks, and status. Manual checks go through the circuit
// breaker; the scheduled path does not.
type Orchestrator struct {
	channelRepo      database.ChannelRepository
	videoRepo        database.VideoRepository
	notificationRepo database.NotificationRepository
	retryRepo        database.RetryQueueRepository
	workflow         *Workflow
	breaker          *CircuitBreaker
	source           VideoSource
}

func NewOrchestrator(channelRepo database.ChannelRepository, videoRepo database.VideoRepository,
	notificationRepo database.NotificationRepository, retryRepo database.RetryQueueRepository,
	workflow *Workflow, breaker *CircuitBreaker, source VideoSource) *Orchestrator {
	return &Orchestrator{
		channelRepo:      channelRepo,
		videoRepo:        videoRepo,
		notificationRepo: notificationRepo,
		retryRepo:        retryRepo,
		workflow:         workflow,
		breaker:          breaker,
		source:           source,
	}
}

// AddChannel validates and registers a channel. An empty name is resolved
// from the channel's feed, which doubles as an existence check. Re-adding a
// removed channel reactivates it with the watermark intact.
func (o *Orchestrator) AddChannel(ctx context.Context, channelID, name, chatID string, checkInterval int) (*database.Channel, error) {
	if !channelIDPattern.MatchString(channelID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChannel, channelID)
	}
	if !chatIDPattern.MatchString(chatID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChatID, chatID)
	}

	if checkInterval == 0 {
		checkInterval = DefaultCheckInterval
	}
	if checkInterval < minCheckInterval {
		return nil, fmt.Errorf("check interval must be at least %d seconds, got %d", minCheckInterval, checkInterval)
	}

	if name == "" {
		resolved, err := o.source.FetchChannelName(ctx, channelID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve channel name: %w", err)
		}
		name = resolved
	}

	if err := o.channelRepo.UpsertChannel(channelID, name, chatID, checkInterval); err != nil {
		return nil, fmt.Errorf("failed to register channel: %w", err)
	}

	slog.Info("Channel registered", "channel_id", channelID, "channel", name, "check_interval", checkInterval)

	return o.channelRepo.GetChannel(channelID)
}

// RemoveChannel deactivates a channel. History is kept; the scheduler and
// workflow both skip inactive channels.
func (o *Orchestrator) RemoveChannel(channelID string) error {
	ch, err := o.channelRepo.GetChannel(channelID)
	if err != nil {
		return fmt.Errorf("failed to load channel: %w", err)
	}
	if ch == nil {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	if err := o.channelRepo.SetChannelActive(channelID, false); err != nil {
		return fmt.Errorf("failed to deactivate channel: %w", err)
	}

	slog.Info("Channel deactivated", "channel_id", channelID, "channel", ch.Name)

	return nil
}

// CheckChannelNow runs a forced check, gated by the circuit breaker. The
// check's outcome feeds back into the breaker.
func (o *Orchestrator) CheckChannelNow(ctx context.Context, channelID string) (*CheckResult, error) {
	if !o.breaker.Allow(channelID) {
		return nil, ErrCircuitOpen
	}

	result, err := o.workflow.CheckChannel(ctx, channelID, true)
	if err != nil {
		o.breaker.RecordFailure(channelID)
		return nil, err
	}

	o.breaker.RecordSuccess(channelID)
	return result, nil
}

// ClearChannelHistory removes a channel's videos and resets its watermark.
func (o *Orchestrator) ClearChannelHistory(channelID string) (int, error) {
	ch, err := o.channelRepo.GetChannel(channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to load channel: %w", err)
	}
	if ch == nil {
		return 0, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	removed, err := o.videoRepo.ClearVideos(channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear channel history: %w", err)
	}

	slog.Info("Channel history cleared", "channel_id", channelID, "removed", removed)

	return removed, nil
}

// ChannelStatus describes one channel's tracking state.
type ChannelStatus struct {
	Channel         database.Channel
	VideoCount      int
	RecentCount     int // processed within the last 24 hours
	BreakerState    BreakerState
	BreakerFailures int
}

func (o *Orchestrator) GetChannelStatus(channelID string) (*ChannelStatus, error) {
	ch, err := o.channelRepo.GetChannel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	status := &ChannelStatus{
		Channel:         *ch,
		BreakerState:    o.breaker.State(channelID),
		BreakerFailures: o.breaker.Failures(channelID),
	}

	if count, err := o.videoRepo.GetVideoCount(channelID); err == nil {
		status.VideoCount = count
	}
	if count, err := o.videoRepo.GetVideoCountSince(channelID, time.Now().Add(-24*time.Hour)); err == nil {
		status.RecentCount = count
	}

	return status, nil
}

// Stats aggregates system-wide counters for the stats endpoint.
type Stats struct {
	Channels            int
	NotificationsSent   int
	NotificationsFailed int
	RetryQueueDepth     int
	OpenCircuits        int
}

func (o *Orchestrator) GetStats() (*Stats, error) {
	stats := &Stats{
		OpenCircuits: o.breaker.OpenCount(),
	}

	channels, err := o.channelRepo.GetChannelCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel count: %w", err)
	}
	stats.Channels = channels

	sent, failed, err := o.notificationRepo.GetDeliveryStats()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery stats: %w", err)
	}
	stats.NotificationsSent = sent
	stats.NotificationsFailed = failed

	depth, err := o.retryRepo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to get retry queue depth: %w", err)
	}
	stats.RetryQueueDepth = depth

	return stats, nil
}

func (o *Orchestrator) ListChannels() ([]database.Channel, error) {
	return o.channelRepo.GetActiveChannels()
}
