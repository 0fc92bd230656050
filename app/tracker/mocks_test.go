package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tubewatch/tubewatch/app/database"
	"github.com/tubewatch/tubewatch/app/notify"
	"github.com/tubewatch/tubewatch/app/source"
)

var _ database.ChannelRepository = (*mockChannelRepo)(nil)

type mockChannelRepo struct {
	mu       sync.Mutex
	channels map[string]*database.Channel
}

func newMockChannelRepo(channels ...database.Channel) *mockChannelRepo {
	repo := &mockChannelRepo{channels: make(map[string]*database.Channel)}
	for i := range channels {
		ch := channels[i]
		repo.channels[ch.ChannelID] = &ch
	}
	return repo
}

func (m *mockChannelRepo) GetChannel(channelID string) (*database.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return nil, nil
	}
	copied := *ch
	return &copied, nil
}

func (m *mockChannelRepo) GetActiveChannels() ([]database.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []database.Channel
	for _, ch := range m.channels {
		if ch.IsActive {
			active = append(active, *ch)
		}
	}
	return active, nil
}

func (m *mockChannelRepo) GetChannelCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels), nil
}

func (m *mockChannelRepo) UpsertChannel(channelID, name, chatID string, checkInterval int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[channelID]; ok {
		ch.Name = name
		ch.TelegramChatID = chatID
		ch.CheckInterval = checkInterval
		ch.IsActive = true
		return nil
	}
	m.channels[channelID] = &database.Channel{
		ChannelID:      channelID,
		Name:           name,
		TelegramChatID: chatID,
		CheckInterval:  checkInterval,
		IsActive:       true,
	}
	return nil
}

func (m *mockChannelRepo) UpdateChannelState(channelID string, checkedAt time.Time, lastVideoID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s not found", channelID)
	}
	t := checkedAt
	ch.LastCheck = &t
	if lastVideoID != nil {
		ch.LastVideoID = lastVideoID
	}
	return nil
}

func (m *mockChannelRepo) SetChannelActive(channelID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s not found", channelID)
	}
	ch.IsActive = active
	return nil
}

var _ database.VideoRepository = (*mockVideoRepo)(nil)

// mockVideoRepo mirrors the repository's upsert semantics: nil summaries
// keep the stored value and notification_sent never regresses.
type mockVideoRepo struct {
	mu        sync.Mutex
	videos    map[string]*database.Video
	upsertErr error
}

func newMockVideoRepo() *mockVideoRepo {
	return &mockVideoRepo{videos: make(map[string]*database.Video)}
}

func (m *mockVideoRepo) GetVideo(videoID string) (*database.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (m *mockVideoRepo) GetVideoCount(channelID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, v := range m.videos {
		if v.ChannelID == channelID {
			count++
		}
	}
	return count, nil
}

func (m *mockVideoRepo) GetVideoCountSince(channelID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, v := range m.videos {
		if v.ChannelID == channelID && v.ProcessedAt != nil && !v.ProcessedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockVideoRepo) UpsertVideo(u database.VideoUpsert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertErr != nil {
		return m.upsertErr
	}

	now := time.Now().UTC()
	existing, ok := m.videos[u.VideoID]
	if !ok {
		m.videos[u.VideoID] = &database.Video{
			VideoID:          u.VideoID,
			ChannelID:        u.ChannelID,
			Title:            u.Title,
			Description:      u.Description,
			PublishedAt:      u.PublishedAt,
			ThumbnailURL:     u.ThumbnailURL,
			ViewCount:        u.ViewCount,
			ProcessedAt:      &now,
			Summary:          u.Summary,
			NotificationSent: u.NotificationSent,
		}
		return nil
	}

	existing.Title = u.Title
	existing.Description = u.Description
	existing.ThumbnailURL = u.ThumbnailURL
	existing.ViewCount = u.ViewCount
	existing.ProcessedAt = &now
	if u.Summary != nil {
		existing.Summary = u.Summary
	}
	existing.NotificationSent = existing.NotificationSent || u.NotificationSent
	return nil
}

func (m *mockVideoRepo) MarkNotified(videoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok || v.NotificationSent {
		return false, nil
	}
	v.NotificationSent = true
	return true, nil
}

func (m *mockVideoRepo) ClearVideos(channelID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, v := range m.videos {
		if v.ChannelID == channelID {
			delete(m.videos, id)
			removed++
		}
	}
	return removed, nil
}

var _ database.NotificationRepository = (*mockNotificationRepo)(nil)

type mockNotificationRepo struct {
	mu      sync.Mutex
	entries []database.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) RecordDelivery(n database.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, n)
	return nil
}

func (m *mockNotificationRepo) GetDeliveryStats() (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent, failed := 0, 0
	for _, n := range m.entries {
		if n.Success {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed, nil
}

var _ database.RetryQueueRepository = (*mockRetryRepo)(nil)

type mockRetryRepo struct {
	mu      sync.Mutex
	entries map[string]database.RetryEntry // keyed by video_id|chat_id
	nextID  int
}

func newMockRetryRepo() *mockRetryRepo {
	return &mockRetryRepo{entries: make(map[string]database.RetryEntry)}
}

func (m *mockRetryRepo) key(videoID, chatID string) string {
	return videoID + "|" + chatID
}

func (m *mockRetryRepo) Enqueue(entry database.RetryEntry, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.key(entry.VideoID, entry.ChatID)
	if existing, ok := m.entries[key]; ok {
		if existing.Attempts >= maxAttempts {
			return database.ErrRetryExhausted
		}
		return database.ErrRetryExists
	}
	if entry.Attempts >= maxAttempts {
		return database.ErrRetryExhausted
	}
	m.nextID++
	entry.ID = fmt.Sprintf("retry-%d", m.nextID)
	m.entries[key] = entry
	return nil
}

func (m *mockRetryRepo) GetDue(now time.Time) ([]database.RetryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []database.RetryEntry
	for _, e := range m.entries {
		if !e.NextAttemptAt.After(now) {
			due = append(due, e)
		}
	}
	return due, nil
}

func (m *mockRetryRepo) BumpAttempt(id string, nextAttemptAt time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if e.ID == id {
			e.Attempts++
			e.NextAttemptAt = nextAttemptAt
			e.Reason = reason
			m.entries[key] = e
			return nil
		}
	}
	return fmt.Errorf("retry entry %s not found", id)
}

func (m *mockRetryRepo) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if e.ID == id {
			delete(m.entries, key)
			return nil
		}
	}
	return nil
}

func (m *mockRetryRepo) Cleanup(maxAttempts int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, e := range m.entries {
		if e.Attempts >= maxAttempts {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *mockRetryRepo) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

var _ VideoSource = (*mockSource)(nil)

type mockSource struct {
	mu                 sync.Mutex
	feed               *source.ChannelFeed
	err                error
	fetchCalls         int
	lastPublishedAfter *time.Time
}

func newMockSource(videos ...source.Video) *mockSource {
	return &mockSource{feed: &source.ChannelFeed{Videos: videos}}
}

func (m *mockSource) FetchLatest(ctx context.Context, channelID string, publishedAfter *time.Time, maxResults int) (*source.ChannelFeed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	m.lastPublishedAfter = publishedAfter
	if m.err != nil {
		return nil, m.err
	}
	feed := *m.feed
	feed.ChannelID = channelID
	return &feed, nil
}

func (m *mockSource) FetchChannelName(ctx context.Context, channelID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.feed.ChannelName == "" {
		return "Resolved Channel", nil
	}
	return m.feed.ChannelName, nil
}

func (m *mockSource) FetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

func (m *mockSource) LastPublishedAfter() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPublishedAfter
}

var _ Summarizer = (*mockSummarizer)(nil)

type mockSummarizer struct {
	mu      sync.Mutex
	summary string
	err     error
	calls   int
}

func (m *mockSummarizer) Run(ctx context.Context, title, description string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.summary, nil
}

func (m *mockSummarizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ Notifier = (*mockNotifier)(nil)

type mockNotifier struct {
	mu         sync.Mutex
	sendErr    error
	sent       []notify.Message
	alertCalls int
}

func (m *mockNotifier) Send(ctx context.Context, msg notify.Message) notify.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.sendErr != nil {
		return notify.Result{Success: false, Err: m.sendErr}
	}
	id := int64(len(m.sent))
	return notify.Result{Success: true, MessageID: &id}
}

func (m *mockNotifier) SendBatch(ctx context.Context, msgs []notify.Message, concurrency int) []notify.Result {
	results := make([]notify.Result, len(msgs))
	for i, msg := range msgs {
		results[i] = m.Send(ctx, msg)
	}
	return results
}

func (m *mockNotifier) SendErrorAlert(ctx context.Context, chatID, channelName, errorType, details string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertCalls++
	return nil
}

func (m *mockNotifier) SendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockNotifier) LastSent() *notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	msg := m.sent[len(m.sent)-1]
	return &msg
}

func (m *mockNotifier) AlertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alertCalls
}
