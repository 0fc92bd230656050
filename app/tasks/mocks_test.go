package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tubewatch/tubewatch/app/database"
	"github.com/tubewatch/tubewatch/app/notify"
	"github.com/tubewatch/tubewatch/app/tracker"
)

var _ database.ChannelRepository = (*mockChannelRepo)(nil)

type mockChannelRepo struct {
	mu       sync.Mutex
	channels []database.Channel
}

func (m *mockChannelRepo) GetChannel(channelID string) (*database.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.channels {
		if m.channels[i].ChannelID == channelID {
			ch := m.channels[i]
			return &ch, nil
		}
	}
	return nil, nil
}

func (m *mockChannelRepo) GetActiveChannels() ([]database.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []database.Channel
	for _, ch := range m.channels {
		if ch.IsActive {
			active = append(active, ch)
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
	return nil
}

func (m *mockChannelRepo) UpdateChannelState(channelID string, checkedAt time.Time, lastVideoID *string) error {
	return nil
}

func (m *mockChannelRepo) SetChannelActive(channelID string, active bool) error {
	return nil
}

var _ database.VideoRepository = (*mockVideoRepo)(nil)

type mockVideoRepo struct {
	mu       sync.Mutex
	videos   map[string]*database.Video
	notified []string
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

func (m *mockVideoRepo) GetVideoCount(channelID string) (int, error) { return 0, nil }

func (m *mockVideoRepo) GetVideoCountSince(channelID string, since time.Time) (int, error) {
	return 0, nil
}

func (m *mockVideoRepo) UpsertVideo(u database.VideoUpsert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[u.VideoID] = &database.Video{
		VideoID:          u.VideoID,
		ChannelID:        u.ChannelID,
		NotificationSent: u.NotificationSent,
		Summary:          u.Summary,
	}
	return nil
}

func (m *mockVideoRepo) MarkNotified(videoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, videoID)
	v, ok := m.videos[videoID]
	if !ok || v.NotificationSent {
		return false, nil
	}
	v.NotificationSent = true
	return true, nil
}

func (m *mockVideoRepo) ClearVideos(channelID string) (int, error) { return 0, nil }

var _ database.NotificationRepository = (*mockNotificationRepo)(nil)

type mockNotificationRepo struct {
	mu      sync.Mutex
	entries []database.Notification
}

func (m *mockNotificationRepo) RecordDelivery(n database.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, n)
	return nil
}

func (m *mockNotificationRepo) GetDeliveryStats() (int, int, error) {
	return 0, 0, nil
}

var _ database.RetryQueueRepository = (*mockRetryRepo)(nil)

type mockRetryRepo struct {
	mu      sync.Mutex
	entries map[string]database.RetryEntry
	nextID  int
}

func newMockRetryRepo() *mockRetryRepo {
	return &mockRetryRepo{entries: make(map[string]database.RetryEntry)}
}

func (m *mockRetryRepo) Enqueue(entry database.RetryEntry, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := entry.VideoID + "|" + entry.ChatID
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

func (m *mockRetryRepo) Cleanup(maxAttempts int) (int, error) { return 0, nil }

func (m *mockRetryRepo) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

var _ ChannelChecker = (*mockChecker)(nil)

type mockChecker struct {
	mu      sync.Mutex
	calls   []string
	block   chan struct{} // when set, CheckChannel waits until closed
	results map[string]*tracker.CheckResult
	err     error
}

func newMockChecker() *mockChecker {
	return &mockChecker{results: make(map[string]*tracker.CheckResult)}
}

func (m *mockChecker) CheckChannel(ctx context.Context, channelID string, force bool) (*tracker.CheckResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, channelID)
	block := m.block
	err := m.err
	result := m.results[channelID]
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &tracker.CheckResult{ChannelID: channelID}
	}
	return result, nil
}

func (m *mockChecker) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

var _ tracker.Notifier = (*mockNotifier)(nil)

type mockNotifier struct {
	mu         sync.Mutex
	sendErr    error
	sent       []notify.Message
	batchSizes []int
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
	m.mu.Lock()
	m.batchSizes = append(m.batchSizes, len(msgs))
	m.mu.Unlock()

	results := make([]notify.Result, len(msgs))
	for i, msg := range msgs {
		results[i] = m.Send(ctx, msg)
	}
	return results
}

func (m *mockNotifier) SendErrorAlert(ctx context.Context, chatID, channelName, errorType, details string) error {
	return nil
}

func (m *mockNotifier) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batchSizes...)
}

func (m *mockNotifier) SendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
