package database

import (
	"time"
)

// VideoUpsert carries the fields the item processor persists after a
// processing attempt. Summary is kept when nil to avoid overwriting a stored
// summary with nothing; NotificationSent never downgrades an existing true.
type VideoUpsert struct {
	VideoID          string
	ChannelID        string
	Title            string
	Description      string
	PublishedAt      time.Time
	ThumbnailURL     string
	ViewCount        *int64
	Summary          *string
	NotificationSent bool
}

type ChannelRepository interface {
	GetChannel(channelID string) (*Channel, error)
	GetActiveChannels() ([]Channel, error)
	GetChannelCount() (int, error)

	UpsertChannel(channelID, name, chatID string, checkInterval int) error
	UpdateChannelState(channelID string, checkedAt time.Time, lastVideoID *string) error
	SetChannelActive(channelID string, active bool) error
}

type VideoRepository interface {
	GetVideo(videoID string) (*Video, error)
	GetVideoCount(channelID string) (int, error)
	GetVideoCountSince(channelID string, since time.Time) (int, error)

	UpsertVideo(v VideoUpsert) error
	MarkNotified(videoID string) (bool, error)

	ClearVideos(channelID string) (int, error)
}

type NotificationRepository interface {
	RecordDelivery(n Notification) error
	GetDeliveryStats() (sent int, failed int, err error)
}

type RetryQueueRepository interface {
	Enqueue(entry RetryEntry, maxAttempts int) error
	GetDue(now time.Time) ([]RetryEntry, error)
	BumpAttempt(id string, nextAttemptAt time.Time, reason string) error
	Remove(id string) error
	Cleanup(maxAttempts int) (int, error)
	Count() (int, error)
}
