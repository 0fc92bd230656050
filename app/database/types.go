package database

import (
	"time"
)

type Channel struct {
	ID             string // Database UUID
	ChannelID      string // Source channel identifier
	Name           string
	CheckInterval  int // seconds
	TelegramChatID string
	LastCheck      *time.Time // Watermark: lower bound of the next fetch window
	LastVideoID    *string    // Most recent video observed
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Video struct {
	ID               string // Database UUID
	VideoID          string // Source video identifier, globally unique
	ChannelID        string
	Title            string
	Description      string
	PublishedAt      time.Time
	ThumbnailURL     string
	ViewCount        *int64
	ProcessedAt      *time.Time
	Summary          *string
	NotificationSent bool // Authoritative dedup flag, never regresses
	CreatedAt        time.Time
}

type Notification struct {
	ID           string
	VideoID      string
	ChannelID    string
	ChatID       string
	Type         string
	SentAt       time.Time
	MessageID    *int64
	Success      bool
	ErrorMessage string
	RetryCount   int
}

// RetryEntry snapshots a failed delivery. At most one entry exists per
// (video_id, chat_id) pair.
type RetryEntry struct {
	ID            string
	VideoID       string
	ChannelID     string
	ChatID        string
	Title         string
	ThumbnailURL  string
	PublishedAt   *time.Time
	Summary       *string
	Reason        string
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
}
