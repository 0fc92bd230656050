package notify

import (
	"errors"
	"time"
)

var (
	// ErrAuth indicates the bot token was rejected. Not retryable.
	ErrAuth = errors.New("telegram authentication failed")
	// ErrChatNotFound indicates the destination chat does not exist or the
	// bot is not a member. Not retryable.
	ErrChatNotFound = errors.New("telegram chat not found")
	// ErrRateLimited indicates the API asked us to back off. Retryable.
	ErrRateLimited = errors.New("telegram rate limit exceeded")
)

// Message carries everything needed to deliver one video notification.
type Message struct {
	ChatID       string
	VideoID      string
	ChannelID    string
	ChannelName  string
	Title        string
	URL          string
	ThumbnailURL string
	PublishedAt  time.Time
	ViewCount    *int64
	Summary      *string
}

// Result reports one delivery attempt. Err is set when Success is false;
// MessageID is set when the API acknowledged the message.
type Result struct {
	Success   bool
	MessageID *int64
	Err       error
}
