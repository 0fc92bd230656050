package tracker

import (
	"context"
	"time"

	"github.com/tubewatch/tubewatch/app/notify"
	"github.com/tubewatch/tubewatch/app/source"
)

// VideoSource abstracts the channel feed client for testing.
type VideoSource interface {
	FetchLatest(ctx context.Context, channelID string, publishedAfter *time.Time, maxResults int) (*source.ChannelFeed, error)
	FetchChannelName(ctx context.Context, channelID string) (string, error)
}

// Summarizer produces a short text summary for a video. Failures are treated
// as "no summary available", never as a processing failure.
type Summarizer interface {
	Run(ctx context.Context, title, description string) (string, error)
}

// DescriptionExtractor recovers a description from a video's watch page
// when the feed entry carries none.
type DescriptionExtractor interface {
	Run(ctx context.Context, pageURL string) (string, error)
}

// Notifier delivers notifications and operational alerts. SendBatch returns
// one result per message in input order.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) notify.Result
	SendBatch(ctx context.Context, msgs []notify.Message, concurrency int) []notify.Result
	SendErrorAlert(ctx context.Context, chatID, channelName, errorType, details string) error
}
