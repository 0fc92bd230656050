package source

import (
	"time"
)

// Video is a normalized entry from a channel's video feed.
type Video struct {
	VideoID      string
	Title        string
	Description  string
	URL          string
	ThumbnailURL string
	PublishedAt  time.Time
	ViewCount    *int64
}

// ChannelFeed holds the parsed result of one feed fetch. Videos are ordered
// oldest first so callers process them in publication order.
type ChannelFeed struct {
	ChannelID   string
	ChannelName string
	Videos      []Video
}
