package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

const DefaultBaseURL = "https://www.youtube.com"

// Client fetches and parses channel video feeds. The feed endpoint returns
// the channel's most recent uploads (typically 15 entries), newest first.
type Client struct {
	httpClient   *http.Client
	gofeedParser *gofeed.Parser
	baseURL      string
	userAgent    string
}

func NewClient(httpClient *http.Client, baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient:   httpClient,
		gofeedParser: gofeed.NewParser(),
		baseURL:      baseURL,
		userAgent:    userAgent,
	}
}

// FetchLatest returns videos published strictly after publishedAfter, oldest
// first, capped to the maxResults most recent. A nil publishedAfter disables
// the window filter. Fetch and parse failures are returned to the caller;
// a channel with no matching entries is not an error.
func (c *Client) FetchLatest(ctx context.Context, channelID string, publishedAfter *time.Time, maxResults int) (*ChannelFeed, error) {
	data, err := c.fetchFeed(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel feed: %w", err)
	}

	feed, err := c.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel feed: %w", err)
	}

	videos := make([]Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		video := c.normalizeItem(item)
		if video.VideoID == "" {
			continue
		}
		if publishedAfter != nil && !video.PublishedAt.After(*publishedAfter) {
			continue
		}
		videos = append(videos, video)
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].PublishedAt.Before(videos[j].PublishedAt)
	})

	if maxResults > 0 && len(videos) > maxResults {
		videos = videos[len(videos)-maxResults:]
	}

	return &ChannelFeed{
		ChannelID:   channelID,
		ChannelName: feed.Title,
		Videos:      videos,
	}, nil
}

// FetchChannelName resolves a channel's display name from its feed title.
func (c *Client) FetchChannelName(ctx context.Context, channelID string) (string, error) {
	feed, err := c.FetchLatest(ctx, channelID, nil, 0)
	if err != nil {
		return "", err
	}

	if feed.ChannelName == "" {
		return "", fmt.Errorf("channel %s has no feed title", channelID)
	}

	return feed.ChannelName, nil
}

func (c *Client) fetchFeed(ctx context.Context, channelID string) ([]byte, error) {
	url := fmt.Sprintf("%s/feeds/videos.xml?channel_id=%s", c.baseURL, channelID)

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (c *Client) normalizeItem(item *gofeed.Item) Video {
	video := Video{
		Title: item.Title,
		URL:   item.Link,
	}

	if item.PublishedParsed != nil {
		video.PublishedAt = item.PublishedParsed.UTC()
	}

	// The yt namespace carries the stable video identifier; the entry GUID
	// is prefixed ("yt:video:...") and kept only as a fallback.
	if values, ok := item.Extensions["yt"]["videoId"]; ok && len(values) > 0 {
		video.VideoID = values[0].Value
	}
	if video.VideoID == "" {
		video.VideoID = item.GUID
	}

	if groups, ok := item.Extensions["media"]["group"]; ok && len(groups) > 0 {
		c.applyMediaGroup(&video, groups[0])
	}

	return video
}

func (c *Client) applyMediaGroup(video *Video, group ext.Extension) {
	if thumbs, ok := group.Children["thumbnail"]; ok && len(thumbs) > 0 {
		video.ThumbnailURL = thumbs[0].Attrs["url"]
	}

	if descs, ok := group.Children["description"]; ok && len(descs) > 0 {
		video.Description = descs[0].Value
	}

	community, ok := group.Children["community"]
	if !ok || len(community) == 0 {
		return
	}

	if stats, ok := community[0].Children["statistics"]; ok && len(stats) > 0 {
		if views, err := strconv.ParseInt(stats[0].Attrs["views"], 10, 64); err == nil {
			video.ViewCount = &views
		}
	}
}
