package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultAPIBaseURL = "https://api.telegram.org"

	// Telegram hard limits.
	maxMessageChars = 4096
	maxCaptionChars = 1024

	// Minimum gap between messages to the same chat.
	defaultChatInterval = time.Second
)

// Telegram delivers notifications through the Bot API. Sends to the same
// chat are spaced out by a minimum interval to stay inside API limits.
type Telegram struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	chatInterval time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time

	sleep func(time.Duration)
}

func NewTelegram(httpClient *http.Client, baseURL, token string) *Telegram {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}

	return &Telegram{
		httpClient:   httpClient,
		baseURL:      baseURL,
		token:        token,
		chatInterval: defaultChatInterval,
		lastSent:     make(map[string]time.Time),
		sleep:        time.Sleep,
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	Parameters struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send delivers one video notification. A thumbnail is sent as a photo with
// the body as caption, otherwise a plain text message is sent. The outcome
// is reported as a Result rather than an error so callers can branch on
// Success without losing the cause.
func (t *Telegram) Send(ctx context.Context, msg Message) Result {
	body := FormatVideoNotification(msg)

	var messageID *int64
	var err error

	if msg.ThumbnailURL != "" {
		messageID, err = t.sendPhoto(ctx, msg.ChatID, msg.ThumbnailURL, body)
	} else {
		messageID, err = t.sendMessage(ctx, msg.ChatID, body)
	}

	if err != nil {
		return Result{Success: false, Err: err}
	}

	return Result{Success: true, MessageID: messageID}
}

// SendBatch delivers messages concurrently with a bounded number of senders.
// Results are returned in input order.
func (t *Telegram) SendBatch(ctx context.Context, msgs []Message, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(msgs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, msg := range msgs {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, msg Message) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = t.Send(ctx, msg)
		}(i, msg)
	}

	wg.Wait()
	return results
}

// SendErrorAlert notifies a chat about an operational failure. Best-effort:
// the caller logs the returned error and moves on.
func (t *Telegram) SendErrorAlert(ctx context.Context, chatID, channelName, errorType, details string) error {
	body := FormatErrorAlert(channelName, errorType, details, time.Now())

	_, err := t.sendMessage(ctx, chatID, body)
	if err != nil {
		return fmt.Errorf("failed to send error alert: %w", err)
	}

	return nil
}

// CheckAuth verifies the bot token against the getMe endpoint.
func (t *Telegram) CheckAuth(ctx context.Context) error {
	_, err := t.request(ctx, "getMe", "", nil)
	return err
}

func (t *Telegram) sendMessage(ctx context.Context, chatID, text string) (*int64, error) {
	if len(text) > maxMessageChars {
		slog.Warn("Message too long, truncating", "chat_id", chatID, "length", len(text))
		text = text[:maxMessageChars-3] + "..."
	}

	return t.request(ctx, "sendMessage", chatID, map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": false,
	})
}

func (t *Telegram) sendPhoto(ctx context.Context, chatID, photoURL, caption string) (*int64, error) {
	if len(caption) > maxCaptionChars {
		caption = caption[:maxCaptionChars-3] + "..."
	}

	return t.request(ctx, "sendPhoto", chatID, map[string]interface{}{
		"chat_id":    chatID,
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": "Markdown",
	})
}

func (t *Telegram) request(ctx context.Context, method, chatID string, payload map[string]interface{}) (*int64, error) {
	if chatID != "" {
		t.throttle(chatID)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "POST", url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}

	if !apiResp.OK {
		return nil, t.apiError(apiResp)
	}

	messageID := apiResp.Result.MessageID
	return &messageID, nil
}

func (t *Telegram) apiError(resp apiResponse) error {
	switch {
	case resp.ErrorCode == 401 || resp.ErrorCode == 403:
		return fmt.Errorf("%w: %s", ErrAuth, resp.Description)
	case resp.ErrorCode == 400 && strings.Contains(strings.ToLower(resp.Description), "chat not found"):
		return fmt.Errorf("%w: %s", ErrChatNotFound, resp.Description)
	case resp.ErrorCode == 429:
		return fmt.Errorf("%w: retry after %ds", ErrRateLimited, resp.Parameters.RetryAfter)
	default:
		return fmt.Errorf("telegram API error %d: %s", resp.ErrorCode, resp.Description)
	}
}

// throttle blocks until the per-chat minimum interval has elapsed.
func (t *Telegram) throttle(chatID string) {
	t.mu.Lock()
	last, ok := t.lastSent[chatID]
	now := time.Now()

	var wait time.Duration
	if ok {
		if elapsed := now.Sub(last); elapsed < t.chatInterval {
			wait = t.chatInterval - elapsed
		}
	}
	t.lastSent[chatID] = now.Add(wait)
	t.mu.Unlock()

	if wait > 0 {
		t.sleep(wait)
	}
}
