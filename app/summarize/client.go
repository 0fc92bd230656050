package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// Descriptions are clipped before prompting to bound request size.
	maxDescriptionChars = 2000
	maxCompletionTokens = 500
)

// Client produces short video summaries through an OpenAI-compatible chat
// completions endpoint. Summarization is best-effort for callers: they treat
// an error as "no summary", never as a processing failure.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
}

func NewClient(httpClient *http.Client, url, apiKey, model string) *Client {
	return &Client{
		httpClient: httpClient,
		url:        url,
		apiKey:     apiKey,
		model:      model,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Run summarizes a video from its title and description.
func (c *Client) Run(ctx context.Context, title, description string) (string, error) {
	if c.url == "" || c.apiKey == "" {
		return "", fmt.Errorf("summarizer is not configured")
	}

	description = clip(description, maxDescriptionChars)

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You summarize video announcements. Reply with 2-3 plain sentences covering what the video is about. No preamble, no markdown.",
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Title: %s\n\nDescription:\n%s", title, description),
			},
		},
		MaxTokens:   maxCompletionTokens,
		Temperature: 0.3,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "POST", c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call summarizer: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("summarizer error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("summarizer returned no choices")
	}

	summary := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("summarizer returned an empty summary")
	}

	return summary, nil
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
