package api

import (
	"context"

	"github.com/tubewatch/tubewatch/app/database"
	"github.com/tubewatch/tubewatch/app/tracker"
)

// Orchestrator is the management surface the API exposes over HTTP.
type Orchestrator interface {
	AddChannel(ctx context.Context, channelID, name, chatID string, checkInterval int) (*database.Channel, error)
	RemoveChannel(channelID string) error
	CheckChannelNow(ctx context.Context, channelID string) (*tracker.CheckResult, error)
	ClearChannelHistory(channelID string) (int, error)
	GetChannelStatus(channelID string) (*tracker.ChannelStatus, error)
	GetStats() (*tracker.Stats, error)
	ListChannels() ([]database.Channel, error)
}

type Handler struct {
	orchestrator Orchestrator
	channelRepo  database.ChannelRepository
	version      string
}

type addChannelRequest struct {
	ChannelID      string `json:"channel_id" binding:"required"`
	Name           string `json:"name"`
	TelegramChatID string `json:"telegram_chat_id" binding:"required"`
	CheckInterval  int    `json:"check_interval"`
}
