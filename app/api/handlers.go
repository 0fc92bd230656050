package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tubewatch/tubewatch/app/database"
	"github.com/tubewatch/tubewatch/app/tracker"
)

func NewHandler(orchestrator Orchestrator, channelRepo database.ChannelRepository, version string) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		channelRepo:  channelRepo,
		version:      version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if channelCount, err := h.channelRepo.GetChannelCount(); err == nil {
		health["channels"] = channelCount
	} else {
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.orchestrator.GetStats()
	if err != nil {
		slog.Error("Failed to collect stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to collect stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channels":             stats.Channels,
		"notifications_sent":   stats.NotificationsSent,
		"notifications_failed": stats.NotificationsFailed,
		"retry_queue_depth":    stats.RetryQueueDepth,
		"open_circuits":        stats.OpenCircuits,
	})
}

func (h *Handler) APIListChannels(c *gin.Context) {
	channels, err := h.orchestrator.ListChannels()
	if err != nil {
		slog.Error("Failed to list channels", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
		return
	}

	out := make([]gin.H, 0, len(channels))
	for _, ch := range channels {
		out = append(out, channelJSON(ch))
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": out,
		"total":    len(out),
	})
}

func (h *Handler) APIAddChannel(c *gin.Context) {
	var req addChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ch, err := h.orchestrator.AddChannel(c.Request.Context(), req.ChannelID, req.Name, req.TelegramChatID, req.CheckInterval)
	if err != nil {
		if errors.Is(err, tracker.ErrInvalidChannel) || errors.Is(err, tracker.ErrInvalidChatID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Failed to add channel", "channel_id", req.ChannelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add channel", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"channel": channelJSON(*ch),
	})
}

func (h *Handler) APIGetChannel(c *gin.Context) {
	channelID := c.Param("id")

	status, err := h.orchestrator.GetChannelStatus(channelID)
	if err != nil {
		if errors.Is(err, tracker.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
			return
		}
		slog.Error("Failed to get channel status", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get channel status"})
		return
	}

	out := channelJSON(status.Channel)
	out["video_count"] = status.VideoCount
	out["recent_count"] = status.RecentCount
	out["circuit_breaker"] = gin.H{
		"state":    string(status.BreakerState),
		"failures": status.BreakerFailures,
	}

	c.JSON(http.StatusOK, out)
}

func (h *Handler) APIRemoveChannel(c *gin.Context) {
	channelID := c.Param("id")

	if err := h.orchestrator.RemoveChannel(channelID); err != nil {
		if errors.Is(err, tracker.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
			return
		}
		slog.Error("Failed to remove channel", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove channel"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Channel deactivated",
	})
}

func (h *Handler) APICheckChannel(c *gin.Context) {
	channelID := c.Param("id")

	result, err := h.orchestrator.CheckChannelNow(c.Request.Context(), channelID)
	if err != nil {
		if errors.Is(err, tracker.ErrCircuitOpen) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Circuit breaker is open, try again later"})
			return
		}
		slog.Error("Manual channel check failed", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Channel check failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"channel_id":         result.ChannelID,
		"videos_found":       result.VideosFound,
		"videos_processed":   result.VideosProcessed,
		"notifications_sent": result.NotificationsSent,
		"queued_for_retry":   result.QueuedForRetry,
		"errors":             result.Errors,
		"no_new_videos":      result.NoNewVideos,
		"checked_at":         result.CheckedAt.Format(time.RFC3339),
	})
}

func (h *Handler) APIClearChannel(c *gin.Context) {
	channelID := c.Param("id")

	removed, err := h.orchestrator.ClearChannelHistory(channelID)
	if err != nil {
		if errors.Is(err, tracker.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
			return
		}
		slog.Error("Failed to clear channel history", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear channel history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"videos_removed": removed,
	})
}

func channelJSON(ch database.Channel) gin.H {
	out := gin.H{
		"channel_id":       ch.ChannelID,
		"name":             ch.Name,
		"telegram_chat_id": ch.TelegramChatID,
		"check_interval":   ch.CheckInterval,
		"is_active":        ch.IsActive,
	}

	if ch.LastCheck != nil {
		out["last_check"] = ch.LastCheck.Format(time.RFC3339)
	}
	if ch.LastVideoID != nil {
		out["last_video_id"] = *ch.LastVideoID
	}

	return out
}
