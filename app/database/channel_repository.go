package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ ChannelRepository = (*channelRepository)(nil)

type channelRepository struct {
	db *DB
}

func NewChannelRepository(db *DB) ChannelRepository {
	return &channelRepository{db: db}
}

// GetChannel retrieves a channel by its source channel ID. Returns nil when
// the channel is not registered.
func (r *channelRepository) GetChannel(channelID string) (*Channel, error) {
	var ch Channel
	err := r.db.QueryRow(`
		SELECT id, channel_id, channel_name, check_interval, telegram_chat_id,
		       last_check, last_video_id, is_active, created_at, updated_at
		FROM channels
		WHERE channel_id = ?
	`, channelID).Scan(
		&ch.ID, &ch.ChannelID, &ch.Name, &ch.CheckInterval, &ch.TelegramChatID,
		&ch.LastCheck, &ch.LastVideoID, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return &ch, nil
}

// GetActiveChannels returns all channels with is_active set.
func (r *channelRepository) GetActiveChannels() ([]Channel, error) {
	rows, err := r.db.Query(`
		SELECT id, channel_id, channel_name, check_interval, telegram_chat_id,
		       last_check, last_video_id, is_active, created_at, updated_at
		FROM channels
		WHERE is_active = 1
		ORDER BY channel_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var ch Channel
		err := rows.Scan(
			&ch.ID, &ch.ChannelID, &ch.Name, &ch.CheckInterval, &ch.TelegramChatID,
			&ch.LastCheck, &ch.LastVideoID, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}

	return channels, nil
}

func (r *channelRepository) GetChannelCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM channels").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get channel count: %w", err)
	}
	return count, nil
}

// UpsertChannel registers a channel or updates its configuration. Re-adding a
// soft-deleted channel reactivates it; the watermark is preserved.
func (r *channelRepository) UpsertChannel(channelID, name, chatID string, checkInterval int) error {
	_, err := r.db.Exec(`
		INSERT INTO channels (id, channel_id, channel_name, check_interval, telegram_chat_id, is_active)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (channel_id) DO UPDATE SET
			channel_name = excluded.channel_name,
			check_interval = excluded.check_interval,
			telegram_chat_id = excluded.telegram_chat_id,
			is_active = 1,
			updated_at = CURRENT_TIMESTAMP
	`, uuid.NewString(), channelID, name, checkInterval, chatID)

	if err != nil {
		return fmt.Errorf("failed to upsert channel: %w", err)
	}

	return nil
}

// UpdateChannelState advances the watermark after a completed poll. A nil
// lastVideoID leaves the stored value unchanged.
func (r *channelRepository) UpdateChannelState(channelID string, checkedAt time.Time, lastVideoID *string) error {
	res, err := r.db.Exec(`
		UPDATE channels
		SET last_check = ?,
		    last_video_id = COALESCE(?, last_video_id),
		    updated_at = CURRENT_TIMESTAMP
		WHERE channel_id = ?
	`, checkedAt.UTC(), lastVideoID, channelID)

	if err != nil {
		return fmt.Errorf("failed to update channel state: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("channel %s not found", channelID)
	}

	return nil
}

// SetChannelActive flips the soft-delete flag. Channels are never hard-deleted
// while videos reference them.
func (r *channelRepository) SetChannelActive(channelID string, active bool) error {
	res, err := r.db.Exec(`
		UPDATE channels
		SET is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE channel_id = ?
	`, active, channelID)

	if err != nil {
		return fmt.Errorf("failed to set channel active status: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("channel %s not found", channelID)
	}

	return nil
}
