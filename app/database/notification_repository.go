package database

import (
	"fmt"

	"github.com/google/uuid"
)

var _ NotificationRepository = (*notificationRepository)(nil)

type notificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// RecordDelivery appends one audit row per delivery attempt outcome. The
// audit log is not consulted for deduplication; that is owned by the video's
// notification_sent flag.
func (r *notificationRepository) RecordDelivery(n Notification) error {
	_, err := r.db.Exec(`
		INSERT INTO notifications (
			id, video_id, channel_id, chat_id, notification_type,
			message_id, success, error_message, retry_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), n.VideoID, n.ChannelID, n.ChatID, n.Type,
		n.MessageID, n.Success, n.ErrorMessage, n.RetryCount)

	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	return nil
}

func (r *notificationRepository) GetDeliveryStats() (sent int, failed int, err error) {
	err = r.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM notifications
	`).Scan(&sent, &failed)

	if err != nil {
		return 0, 0, fmt.Errorf("failed to get delivery stats: %w", err)
	}

	return sent, failed, nil
}
