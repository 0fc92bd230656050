package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ VideoRepository = (*videoRepository)(nil)

type videoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) VideoRepository {
	return &videoRepository{db: db}
}

// GetVideo retrieves a video by its source video ID. Returns nil when no row
// exists (the UNSEEN state).
func (r *videoRepository) GetVideo(videoID string) (*Video, error) {
	var v Video
	err := r.db.QueryRow(`
		SELECT id, video_id, channel_id, title, COALESCE(description, ''),
		       published_at, COALESCE(thumbnail_url, ''), view_count,
		       processed_at, summary, notification_sent, created_at
		FROM videos
		WHERE video_id = ?
	`, videoID).Scan(
		&v.ID, &v.VideoID, &v.ChannelID, &v.Title, &v.Description,
		&v.PublishedAt, &v.ThumbnailURL, &v.ViewCount,
		&v.ProcessedAt, &v.Summary, &v.NotificationSent, &v.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &v, nil
}

func (r *videoRepository) GetVideoCount(channelID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM videos WHERE channel_id = ?", channelID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get video count: %w", err)
	}
	return count, nil
}

func (r *videoRepository) GetVideoCountSince(channelID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM videos
		WHERE channel_id = ? AND processed_at >= ?
	`, channelID, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get video count since: %w", err)
	}
	return count, nil
}

// UpsertVideo persists the outcome of a processing attempt in one atomic
// statement. On conflict, metadata is last-committer-wins, a nil summary
// keeps the stored one, and notification_sent only ever goes from 0 to 1.
func (r *videoRepository) UpsertVideo(v VideoUpsert) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO videos (
			id, video_id, channel_id, title, description, published_at,
			thumbnail_url, view_count, processed_at, summary, notification_sent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			thumbnail_url = excluded.thumbnail_url,
			view_count = excluded.view_count,
			processed_at = excluded.processed_at,
			summary = COALESCE(excluded.summary, videos.summary),
			notification_sent = MAX(videos.notification_sent, excluded.notification_sent)
	`, uuid.NewString(), v.VideoID, v.ChannelID, v.Title, v.Description, v.PublishedAt.UTC(),
		v.ThumbnailURL, v.ViewCount, now, v.Summary, v.NotificationSent)

	if err != nil {
		return fmt.Errorf("failed to upsert video: %w", err)
	}

	return nil
}

// MarkNotified flips notification_sent for a video that has not been notified
// yet. The returned bool reports whether this call performed the flip, which
// makes the transition usable as a claim under concurrent access.
func (r *videoRepository) MarkNotified(videoID string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE videos
		SET notification_sent = 1
		WHERE video_id = ? AND notification_sent = 0
	`, videoID)

	if err != nil {
		return false, fmt.Errorf("failed to mark video notified: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// ClearVideos removes all of a channel's videos and resets the channel
// watermark so the next poll reprocesses recent history.
func (r *videoRepository) ClearVideos(channelID string) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM videos WHERE channel_id = ?", channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete videos: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE channels
		SET last_check = NULL, last_video_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE channel_id = ?
	`, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset channel watermark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit clear: %w", err)
	}

	return int(removed), nil
}
