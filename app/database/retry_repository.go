package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRetryExists is returned when an entry already holds the
	// (video_id, chat_id) key.
	ErrRetryExists = errors.New("retry entry already exists")
	// ErrRetryExhausted is returned when the entry's attempt count has
	// already reached the maximum.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

var _ RetryQueueRepository = (*retryQueueRepository)(nil)

type retryQueueRepository struct {
	db *DB
}

func NewRetryQueueRepository(db *DB) RetryQueueRepository {
	return &retryQueueRepository{db: db}
}

// Enqueue inserts a failed delivery for later retry. The UNIQUE constraint on
// (video_id, chat_id) makes duplicate inserts fail structurally rather than
// by scanning. The stored row owns the attempt count, so the exhausted check
// consults it before the incoming snapshot.
func (r *retryQueueRepository) Enqueue(entry RetryEntry, maxAttempts int) error {
	var storedAttempts int
	err := r.db.QueryRow(`
		SELECT attempts FROM retry_queue WHERE video_id = ? AND chat_id = ?
	`, entry.VideoID, entry.ChatID).Scan(&storedAttempts)
	switch {
	case err == nil:
		if storedAttempts >= maxAttempts {
			return ErrRetryExhausted
		}
		return ErrRetryExists
	case err != sql.ErrNoRows:
		return fmt.Errorf("failed to check existing retry entry: %w", err)
	}

	if entry.Attempts >= maxAttempts {
		return ErrRetryExhausted
	}

	res, err := r.db.Exec(`
		INSERT INTO retry_queue (
			id, video_id, channel_id, chat_id, title, thumbnail_url,
			published_at, summary, reason, attempts, next_attempt_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id, chat_id) DO NOTHING
	`, uuid.NewString(), entry.VideoID, entry.ChannelID, entry.ChatID, entry.Title,
		entry.ThumbnailURL, entry.PublishedAt, entry.Summary, entry.Reason,
		entry.Attempts, entry.NextAttemptAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to enqueue retry entry: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrRetryExists
	}

	return nil
}

// GetDue returns entries whose next attempt time has passed, oldest first.
func (r *retryQueueRepository) GetDue(now time.Time) ([]RetryEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, video_id, channel_id, chat_id, title, COALESCE(thumbnail_url, ''),
		       published_at, summary, COALESCE(reason, ''), attempts, next_attempt_at, created_at
		FROM retry_queue
		WHERE next_attempt_at <= ?
		ORDER BY next_attempt_at
	`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get due retry entries: %w", err)
	}
	defer rows.Close()

	var entries []RetryEntry
	for rows.Next() {
		var e RetryEntry
		err := rows.Scan(
			&e.ID, &e.VideoID, &e.ChannelID, &e.ChatID, &e.Title, &e.ThumbnailURL,
			&e.PublishedAt, &e.Summary, &e.Reason, &e.Attempts, &e.NextAttemptAt, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan retry entry row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating retry entry rows: %w", err)
	}

	return entries, nil
}

// BumpAttempt records a failed retry and reschedules the entry.
func (r *retryQueueRepository) BumpAttempt(id string, nextAttemptAt time.Time, reason string) error {
	_, err := r.db.Exec(`
		UPDATE retry_queue
		SET attempts = attempts + 1, next_attempt_at = ?, reason = ?
		WHERE id = ?
	`, nextAttemptAt.UTC(), reason, id)

	if err != nil {
		return fmt.Errorf("failed to bump retry attempt: %w", err)
	}

	return nil
}

func (r *retryQueueRepository) Remove(id string) error {
	_, err := r.db.Exec("DELETE FROM retry_queue WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove retry entry: %w", err)
	}
	return nil
}

// Cleanup removes entries past the attempt limit and collapses duplicate
// keys. The insert guard should make the duplicate pass a no-op.
func (r *retryQueueRepository) Cleanup(maxAttempts int) (int, error) {
	res, err := r.db.Exec(`
		DELETE FROM retry_queue
		WHERE attempts >= ?
		   OR id NOT IN (
			SELECT MIN(id) FROM retry_queue GROUP BY video_id, chat_id
		   )
	`, maxAttempts)

	if err != nil {
		return 0, fmt.Errorf("failed to clean up retry queue: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(removed), nil
}

func (r *retryQueueRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM retry_queue").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get retry queue count: %w", err)
	}
	return count, nil
}
