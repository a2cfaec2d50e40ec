package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

const notificationColumns = `id, user_id, type, title, message, data, read, created_at, expires_at`

const defaultNotificationLimit = 20

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data, n.Read, n.CreatedAt, n.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID uuid.UUID, opts *model.NotificationListOptions) ([]*model.Notification, int64, error) {
	where := ` WHERE user_id = $1`
	args := []interface{}{userID}

	limit, offset := defaultNotificationLimit, 0
	if opts != nil {
		if opts.UnreadOnly {
			where += ` AND read = false`
		}
		if opts.Type != "" {
			args = append(args, opts.Type)
			where += fmt.Sprintf(" AND type = $%d", len(args))
		}
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		offset = opts.Offset
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if err := requireRows(result); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if err := requireRows(result); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// Stats reads totals and per-type counts in one transaction so the numbers agree.
func (r *notificationRepository) Stats(ctx context.Context, userID uuid.UUID) (*model.NotificationStats, error) {
	stats := &model.NotificationStats{ByType: make(map[model.NotificationType]int64)}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var totals struct {
			Total  int64 `db:"total"`
			Unread int64 `db:"unread"`
		}
		if err := tx.GetContext(ctx, &totals, `
			SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE read = false) AS unread
			FROM notifications WHERE user_id = $1`, userID); err != nil {
			return err
		}
		stats.Total, stats.Unread = totals.Total, totals.Unread

		var rows []struct {
			Type  model.NotificationType `db:"type"`
			Count int64                  `db:"count"`
		}
		if err := tx.SelectContext(ctx, &rows, `
			SELECT type, COUNT(*) AS count
			FROM notifications WHERE user_id = $1 GROUP BY type`, userID); err != nil {
			return err
		}
		for _, row := range rows {
			stats.ByType[row.Type] = row.Count
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get notification stats: %w", err)
	}
	return stats, nil
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	return result.RowsAffected()
}
