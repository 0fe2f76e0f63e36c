package repository

import (
	"context"
	"fmt"

	"github.com/tconnectmw/store-system/internal/model"
)

// CreateNotification stores an alert addressed to an inbox. The back office
// uses a shared inbox name, customers their own email.
func (r *PostgresRepository) CreateNotification(ctx context.Context, email, title, body string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (email, title, body) VALUES ($1, $2, $3)`,
		email, title, body,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns an inbox, newest first.
func (r *PostgresRepository) ListNotifications(ctx context.Context, email string) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, title, body, read, created_at
		 FROM notifications WHERE email = $1 ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Email, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return notifications, nil
}

// UnreadNotificationCount returns the number of unread alerts in an inbox.
func (r *PostgresRepository) UnreadNotificationCount(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE email = $1 AND read = false`,
		email,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead marks one alert as read.
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every alert in an inbox as read.
func (r *PostgresRepository) MarkAllNotificationsRead(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = true WHERE email = $1 AND read = false`,
		email,
	)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
