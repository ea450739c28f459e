package store

import (
	"context"
	"database/sql"
	"fmt"

	"fixbro/api/models"
)

// NotificationStore persists admin notifications in Postgres. Mark-all-read
// and clear-all run as single statements, so each is all-or-nothing.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Create appends an unread notification stamped with the server clock.
func (s *NotificationStore) Create(ctx context.Context, notificationType, message string) error {
	query := `
		INSERT INTO notifications (type, message, is_read)
		VALUES ($1, $2, FALSE);
	`
	if _, err := s.db.ExecContext(ctx, query, notificationType, message); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetNotifications returns all notifications, newest first.
func (s *NotificationStore) GetNotifications(ctx context.Context) ([]models.Notification, error) {
	query := `
		SELECT id, type, message, is_read, created_at
		FROM notifications
		ORDER BY created_at DESC;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	var results []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		results = append(results, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error reading notifications: %w", err)
	}
	return results, nil
}

func (s *NotificationStore) GetUnreadCount(ctx context.Context) (int, error) {
	var count int
	query := `SELECT count(*) FROM notifications WHERE is_read = FALSE;`
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE is_read = FALSE;`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return nil
}

func (s *NotificationStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications;`); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}
