package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationListLimit caps how many notifications a snapshot carries.
const NotificationListLimit = 50

// NotificationRepository abstracts notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, userID, notifType, title, body string, data models.NotifyData) (models.Notification, error)
	List(ctx context.Context, userID string) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `id, user_id, type, title, body, data, read, created_at`

// Create stores a notification for a recipient.
func (r *NotificationRepo) Create(ctx context.Context, userID, notifType, title, body string, data models.NotifyData) (models.Notification, error) {
	var n models.Notification
	err := r.db.GetContext(ctx, &n, `INSERT INTO notifications (id, user_id, type, title, body, data)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+notificationColumns,
		uuid.NewString(), userID, notifType, title, body, data)
	return n, err
}

// List returns the recipient's notifications, most recent first, capped.
func (r *NotificationRepo) List(ctx context.Context, userID string) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, `SELECT `+notificationColumns+` FROM notifications
        WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, NotificationListLimit)
	return list, err
}

// UnreadCount returns the number of unread notifications for a recipient.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND read = FALSE`, userID)
	return count, err
}

// MarkRead flags one of the recipient's notifications as read. A
// notification belonging to someone else reads as not found.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, notificationID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id=$1 AND user_id=$2`, notificationID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of a recipient as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id=$1 AND read = FALSE`, userID)
	return err
}
