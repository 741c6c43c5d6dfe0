package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/farmhub/internal/model"
)

// NotificationRepo persists per-user notifications.
type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationCols = "id, user_id, kind, title, message, resource_type, resource_id, read_at, created_at"

func scanNotification(s scanner) (model.Notification, error) {
	var n model.Notification
	err := s.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.ResourceType, &n.ResourceID, &n.ReadAt, &n.CreatedAt)
	return n, err
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, kind, title, message, resource_type, resource_id) VALUES (?,?,?,?,?,?)",
		n.UserID, n.Kind, n.Title, n.Message, n.ResourceType, n.ResourceID)
	if err != nil {
		return err
	}
	n.ID, err = insertID(res)
	return err
}

// List returns one page of the user's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, userID uint64, unreadOnly bool, p model.Page) ([]model.Notification, int, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	if unreadOnly {
		w.add("read_at IS NULL")
	}
	total, err := count(ctx, r.db, "notifications", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+notificationCols+" FROM notifications"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id=? AND read_at IS NULL", userID).Scan(&n)
	return n, err
}

// MarkRead sets read_at on one of the user's notifications.  Marking an
// already read notification is a no-op; a foreign or missing id is
// ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uint64) (model.Notification, error) {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = UTC_TIMESTAMP() WHERE id=? AND user_id=? AND read_at IS NULL",
		id, userID); err != nil {
		return model.Notification{}, err
	}
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		"SELECT "+notificationCols+" FROM notifications WHERE id=? AND user_id=?", id, userID))
	return n, notFound(err)
}

// MarkAllRead marks every unread notification of the user and returns
// how many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = UTC_TIMESTAMP() WHERE user_id=? AND read_at IS NULL", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *NotificationRepo) Delete(ctx context.Context, userID, id uint64) error {
	return mustAffect(r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id=? AND user_id=?", id, userID))
}
