package service

import (
	"context"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/queue"
)

// NotificationStore persists notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, userID uint64, unreadOnly bool, p model.Page) ([]model.Notification, int, error)
	UnreadCount(ctx context.Context, userID uint64) (int, error)
	MarkRead(ctx context.Context, userID, id uint64) (model.Notification, error)
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
	Delete(ctx context.Context, userID, id uint64) error
}

// NotificationService implements the notifications module.  Store is
// the sink for events coming off the broker or the inline fallback.
type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

// Store persists one event.  It satisfies queue.Handler.
func (s *NotificationService) Store(ctx context.Context, ev queue.NotificationEvent) error {
	n := ev.Notification()
	return s.store.Create(ctx, &n)
}

func (s *NotificationService) List(ctx context.Context, userID uint64, unreadOnly bool, p model.Page) ([]model.Notification, int, error) {
	return s.store.List(ctx, userID, unreadOnly, p)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	return s.store.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint64) (model.Notification, error) {
	return s.store.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint64) error {
	return s.store.Delete(ctx, userID, id)
}
