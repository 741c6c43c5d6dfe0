package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/queue"
)

// Notifier delivers notification events.  *queue.Publisher is the
// production implementation.
type Notifier interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// notify publishes a notification and only logs a failure; the action
// that triggered it has already been committed.
func notify(ctx context.Context, n Notifier, log *zap.Logger, userID uint64, kind, title, message, resourceType string, resourceID uint64) {
	if n == nil || userID == 0 {
		return
	}
	ev := queue.NewEvent(userID, kind, title, message, resourceType, resourceID)
	if err := n.Publish(ctx, ev); err != nil {
		log.Warn("notification dropped",
			zap.String("kind", kind), zap.Uint64("user_id", userID), zap.Error(err))
	}
}
