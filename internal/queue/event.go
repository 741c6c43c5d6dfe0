// Package queue carries notification events over RabbitMQ.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/farmhub/internal/model"
)

// NotificationEvent is published whenever a domain action should notify
// a user.  It contains everything the consumer needs to persist the
// notification without querying the originating rows.
type NotificationEvent struct {
	ID           string    `json:"id"`
	UserID       uint64    `json:"user_id"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   uint64    `json:"resource_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewEvent stamps a fresh message id and timestamp.
func NewEvent(userID uint64, kind, title, message, resourceType string, resourceID uint64) NotificationEvent {
	return NotificationEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		Kind:         kind,
		Title:        title,
		Message:      message,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OccurredAt:   time.Now().UTC(),
	}
}

// Notification converts the event into the row stored for the user.
func (e NotificationEvent) Notification() model.Notification {
	n := model.Notification{
		UserID:  e.UserID,
		Kind:    e.Kind,
		Title:   e.Title,
		Message: e.Message,
	}
	if e.ResourceType != "" {
		rt := e.ResourceType
		n.ResourceType = &rt
	}
	if e.ResourceID != 0 {
		rid := e.ResourceID
		n.ResourceID = &rid
	}
	return n
}

// Handler processes one event.  The consumer and the inline fallback
// share it.
type Handler func(ctx context.Context, ev NotificationEvent) error
