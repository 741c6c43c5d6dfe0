package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/farmhub/internal/service"
)

// NotificationHandler serves /notifications/notifications.
type NotificationHandler struct {
	Notifications *service.NotificationService
}

func NewNotificationHandler(s *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: s}
}

// List returns the caller's notifications, newest first.  ?unread=true
// limits the page to unread ones.
func (h *NotificationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	unread, _ := strconv.ParseBool(c.QueryParam("unread"))
	p := parsePage(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Notifications.List(ctx, uid, unread, p)
	if err != nil {
		return respondError(c, err)
	}
	return respondList(c, presentNotifications(rows), total, p)
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Notifications.UnreadCount(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread_count": n})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Notifications.MarkRead(ctx, uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, presentNotification(n))
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Notifications.MarkAllRead(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	uid, id, err := ownerAndID(c)
	if err != nil {
		return paramError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Notifications.Delete(ctx, uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
