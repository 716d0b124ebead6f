package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/live"
	"social-service/internal/middleware"
	"social-service/internal/repositories"
)

// NotificationHandler manages the notification inbox.
type NotificationHandler struct {
	notifications repositories.NotificationRepository
	bus           *live.Bus
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(notifications repositories.NotificationRepository, bus *live.Bus) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, bus: bus}
}

// List returns the caller's recent notifications with the unread count.
func (h *NotificationHandler) List(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	list, err := h.notifications.List(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notifications"})
		return
	}
	unread, err := h.notifications.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": list, "unreadCount": unread})
}

// MarkRead marks one of the caller's notifications as read. The update is
// scoped to the caller, so another recipient's notification comes back 404.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	notificationID := c.Param("notification_id")

	if err := h.notifications.MarkRead(c.Request.Context(), uid, notificationID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not mark read"})
		return
	}

	h.bus.Publish("notifications:" + uid)
	c.Status(http.StatusNoContent)
}

// MarkAllRead marks every notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	if err := h.notifications.MarkAllRead(c.Request.Context(), uid); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark all read"})
		return
	}

	h.bus.Publish("notifications:" + uid)
	c.Status(http.StatusNoContent)
}
