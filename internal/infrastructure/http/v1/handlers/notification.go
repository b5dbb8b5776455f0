package handlers

import (
	"github.com/gin-gonic/gin"

	"farmapos/internal/domain/notification"
	"farmapos/internal/infrastructure/http/v1/dto"
)

// NotificationHandler exposes the alert inbox.
type NotificationHandler struct {
	BaseHandler
	service *notification.Service
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(service *notification.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List returns notifications, newest first.
// GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	q.Defaults()

	var (
		items any
		err   error
	)
	if c.Query("unread") == "true" {
		items, err = h.service.ListUnread(c.Request.Context(), q.Limit, q.Offset)
	} else {
		items, err = h.service.List(c.Request.Context(), q.Limit, q.Offset)
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: items, Limit: q.Limit, Offset: q.Offset})
}

// Get returns a single notification.
// GET /api/v1/notifications/:id
func (h *NotificationHandler) Get(c *gin.Context) {
	notificationID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	n, err := h.service.GetByID(c.Request.Context(), notificationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, n)
}

// MarkRead acknowledges one notification.
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), notificationID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "notification marked as read")
}

// MarkAllRead acknowledges every unread notification.
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.service.MarkAllRead(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "all notifications marked as read")
}

// SweepExpirations scans the catalog for expiring and expired products.
// POST /api/v1/notifications/sweep
func (h *NotificationHandler) SweepExpirations(c *gin.Context) {
	if err := h.service.SweepExpirations(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "expiration sweep completed")
}
