package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/services"
	"github.com/relieflink/relieflink/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for disaster notifications.
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(db *gorm.DB) (*NotificationHandler, error) {
	service, err := services.NewNotificationService(db)
	if err != nil {
		return nil, err
	}
	return &NotificationHandler{service: service}, nil
}

// ListForUser returns a user's notifications with optional filters.
func (h *NotificationHandler) ListForUser(c *gin.Context) {
	filter := services.NotificationFilter{
		Channel: strings.TrimSpace(c.Query("channel")),
		Status:  strings.TrimSpace(c.Query("status")),
		Page:    parseIntQuery(c, "page", 1),
		Limit:   parseIntQuery(c, "limit", 20),
	}

	notifications, total, err := h.service.ListForUser(requestContext(c), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		totalPages++
	}
	response.SuccessWithMeta(c, http.StatusOK, notifications, &response.Meta{
		Page:       filter.Page,
		PerPage:    filter.Limit,
		Total:      int(total),
		TotalPages: totalPages,
	})
}

// BulkCreate inserts a batch of notifications, reporting per-row failures
// with a 207 status while the valid rows commit.
func (h *NotificationHandler) BulkCreate(c *gin.Context) {
	var payload struct {
		Notifications []struct {
			UserID     string `json:"user_id" validate:"required"`
			DisasterID string `json:"disaster_id" validate:"required"`
			LocationID string `json:"location_id"`
			Channel    string `json:"channel" validate:"required,oneof=web email"`
		} `json:"notifications" validate:"required,min=1,dive"`
	}

	if !bindAndValidate(c, &payload) {
		return
	}

	inputs := make([]services.NotificationInput, 0, len(payload.Notifications))
	for _, row := range payload.Notifications {
		inputs = append(inputs, services.NotificationInput{
			UserID:     row.UserID,
			DisasterID: row.DisasterID,
			LocationID: row.LocationID,
			Channel:    row.Channel,
		})
	}

	created, err := h.service.BulkCreate(requestContext(c), inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, created)
}

// MarkRead transitions a notification to read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notification, err := h.service.MarkRead(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notification)
}

// MarkUnread transitions a notification back to unread.
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	notification, err := h.service.MarkUnread(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notification)
}

// Acknowledge marks a notification acknowledged.
func (h *NotificationHandler) Acknowledge(c *gin.Context) {
	notification, err := h.service.Acknowledge(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notification)
}

// MarkAllRead marks every unread notification for the user as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.service.MarkAllRead(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Delete removes a notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
