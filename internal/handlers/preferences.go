package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/services"
	"github.com/relieflink/relieflink/pkg/response"
)

// PreferencesHandler exposes HTTP endpoints for user delivery preferences.
type PreferencesHandler struct {
	service *services.PreferencesService
}

// NewPreferencesHandler constructs a preferences handler.
func NewPreferencesHandler(db *gorm.DB) (*PreferencesHandler, error) {
	service, err := services.NewPreferencesService(db)
	if err != nil {
		return nil, err
	}
	return &PreferencesHandler{service: service}, nil
}

// Get returns the user's preferences, creating the default row on first access.
func (h *PreferencesHandler) Get(c *gin.Context) {
	prefs, err := h.service.GetOrCreate(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, prefs)
}

// Update applies a partial preference change.
func (h *PreferencesHandler) Update(c *gin.Context) {
	var payload struct {
		EmailEnabled            *bool   `json:"email_enabled"`
		WebNotificationsEnabled *bool   `json:"web_notifications_enabled"`
		Frequency               *string `json:"frequency"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	prefs, err := h.service.Update(requestContext(c), c.Param("id"), services.PreferencesUpdate{
		EmailEnabled:            payload.EmailEnabled,
		WebNotificationsEnabled: payload.WebNotificationsEnabled,
		Frequency:               payload.Frequency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, prefs)
}
