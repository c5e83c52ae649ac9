package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/services"
	"github.com/relieflink/relieflink/pkg/response"
)

// DisasterHandler exposes HTTP endpoints for the disaster registry.
type DisasterHandler struct {
	service *services.DisasterService
}

// NewDisasterHandler constructs a disaster handler.
func NewDisasterHandler(db *gorm.DB) (*DisasterHandler, error) {
	service, err := services.NewDisasterService(db)
	if err != nil {
		return nil, err
	}
	return &DisasterHandler{service: service}, nil
}

// Upsert stores or refreshes a disaster declaration.
func (h *DisasterHandler) Upsert(c *gin.Context) {
	var payload struct {
		ExternalID        string     `json:"external_id" validate:"required"`
		DisasterNumber    int        `json:"disaster_number"`
		FIPSStateCode     string     `json:"fips_state_code" validate:"required"`
		FIPSCountyCode    string     `json:"fips_county_code" validate:"required"`
		DeclarationDate   time.Time  `json:"declaration_date" validate:"required"`
		IncidentBeginDate *time.Time `json:"incident_begin_date"`
		IncidentEndDate   *time.Time `json:"incident_end_date"`
		DeclarationType   string     `json:"declaration_type"`
		DesignatedArea    string     `json:"designated_area"`
		IncidentTypes     []string   `json:"incident_types"`
	}

	if !bindAndValidate(c, &payload) {
		return
	}

	disaster, isNew, err := h.service.Upsert(requestContext(c), services.DisasterInput{
		ExternalID:        payload.ExternalID,
		DisasterNumber:    payload.DisasterNumber,
		FIPSStateCode:     payload.FIPSStateCode,
		FIPSCountyCode:    payload.FIPSCountyCode,
		DeclarationDate:   payload.DeclarationDate,
		IncidentBeginDate: payload.IncidentBeginDate,
		IncidentEndDate:   payload.IncidentEndDate,
		DeclarationType:   payload.DeclarationType,
		DesignatedArea:    payload.DesignatedArea,
		IncidentTypes:     payload.IncidentTypes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"disaster": disaster, "is_new": isNew})
}

// List returns every known disaster.
func (h *DisasterHandler) List(c *gin.Context) {
	disasters, err := h.service.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, disasters)
}

// Get returns a single disaster.
func (h *DisasterHandler) Get(c *gin.Context) {
	disaster, err := h.service.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, disaster)
}
