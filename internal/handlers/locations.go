package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/geocode"
	"github.com/relieflink/relieflink/internal/services"
	"github.com/relieflink/relieflink/pkg/response"
)

// LocationHandler exposes HTTP endpoints for company locations.
type LocationHandler struct {
	service *services.LocationService
}

// NewLocationHandler constructs a location handler.
func NewLocationHandler(db *gorm.DB, resolver geocode.Resolver) (*LocationHandler, error) {
	service, err := services.NewLocationService(db, resolver)
	if err != nil {
		return nil, err
	}
	return &LocationHandler{service: service}, nil
}

type locationPayload struct {
	CompanyID     string `json:"company_id" validate:"required"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	StateProvince string `json:"state_province"`
	PostalCode    string `json:"postal_code"`
}

func (p locationPayload) input() services.LocationInput {
	return services.LocationInput{
		CompanyID:     p.CompanyID,
		StreetAddress: p.StreetAddress,
		City:          p.City,
		StateProvince: p.StateProvince,
		PostalCode:    p.PostalCode,
	}
}

// Create stores a new location.
func (h *LocationHandler) Create(c *gin.Context) {
	var payload locationPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	location, err := h.service.Create(requestContext(c), payload.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, location)
}

// BulkCreate stores a batch of locations, reporting per-row failures.
func (h *LocationHandler) BulkCreate(c *gin.Context) {
	var payload struct {
		Locations []locationPayload `json:"locations" validate:"required,min=1,dive"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	inputs := make([]services.LocationInput, 0, len(payload.Locations))
	for _, row := range payload.Locations {
		inputs = append(inputs, row.input())
	}

	created, err := h.service.BulkCreate(requestContext(c), inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, created)
}

// Get returns a single location.
func (h *LocationHandler) Get(c *gin.Context) {
	location, err := h.service.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, location)
}

// Update applies an address correction and re-resolves the FIPS pair.
func (h *LocationHandler) Update(c *gin.Context) {
	var payload struct {
		StreetAddress *string `json:"street_address"`
		City          *string `json:"city"`
		StateProvince *string `json:"state_province"`
		PostalCode    *string `json:"postal_code"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	location, err := h.service.Update(requestContext(c), c.Param("id"), services.LocationUpdate{
		StreetAddress: payload.StreetAddress,
		City:          payload.City,
		StateProvince: payload.StateProvince,
		PostalCode:    payload.PostalCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, location)
}

// Delete removes a location.
func (h *LocationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ListForCompany returns every location owned by a company.
func (h *LocationHandler) ListForCompany(c *gin.Context) {
	locations, err := h.service.ListForCompany(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, locations)
}
