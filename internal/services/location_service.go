package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/geocode"
	"github.com/relieflink/relieflink/internal/models"
	apperrors "github.com/relieflink/relieflink/pkg/errors"
	"github.com/relieflink/relieflink/pkg/logger"
)

// LocationInput carries the address fields for a new company location.
type LocationInput struct {
	CompanyID     string `json:"company_id"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	StateProvince string `json:"state_province"`
	PostalCode    string `json:"postal_code"`
}

// LocationUpdate holds a partial address change. Nil fields are left
// untouched; any present field triggers FIPS re-resolution.
type LocationUpdate struct {
	StreetAddress *string `json:"street_address"`
	City          *string `json:"city"`
	StateProvince *string `json:"state_province"`
	PostalCode    *string `json:"postal_code"`
}

// LocationService manages company locations and keeps their FIPS pair in
// step with the address. Geocoding failures are recoverable: the location
// is stored with a null pair and simply never matches a disaster.
type LocationService struct {
	db       *gorm.DB
	resolver geocode.Resolver
}

// NewLocationService constructs a LocationService with the supplied dependencies.
func NewLocationService(db *gorm.DB, resolver geocode.Resolver) (*LocationService, error) {
	if db == nil {
		return nil, fmt.Errorf("location service: db is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("location service: geocode resolver is required")
	}
	return &LocationService{db: db, resolver: resolver}, nil
}

// Create stores a new location, resolving its FIPS pair from the address.
func (s *LocationService) Create(ctx context.Context, input LocationInput) (*models.Location, error) {
	ctx = ensureContext(ctx)

	location, err := s.buildLocation(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(location).Error; err != nil {
		return nil, fmt.Errorf("location service: create: %w", err)
	}
	return location, nil
}

// BulkCreate stores many locations, committing valid rows and reporting
// invalid ones through a BulkError.
func (s *LocationService) BulkCreate(ctx context.Context, inputs []LocationInput) ([]models.Location, error) {
	ctx = ensureContext(ctx)
	if len(inputs) == 0 {
		return nil, apperrors.NewBadRequest("at least one location is required")
	}

	var (
		created  []models.Location
		failures []apperrors.BulkFailure
	)
	for i, input := range inputs {
		location, err := s.buildLocation(ctx, input)
		if err != nil {
			failures = append(failures, apperrors.BulkFailure{
				Index:  i,
				Reason: apperrors.FromError(err).Message,
				Err:    err,
			})
			continue
		}
		if err := s.db.WithContext(ctx).Create(location).Error; err != nil {
			failures = append(failures, apperrors.BulkFailure{Index: i, Reason: "insert failed", Err: err})
			continue
		}
		created = append(created, *location)
	}

	if len(failures) > 0 {
		return created, &apperrors.BulkError{
			Op:        "create locations",
			Succeeded: len(created),
			Failures:  failures,
		}
	}
	return created, nil
}

// Get returns a single location by id.
func (s *LocationService) Get(ctx context.Context, id string) (*models.Location, error) {
	ctx = ensureContext(ctx)
	return s.load(ctx, id)
}

// Update applies an address correction and re-resolves the FIPS pair.
func (s *LocationService) Update(ctx context.Context, id string, update LocationUpdate) (*models.Location, error) {
	ctx = ensureContext(ctx)

	if update.StreetAddress == nil && update.City == nil && update.StateProvince == nil && update.PostalCode == nil {
		return nil, apperrors.NewBadRequest("no address fields supplied")
	}

	location, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.StreetAddress != nil {
		location.StreetAddress = strings.TrimSpace(*update.StreetAddress)
	}
	if update.City != nil {
		location.City = strings.TrimSpace(*update.City)
	}
	if update.StateProvince != nil {
		location.StateProvince = strings.TrimSpace(*update.StateProvince)
	}
	if update.PostalCode != nil {
		location.PostalCode = strings.TrimSpace(*update.PostalCode)
	}

	state, county := s.resolveFIPS(ctx, *location)
	location.FIPSStateCode = state
	location.FIPSCountyCode = county

	err = s.db.WithContext(ctx).Model(location).
		Updates(map[string]interface{}{
			"street_address":   location.StreetAddress,
			"city":             location.City,
			"state_province":   location.StateProvince,
			"postal_code":      location.PostalCode,
			"fips_state_code":  location.FIPSStateCode,
			"fips_county_code": location.FIPSCountyCode,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("location service: update %q: %w", id, err)
	}
	return location, nil
}

// Delete removes a location.
func (s *LocationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Delete(&models.Location{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("location service: delete %q: %w", id, err)
	}
	return nil
}

// ListForCompany returns every location owned by the company.
func (s *LocationService) ListForCompany(ctx context.Context, companyID string) ([]models.Location, error) {
	ctx = ensureContext(ctx)
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, apperrors.NewBadRequest("company id is required")
	}

	var locations []models.Location
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&locations).Error
	if err != nil {
		return nil, fmt.Errorf("location service: list for company %q: %w", companyID, err)
	}
	return locations, nil
}

func (s *LocationService) load(ctx context.Context, id string) (*models.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewBadRequest("location id is required")
	}

	var location models.Location
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&location).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("location not found")
		}
		return nil, fmt.Errorf("location service: load %q: %w", id, err)
	}
	return &location, nil
}

func (s *LocationService) buildLocation(ctx context.Context, input LocationInput) (*models.Location, error) {
	input.CompanyID = strings.TrimSpace(input.CompanyID)
	if input.CompanyID == "" {
		return nil, apperrors.NewBadRequest("company id is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Company{}).Where("id = ?", input.CompanyID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("location service: check company %q: %w", input.CompanyID, err)
	}
	if count == 0 {
		return nil, apperrors.NewNotFound("company not found")
	}

	location := models.Location{
		CompanyID:     input.CompanyID,
		StreetAddress: strings.TrimSpace(input.StreetAddress),
		City:          strings.TrimSpace(input.City),
		StateProvince: strings.TrimSpace(input.StateProvince),
		PostalCode:    strings.TrimSpace(input.PostalCode),
	}
	location.FIPSStateCode, location.FIPSCountyCode = s.resolveFIPS(ctx, location)
	return &location, nil
}

// resolveFIPS returns a complete pair or two nils, never a half pair.
func (s *LocationService) resolveFIPS(ctx context.Context, location models.Location) (*string, *string) {
	fips, err := s.resolver.Resolve(ctx, geocode.Address{
		Street:     location.StreetAddress,
		City:       location.City,
		State:      location.StateProvince,
		PostalCode: location.PostalCode,
	})
	if err != nil {
		logger.Warn("geocode lookup failed, storing location without fips codes",
			zap.String("city", location.City),
			zap.Error(err))
		return nil, nil
	}
	if fips == nil || fips.StateCode == "" || fips.CountyCode == "" {
		return nil, nil
	}

	state, county := fips.StateCode, fips.CountyCode
	return &state, &county
}
