package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relieflink/relieflink/internal/models"
	apperrors "github.com/relieflink/relieflink/pkg/errors"
	"github.com/relieflink/relieflink/pkg/metrics"
)

// DisasterInput carries one upstream disaster declaration.
type DisasterInput struct {
	ExternalID        string     `json:"external_id"`
	DisasterNumber    int        `json:"disaster_number"`
	FIPSStateCode     string     `json:"fips_state_code"`
	FIPSCountyCode    string     `json:"fips_county_code"`
	DeclarationDate   time.Time  `json:"declaration_date"`
	IncidentBeginDate *time.Time `json:"incident_begin_date"`
	IncidentEndDate   *time.Time `json:"incident_end_date"`
	DeclarationType   string     `json:"declaration_type"`
	DesignatedArea    string     `json:"designated_area"`
	IncidentTypes     []string   `json:"incident_types"`
}

// DisasterService maintains the append-only disaster registry. Declarations
// are keyed by their upstream identifier; re-ingesting a known declaration
// refreshes its mutable fields instead of duplicating the row.
type DisasterService struct {
	db *gorm.DB
}

// NewDisasterService constructs a DisasterService with the supplied dependencies.
func NewDisasterService(db *gorm.DB) (*DisasterService, error) {
	if db == nil {
		return nil, fmt.Errorf("disaster service: db is required")
	}
	return &DisasterService{db: db}, nil
}

// Upsert stores or refreshes a declaration and reports whether it was new.
func (s *DisasterService) Upsert(ctx context.Context, input DisasterInput) (*models.Disaster, bool, error) {
	ctx = ensureContext(ctx)

	if err := validateDisasterInput(&input); err != nil {
		return nil, false, err
	}

	var existing models.Disaster
	err := s.db.WithContext(ctx).
		Where("external_id = ?", input.ExternalID).
		First(&existing).Error
	isNew := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !isNew {
		return nil, false, fmt.Errorf("disaster service: lookup %q: %w", input.ExternalID, err)
	}

	disaster := models.Disaster{
		ExternalID:        input.ExternalID,
		DisasterNumber:    input.DisasterNumber,
		FIPSStateCode:     input.FIPSStateCode,
		FIPSCountyCode:    input.FIPSCountyCode,
		DeclarationDate:   input.DeclarationDate,
		IncidentBeginDate: input.IncidentBeginDate,
		IncidentEndDate:   input.IncidentEndDate,
		DeclarationType:   strings.ToUpper(strings.TrimSpace(input.DeclarationType)),
		DesignatedArea:    strings.TrimSpace(input.DesignatedArea),
	}
	if err := disaster.SetIncidentTypes(input.IncidentTypes); err != nil {
		return nil, false, fmt.Errorf("disaster service: encode incident types: %w", err)
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"disaster_number",
				"fips_state_code",
				"fips_county_code",
				"declaration_date",
				"incident_begin_date",
				"incident_end_date",
				"declaration_type",
				"designated_area",
				"incident_types",
				"updated_at",
			}),
		}).
		Create(&disaster).Error
	if err != nil {
		return nil, false, fmt.Errorf("disaster service: upsert %q: %w", input.ExternalID, err)
	}

	// Reload so the conflict path returns the surviving row, not the
	// discarded insert candidate.
	var stored models.Disaster
	err = s.db.WithContext(ctx).
		Where("external_id = ?", input.ExternalID).
		First(&stored).Error
	if err != nil {
		return nil, false, fmt.Errorf("disaster service: reload %q: %w", input.ExternalID, err)
	}

	if isNew {
		metrics.DisastersIngested.WithLabelValues("new").Inc()
	} else {
		metrics.DisastersIngested.WithLabelValues("updated").Inc()
	}

	return &stored, isNew, nil
}

// Get returns a single disaster by internal id.
func (s *DisasterService) Get(ctx context.Context, id string) (*models.Disaster, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewBadRequest("disaster id is required")
	}

	var disaster models.Disaster
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&disaster).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("disaster not found")
		}
		return nil, fmt.Errorf("disaster service: get %q: %w", id, err)
	}
	return &disaster, nil
}

// List returns all known disasters, newest declarations first.
func (s *DisasterService) List(ctx context.Context) ([]models.Disaster, error) {
	ctx = ensureContext(ctx)

	var disasters []models.Disaster
	err := s.db.WithContext(ctx).
		Order("declaration_date DESC, external_id ASC").
		Find(&disasters).Error
	if err != nil {
		return nil, fmt.Errorf("disaster service: list: %w", err)
	}
	return disasters, nil
}

func validateDisasterInput(input *DisasterInput) error {
	input.ExternalID = strings.TrimSpace(input.ExternalID)
	input.FIPSStateCode = strings.TrimSpace(input.FIPSStateCode)
	input.FIPSCountyCode = strings.TrimSpace(input.FIPSCountyCode)

	switch {
	case input.ExternalID == "":
		return apperrors.NewBadRequest("external id is required")
	case input.FIPSStateCode == "" || input.FIPSCountyCode == "":
		return apperrors.NewBadRequest("fips state and county codes are required")
	case input.DeclarationDate.IsZero():
		return apperrors.NewBadRequest("declaration date is required")
	}
	return nil
}
