package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/models"
)

// AffectedParty is one (user, disaster, location) triple produced by
// matching a disaster's county against a company location.
type AffectedParty struct {
	User     models.User
	Disaster models.Disaster
	Location models.Location
}

// AffectedResolver finds every user whose company has a location inside a
// disaster's designated county. Locations without a resolved FIPS pair
// never match.
type AffectedResolver struct {
	db *gorm.DB
}

// NewAffectedResolver constructs an AffectedResolver with the supplied dependencies.
func NewAffectedResolver(db *gorm.DB) (*AffectedResolver, error) {
	if db == nil {
		return nil, fmt.Errorf("affected resolver: db is required")
	}
	return &AffectedResolver{db: db}, nil
}

// FindAffected returns the flattened affected triples for the given
// disasters. The location match is a single query ORing the distinct
// FIPS pairs.
func (r *AffectedResolver) FindAffected(ctx context.Context, disasters []models.Disaster) ([]AffectedParty, error) {
	ctx = ensureContext(ctx)
	if len(disasters) == 0 {
		return nil, nil
	}

	byPair := make(map[string][]models.Disaster)
	for _, disaster := range disasters {
		if disaster.FIPSStateCode == "" || disaster.FIPSCountyCode == "" {
			continue
		}
		key := fipsKey(disaster.FIPSStateCode, disaster.FIPSCountyCode)
		byPair[key] = append(byPair[key], disaster)
	}
	if len(byPair) == 0 {
		return nil, nil
	}

	var (
		conds []string
		args  []interface{}
	)
	for key := range byPair {
		state, county, _ := strings.Cut(key, "|")
		conds = append(conds, "(fips_state_code = ? AND fips_county_code = ?)")
		args = append(args, state, county)
	}

	var locations []models.Location
	err := r.db.WithContext(ctx).
		Where(strings.Join(conds, " OR "), args...).
		Find(&locations).Error
	if err != nil {
		return nil, fmt.Errorf("affected resolver: match locations: %w", err)
	}
	if len(locations) == 0 {
		return nil, nil
	}

	companyIDs := make([]string, 0, len(locations))
	seen := make(map[string]struct{}, len(locations))
	for _, location := range locations {
		if _, ok := seen[location.CompanyID]; ok {
			continue
		}
		seen[location.CompanyID] = struct{}{}
		companyIDs = append(companyIDs, location.CompanyID)
	}

	var users []models.User
	err = r.db.WithContext(ctx).
		Where("company_id IN ?", companyIDs).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("affected resolver: load company users: %w", err)
	}

	usersByCompany := make(map[string][]models.User, len(companyIDs))
	for _, user := range users {
		usersByCompany[user.CompanyID] = append(usersByCompany[user.CompanyID], user)
	}

	var affected []AffectedParty
	for _, location := range locations {
		if !location.HasFIPS() {
			continue
		}
		matched := byPair[fipsKey(*location.FIPSStateCode, *location.FIPSCountyCode)]
		for _, disaster := range matched {
			for _, user := range usersByCompany[location.CompanyID] {
				affected = append(affected, AffectedParty{
					User:     user,
					Disaster: disaster,
					Location: location,
				})
			}
		}
	}
	return affected, nil
}

func fipsKey(state, county string) string {
	return state + "|" + county
}
