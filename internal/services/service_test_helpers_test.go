package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/geocode"
	"github.com/relieflink/relieflink/internal/models"
)

type stubResolver struct {
	fips  *geocode.FIPS
	err   error
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, _ geocode.Address) (*geocode.FIPS, error) {
	s.calls++
	return s.fips, s.err
}

func seedCompany(t *testing.T, db *gorm.DB, name string) models.Company {
	t.Helper()
	company := models.Company{Name: name}
	require.NoError(t, db.Create(&company).Error)
	return company
}

func seedUser(t *testing.T, db *gorm.DB, companyID, email string) models.User {
	t.Helper()
	user := models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		CompanyID: companyID,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedLocation(t *testing.T, db *gorm.DB, companyID, state, county string) models.Location {
	t.Helper()
	location := models.Location{
		CompanyID:     companyID,
		StreetAddress: "1 Main St",
		City:          "Springfield",
		StateProvince: "CA",
		PostalCode:    "95814",
	}
	if state != "" && county != "" {
		location.FIPSStateCode = &state
		location.FIPSCountyCode = &county
	}
	require.NoError(t, db.Create(&location).Error)
	return location
}

var disasterSeq int

func seedDisaster(t *testing.T, db *gorm.DB, state, county string) models.Disaster {
	t.Helper()
	disasterSeq++
	disaster := models.Disaster{
		ExternalID:      fmt.Sprintf("fema-%s-%s-%d", state, county, disasterSeq),
		DisasterNumber:  4000 + disasterSeq,
		FIPSStateCode:   state,
		FIPSCountyCode:  county,
		DeclarationDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		DeclarationType: "DR",
		DesignatedArea:  "Test County",
	}
	require.NoError(t, disaster.SetIncidentTypes([]string{"F"}))
	require.NoError(t, db.Create(&disaster).Error)
	return disaster
}

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }
