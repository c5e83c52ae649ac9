package models

// Location is a business address owned by a company. The FIPS pair is
// populated by the geocoder at creation time; both codes are present or
// both are null — a half-resolved pair is never stored.
type Location struct {
	BaseModel

	CompanyID string   `gorm:"type:uuid;index;not null" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	StreetAddress string `gorm:"type:varchar(255)" json:"street_address"`
	City          string `gorm:"type:varchar(128)" json:"city"`
	StateProvince string `gorm:"type:varchar(64)" json:"state_province"`
	PostalCode    string `gorm:"type:varchar(32)" json:"postal_code"`

	FIPSStateCode  *string `gorm:"column:fips_state_code;type:varchar(2);index:idx_locations_fips" json:"fips_state_code"`
	FIPSCountyCode *string `gorm:"column:fips_county_code;type:varchar(3);index:idx_locations_fips" json:"fips_county_code"`
}

// HasFIPS reports whether the location carries a complete FIPS pair.
func (l *Location) HasFIPS() bool {
	return l.FIPSStateCode != nil && l.FIPSCountyCode != nil
}
