package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Disaster is a single declared disaster for one designated county.
// ExternalID is the upstream declaration identifier and the natural key
// for upserts; DisasterNumber repeats across counties within one event.
type Disaster struct {
	BaseModel

	ExternalID     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"external_id"`
	DisasterNumber int    `gorm:"index" json:"disaster_number"`

	FIPSStateCode  string `gorm:"column:fips_state_code;type:varchar(2);index:idx_disasters_fips;not null" json:"fips_state_code"`
	FIPSCountyCode string `gorm:"column:fips_county_code;type:varchar(3);index:idx_disasters_fips;not null" json:"fips_county_code"`

	DeclarationDate   time.Time  `gorm:"not null" json:"declaration_date"`
	IncidentBeginDate *time.Time `json:"incident_begin_date"`
	IncidentEndDate   *time.Time `json:"incident_end_date"`

	DeclarationType string         `gorm:"type:varchar(8)" json:"declaration_type"`
	DesignatedArea  string         `gorm:"type:varchar(255)" json:"designated_area"`
	IncidentTypes   datatypes.JSON `json:"incident_types"`
}

// SetIncidentTypes stores the free-text incident type list as JSON.
func (d *Disaster) SetIncidentTypes(types []string) error {
	data, err := json.Marshal(types)
	if err != nil {
		return err
	}
	d.IncidentTypes = datatypes.JSON(data)
	return nil
}

// IncidentTypeList decodes the stored incident type list. Malformed or
// empty payloads decode to nil.
func (d *Disaster) IncidentTypeList() []string {
	if len(d.IncidentTypes) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(d.IncidentTypes, &out); err != nil {
		return nil
	}
	return out
}
