package models

// Company owns business locations and employs users.
type Company struct {
	BaseModel

	Name string `gorm:"type:varchar(255);not null" json:"name"`

	Users     []User     `gorm:"foreignKey:CompanyID" json:"users,omitempty"`
	Locations []Location `gorm:"foreignKey:CompanyID" json:"locations,omitempty"`
}
