package models

// User represents a registered member of a company.
type User struct {
	BaseModel

	FirstName string `gorm:"type:varchar(128)" json:"first_name"`
	LastName  string `gorm:"type:varchar(128)" json:"last_name"`
	Email     string `gorm:"type:varchar(255);index" json:"email"`

	CompanyID string   `gorm:"type:uuid;index" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}
