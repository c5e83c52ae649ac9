package database

import (
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Location{},
		&models.Disaster{},
		&models.UserPreferences{},
		&models.DisasterNotification{},
	)
}

// SeedData inserts the default company used by local development setups.
func SeedData(db *gorm.DB) error {
	defaultCompany := models.Company{
		BaseModel: models.BaseModel{ID: "00000000-0000-0000-0000-000000000001"},
		Name:      "Relieflink Demo Co",
	}

	return db.
		Where(models.Company{BaseModel: models.BaseModel{ID: defaultCompany.ID}}).
		Attrs(defaultCompany).
		FirstOrCreate(&models.Company{}).Error
}
