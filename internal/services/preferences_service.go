package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/models"
	apperrors "github.com/relieflink/relieflink/pkg/errors"
)

// PreferencesUpdate holds a partial preference change. Nil fields are left
// untouched.
type PreferencesUpdate struct {
	EmailEnabled            *bool   `json:"email_enabled"`
	WebNotificationsEnabled *bool   `json:"web_notifications_enabled"`
	Frequency               *string `json:"frequency"`
}

// PreferencesService manages per-user delivery settings. Rows are created
// lazily with every channel enabled, so fan-out never has to special-case
// users who have never touched their settings.
type PreferencesService struct {
	db *gorm.DB
}

// NewPreferencesService constructs a PreferencesService with the supplied dependencies.
func NewPreferencesService(db *gorm.DB) (*PreferencesService, error) {
	if db == nil {
		return nil, fmt.Errorf("preferences service: db is required")
	}
	return &PreferencesService{db: db}, nil
}

// GetOrCreate returns the user's preferences, creating the default row on
// first access. The user must exist.
func (s *PreferencesService) GetOrCreate(ctx context.Context, userID string) (*models.UserPreferences, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var prefs models.UserPreferences
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if err == nil {
		return &prefs, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("preferences service: load for user %q: %w", userID, err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("preferences service: check user %q: %w", userID, err)
	}
	if count == 0 {
		return nil, apperrors.NewNotFound("user not found")
	}

	prefs = models.UserPreferences{
		UserID:                  userID,
		EmailEnabled:            true,
		WebNotificationsEnabled: true,
		Frequency:               models.FrequencyDaily,
	}
	err = s.db.WithContext(ctx).Create(&prefs).Error
	if err != nil {
		// Another request created the row first; hand back theirs.
		if isUniqueConstraintError(err) {
			var existing models.UserPreferences
			if loadErr := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error; loadErr == nil {
				return &existing, nil
			}
		}
		return nil, fmt.Errorf("preferences service: create for user %q: %w", userID, err)
	}
	return &prefs, nil
}

// Update applies a partial preference change and returns the stored row.
func (s *PreferencesService) Update(ctx context.Context, userID string, update PreferencesUpdate) (*models.UserPreferences, error) {
	ctx = ensureContext(ctx)

	if update.EmailEnabled == nil && update.WebNotificationsEnabled == nil && update.Frequency == nil {
		return nil, apperrors.NewBadRequest("no preference fields supplied")
	}
	if update.Frequency != nil {
		normalised := strings.ToLower(strings.TrimSpace(*update.Frequency))
		if normalised != models.FrequencyDaily && normalised != models.FrequencyWeekly {
			return nil, apperrors.NewBadRequest("frequency must be daily or weekly")
		}
		update.Frequency = &normalised
	}

	prefs, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.EmailEnabled != nil {
		prefs.EmailEnabled = *update.EmailEnabled
	}
	if update.WebNotificationsEnabled != nil {
		prefs.WebNotificationsEnabled = *update.WebNotificationsEnabled
	}
	if update.Frequency != nil {
		prefs.Frequency = *update.Frequency
	}

	err = s.db.WithContext(ctx).Model(prefs).
		Select("email_enabled", "web_notifications_enabled", "frequency").
		Updates(map[string]interface{}{
			"email_enabled":             prefs.EmailEnabled,
			"web_notifications_enabled": prefs.WebNotificationsEnabled,
			"frequency":                 prefs.Frequency,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("preferences service: update for user %q: %w", userID, err)
	}
	return prefs, nil
}
