package models

// Notification frequency values accepted by UserPreferences.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// UserPreferences holds per-user delivery settings. Exactly one row exists
// per user; the row is created lazily with both channels enabled.
type UserPreferences struct {
	BaseModel

	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	EmailEnabled            bool   `gorm:"default:true" json:"email_enabled"`
	WebNotificationsEnabled bool   `gorm:"default:true" json:"web_notifications_enabled"`
	Frequency               string `gorm:"type:varchar(16);default:'daily'" json:"frequency"`
}
