package models

import "time"

// Notification channels.
const (
	ChannelWeb   = "web"
	ChannelEmail = "email"
)

// Notification statuses. Transitions: unread -> read -> acknowledged,
// with read -> unread allowed. Acknowledged is terminal.
const (
	StatusUnread       = "unread"
	StatusRead         = "read"
	StatusAcknowledged = "acknowledged"
)

// DisasterNotification links a user to a disaster affecting one of their
// company's locations on a single delivery channel. The unique index on
// (user_id, disaster_id, channel) makes repeated fan-out runs collide
// instead of duplicating.
type DisasterNotification struct {
	BaseModel

	UserID string `gorm:"type:uuid;index;uniqueIndex:idx_notifications_user_disaster_channel;not null" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	DisasterID string    `gorm:"type:uuid;uniqueIndex:idx_notifications_user_disaster_channel;not null" json:"disaster_id"`
	Disaster   *Disaster `gorm:"foreignKey:DisasterID" json:"disaster,omitempty"`

	LocationID string    `gorm:"type:uuid" json:"location_id"`
	Location   *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`

	Channel string `gorm:"type:varchar(8);uniqueIndex:idx_notifications_user_disaster_channel;not null" json:"channel"`
	Status  string `gorm:"type:varchar(16);default:'unread';index" json:"status"`

	FirstSentAt    *time.Time `json:"first_sent_at"`
	LastSentAt     *time.Time `json:"last_sent_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
}

// ValidChannel reports whether the supplied channel is supported.
func ValidChannel(channel string) bool {
	return channel == ChannelWeb || channel == ChannelEmail
}

// ValidStatus reports whether the supplied status is supported.
func ValidStatus(status string) bool {
	switch status {
	case StatusUnread, StatusRead, StatusAcknowledged:
		return true
	}
	return false
}
