package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserNotification is one notification row shown to a single user.
type UserNotification struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:varchar(64);not null;index"`                                   // Recipient.
	User   *User  `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE"` // Recipient record.

	Type       string         `gorm:"type:varchar(64);not null"`  // Notification kind.
	TitleKey   string         `gorm:"type:varchar(191);not null"` // Localization key for the title.
	ContentKey string         `gorm:"type:varchar(191);not null"` // Localization key for the content.
	Data       datatypes.JSON // Structured payload rendered into the localized strings.

	IsRead bool `gorm:"not null;default:false"` // Read flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
