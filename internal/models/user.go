package models

import "time"

// User is a storefront customer known to the user directory.
type User struct {
	UserID string `gorm:"type:varchar(64);primaryKey"` // External identity provider ID.

	Username string `gorm:"type:varchar(191);not null;index"` // Display login name, matched case-insensitively.
	Name     string `gorm:"type:text"`                        // Optional display name.
	Email    string `gorm:"type:varchar(255)"`                // Optional contact email.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
