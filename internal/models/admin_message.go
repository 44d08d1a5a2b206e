package models

import "time"

// Admin message target types.
const (
	// MessageTargetAll addresses every user in the directory.
	MessageTargetAll = "all"
	// MessageTargetUsername addresses one user by case-insensitive username.
	MessageTargetUsername = "username"
	// MessageTargetUserID addresses one user by exact user ID.
	MessageTargetUserID = "userId"
)

// AdminMessage records a broadcast sent by an administrator.
type AdminMessage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TargetType  string  `gorm:"type:varchar(16);not null"` // One of the MessageTarget constants.
	TargetValue *string `gorm:"type:varchar(191)"`         // Nil iff TargetType is all.

	Title  string  `gorm:"type:text;not null"` // Message title.
	Body   string  `gorm:"type:text;not null"` // Message body.
	Sender *string `gorm:"type:varchar(191)"`  // Sending admin, best-effort.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
