package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores a key/value configuration entry in the database.
type Setting struct {
	Key       string         `gorm:"type:varchar(191);primaryKey"` // Configuration key.
	Value     datatypes.JSON // JSON-encoded value.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
