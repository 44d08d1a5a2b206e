package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item whose fulfilment is a single card key.
type Product struct {
	ID string `gorm:"type:varchar(64);primaryKey"` // Product identifier.

	Name        string          `gorm:"type:varchar(255);not null"`  // Display name, also sent to the gateway.
	Description string          `gorm:"type:text"`                   // Optional long description.
	Category    string          `gorm:"type:varchar(64);index"`      // Optional grouping.
	Price       decimal.Decimal `gorm:"type:decimal(20,2);not null"` // Unit price.

	IsActive  bool `gorm:"not null;default:true"` // Whether the product is listed.
	SortOrder int  `gorm:"not null;default:0"`    // Catalogue ordering, ascending.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
