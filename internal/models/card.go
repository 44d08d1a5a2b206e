package models

import "time"

// Card is a single-use activation key held in a product's inventory.
//
// Once IsUsed is true the row is never modified again.
type Card struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ProductID string `gorm:"type:varchar(64);not null;index:idx_cards_product_used,priority:1;uniqueIndex:idx_cards_product_key,priority:1"` // Owning product.
	CardKey   string `gorm:"type:varchar(512);not null;uniqueIndex:idx_cards_product_key,priority:2"`                                         // Secret key delivered to the buyer; unique per product.

	IsUsed bool       `gorm:"not null;default:false;index:idx_cards_product_used,priority:2"` // Allocation flag.
	UsedAt *time.Time // Allocation time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
