package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentNotifyLog records an inbound gateway callback for diagnostics.
type PaymentNotifyLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrderID     string `gorm:"type:varchar(64);index"` // out_trade_no as received.
	TradeNo     string `gorm:"type:varchar(128)"`      // Gateway trade number as received.
	TradeStatus string `gorm:"type:varchar(64)"`       // Gateway trade status as received.

	Outcome string         `gorm:"type:varchar(32);not null"` // rejected, ignored, processed or error.
	Detail  string         `gorm:"type:text"`                 // Human-readable reason.
	Params  datatypes.JSON // Received fields without the signature.

	RemoteAddr string    `gorm:"type:varchar(64)"` // Caller address.
	ReceivedAt time.Time `gorm:"not null;index"`   // Receive timestamp.
}
