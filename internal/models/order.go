package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// OrderStatus values.
const (
	// OrderStatusPending waits for the gateway's payment confirmation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid is paid but not yet fulfilled because no card was available.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusDelivered is paid and fulfilled with a card key.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusRefunded is terminal and only reachable through an admin action.
	OrderStatusRefunded OrderStatus = "refunded"
)

// Order is a purchase of one product unit.
type Order struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrderID     string          `gorm:"type:varchar(64);not null;uniqueIndex"` // External order identifier (out_trade_no).
	ProductID   string          `gorm:"type:varchar(64);not null;index"`       // Purchased product.
	ProductName string          `gorm:"type:varchar(255);not null"`            // Product name at purchase time.
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null"`           // Charged amount.

	Email    *string `gorm:"type:varchar(255)"`      // Optional buyer email.
	UserID   *string `gorm:"type:varchar(64);index"` // Optional buyer account.
	Username *string `gorm:"type:varchar(191)"`      // Buyer username snapshot.

	Status  OrderStatus `gorm:"type:varchar(16);not null;index"` // Lifecycle state.
	TradeNo *string     `gorm:"type:varchar(128);index"`         // Gateway trade number, set once paid.
	CardKey *string     `gorm:"type:text"`                       // Delivered card key.

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	PaidAt      *time.Time // Payment confirmation time.
	DeliveredAt *time.Time // Fulfilment time.
	RefundedAt  *time.Time // Refund marking time.
}
