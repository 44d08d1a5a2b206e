// Package orders owns order state transitions.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Order transition errors.
var (
	// ErrOrderNotFound indicates no order has the given identifier.
	ErrOrderNotFound = errors.New("order not found")
	// ErrNotPending indicates the order already left the pending state.
	ErrNotPending = errors.New("order is not pending")
	// ErrInvalidTransition indicates the requested state change is not allowed.
	ErrInvalidTransition = errors.New("invalid order transition")
	// ErrNoStock indicates no unused card exists for the order's product.
	ErrNoStock = errors.New("no stock available")
)

// Settlement is the result of applying a confirmed payment.
type Settlement struct {
	Order  models.Order
	CardID uint64 // Zero when the order settled as paid without a card.
}

// Delivered reports whether a card was allocated.
func (s *Settlement) Delivered() bool {
	return s != nil && s.CardID != 0
}

// Settle applies a confirmed payment to a pending order. When an unused card
// exists it is consumed and the order becomes delivered; otherwise the order
// becomes paid. Card consumption and the order update commit together.
func Settle(ctx context.Context, db *gorm.DB, orderID, tradeNo string, now time.Time) (*Settlement, error) {
	var settlement *Settlement
	errTx := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, errLock := lockOrder(tx, orderID)
		if errLock != nil {
			return errLock
		}
		if order.Status != models.OrderStatusPending {
			return ErrNotPending
		}

		card, errClaim := inventory.ClaimCard(tx, order.ProductID, now)
		if errClaim != nil {
			return errClaim
		}

		status := models.OrderStatusPaid
		updates := map[string]any{"paid_at": now}
		// A callback without a trade number leaves the column NULL.
		var storedTradeNo *string
		if trimmed := strings.TrimSpace(tradeNo); trimmed != "" {
			storedTradeNo = &trimmed
			updates["trade_no"] = trimmed
		}
		if card != nil {
			status = models.OrderStatusDelivered
			updates["delivered_at"] = now
			updates["card_key"] = card.CardKey
		}
		updates["status"] = status
		if errUpdate := transition(tx, order.ID, models.OrderStatusPending, updates); errUpdate != nil {
			if errors.Is(errUpdate, ErrInvalidTransition) {
				return ErrNotPending
			}
			return errUpdate
		}

		order.Status = status
		order.PaidAt = &now
		order.TradeNo = storedTradeNo
		settlement = &Settlement{Order: *order}
		if card != nil {
			order.DeliveredAt = &now
			order.CardKey = &card.CardKey
			settlement = &Settlement{Order: *order, CardID: card.ID}
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return settlement, nil
}

// Fulfill allocates a card to an order that was paid while out of stock.
func Fulfill(ctx context.Context, db *gorm.DB, orderID string, now time.Time) (*Settlement, error) {
	var settlement *Settlement
	errTx := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, errLock := lockOrder(tx, orderID)
		if errLock != nil {
			return errLock
		}
		if order.Status != models.OrderStatusPaid {
			return ErrInvalidTransition
		}
		card, errClaim := inventory.ClaimCard(tx, order.ProductID, now)
		if errClaim != nil {
			return errClaim
		}
		if card == nil {
			return ErrNoStock
		}
		if errUpdate := transition(tx, order.ID, models.OrderStatusPaid, map[string]any{
			"status":       models.OrderStatusDelivered,
			"delivered_at": now,
			"card_key":     card.CardKey,
		}); errUpdate != nil {
			return errUpdate
		}
		order.Status = models.OrderStatusDelivered
		order.DeliveredAt = &now
		order.CardKey = &card.CardKey
		settlement = &Settlement{Order: *order, CardID: card.ID}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return settlement, nil
}

// MarkRefunded moves a paid or delivered order to refunded.
func MarkRefunded(ctx context.Context, db *gorm.DB, orderID string, now time.Time) (*models.Order, error) {
	var out *models.Order
	errTx := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, errLock := lockOrder(tx, orderID)
		if errLock != nil {
			return errLock
		}
		if !Refundable(order) {
			return ErrInvalidTransition
		}
		if errUpdate := transition(tx, order.ID, order.Status, map[string]any{
			"status":      models.OrderStatusRefunded,
			"refunded_at": now,
		}); errUpdate != nil {
			return errUpdate
		}
		order.Status = models.OrderStatusRefunded
		order.RefundedAt = &now
		out = order
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return out, nil
}

// Refundable reports whether an order has a confirmed payment that can be refunded.
func Refundable(order *models.Order) bool {
	if order == nil || order.TradeNo == nil || *order.TradeNo == "" {
		return false
	}
	return order.Status == models.OrderStatusPaid || order.Status == models.OrderStatusDelivered
}

// FindByOrderID loads an order by its external identifier.
func FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*models.Order, error) {
	var order models.Order
	if errFind := db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("orders: find: %w", errFind)
	}
	return &order, nil
}

// lockOrder reads an order row for update inside tx.
func lockOrder(tx *gorm.DB, orderID string) (*models.Order, error) {
	var order models.Order
	if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("orders: lock: %w", errFind)
	}
	return &order, nil
}

// transition updates an order only if it is still in the expected state.
func transition(tx *gorm.DB, id uint64, from models.OrderStatus, updates map[string]any) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("orders: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}
