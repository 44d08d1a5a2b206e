package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	dbpkg "github.com/ldcshop/storefront/internal/db"
	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, errOpen)
	require.NoError(t, dbpkg.Migrate(db))
	return db
}

func createPendingOrder(t *testing.T, db *gorm.DB, orderID, productID string) {
	t.Helper()
	order := models.Order{
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: "Gift card",
		Amount:      decimal.RequireFromString("9.90"),
		Status:      models.OrderStatusPending,
	}
	require.NoError(t, db.Create(&order).Error)
}

func TestSettleDeliversWhenStockExists(t *testing.T) {
	db := openOrdersTestDB(t)
	ctx := context.Background()
	createPendingOrder(t, db, "ord-1", "p1")
	_, err := inventory.Import(ctx, db, "p1", []string{"KEY-1"})
	require.NoError(t, err)

	now := time.Now().UTC()
	settlement, err := Settle(ctx, db, "ord-1", "T100", now)
	require.NoError(t, err)
	require.True(t, settlement.Delivered())
	require.Equal(t, models.OrderStatusDelivered, settlement.Order.Status)

	stored, err := FindByOrderID(ctx, db, "ord-1")
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusDelivered, stored.Status)
	require.NotNil(t, stored.CardKey)
	require.Equal(t, "KEY-1", *stored.CardKey)
	require.NotNil(t, stored.TradeNo)
	require.Equal(t, "T100", *stored.TradeNo)
	require.NotNil(t, stored.PaidAt)
	require.NotNil(t, stored.DeliveredAt)

	var card models.Card
	require.NoError(t, db.Where("card_key = ?", "KEY-1").First(&card).Error)
	require.True(t, card.IsUsed)
	require.NotNil(t, card.UsedAt)
}

func TestSettleWithoutStockMarksPaid(t *testing.T) {
	db := openOrdersTestDB(t)
	ctx := context.Background()
	createPendingOrder(t, db, "ord-1", "p1")

	settlement, err := Settle(ctx, db, "ord-1", "T100", time.Now().UTC())
	require.NoError(t, err)
	require.False(t, settlement.Delivered())

	stored, err := FindByOrderID(ctx, db, "ord-1")
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPaid, stored.Status)
	require.Nil(t, stored.CardKey)
	require.Nil(t, stored.DeliveredAt)
	require.NotNil(t, stored.PaidAt)
}

func TestSettleRejectsNonPendingAndUnknown(t *testing.T) {
	db := openOrdersTestDB(t)
	ctx := context.Background()
	createPendingOrder(t, db, "ord-1", "p1")
	_, err := inventory.Import(ctx, db, "p1", []string{"KEY-1", "KEY-2"})
	require.NoError(t, err)

	_, err = Settle(ctx, db, "ord-1", "T100", time.Now().UTC())
	require.NoError(t, err)

	_, err = Settle(ctx, db, "ord-1", "T100", time.Now().UTC())
	require.True(t, errors.Is(err, ErrNotPending), "got %v", err)

	_, err = Settle(ctx, db, "missing", "T101", time.Now().UTC())
	require.True(t, errors.Is(err, ErrOrderNotFound), "got %v", err)

	stock, err := inventory.CountAvailable(ctx, db, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stock)
}

func TestFulfillPaidOrder(t *testing.T) {
	db := openOrdersTestDB(t)
	ctx := context.Background()
	createPendingOrder(t, db, "ord-1", "p1")

	_, err := Settle(ctx, db, "ord-1", "T100", time.Now().UTC())
	require.NoError(t, err)

	_, err = Fulfill(ctx, db, "ord-1", time.Now().UTC())
	require.True(t, errors.Is(err, ErrNoStock), "got %v", err)

	_, err = inventory.Import(ctx, db, "p1", []string{"LATE"})
	require.NoError(t, err)

	settlement, err := Fulfill(ctx, db, "ord-1", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusDelivered, settlement.Order.Status)
	require.Equal(t, "LATE", *settlement.Order.CardKey)

	_, err = Fulfill(ctx, db, "ord-1", time.Now().UTC())
	require.True(t, errors.Is(err, ErrInvalidTransition), "got %v", err)
}

func TestMarkRefunded(t *testing.T) {
	db := openOrdersTestDB(t)
	ctx := context.Background()
	createPendingOrder(t, db, "ord-1", "p1")
	createPendingOrder(t, db, "ord-2", "p1")

	_, err := MarkRefunded(ctx, db, "ord-2", time.Now().UTC())
	require.True(t, errors.Is(err, ErrInvalidTransition), "pending order must not be refundable, got %v", err)

	_, err = Settle(ctx, db, "ord-1", "T100", time.Now().UTC())
	require.NoError(t, err)

	order, err := MarkRefunded(ctx, db, "ord-1", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusRefunded, order.Status)
	require.NotNil(t, order.RefundedAt)

	_, err = MarkRefunded(ctx, db, "ord-1", time.Now().UTC())
	require.True(t, errors.Is(err, ErrInvalidTransition), "got %v", err)
}

func TestListFiltersAndPaginates(t *testing.T) {
	db := openOrdersTestDB(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		createPendingOrder(t, db, fmt.Sprintf("ord-%d", i), "p1")
	}
	createPendingOrder(t, db, "other-1", "p2")
	userID := "u1"
	require.NoError(t, db.Model(&models.Order{}).Where("order_id IN ?", []string{"ord-1", "ord-2"}).Update("user_id", userID).Error)

	page, err := List(ctx, db, ListFilter{ProductID: "p1", PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(5), page.Total)
	require.Len(t, page.Orders, 2)

	page, err = List(ctx, db, ListFilter{Search: "other"})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, "other-1", page.Orders[0].OrderID)

	mine, err := ListByUser(ctx, db, userID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), mine.Total)

	none, err := ListByUser(ctx, db, "", 1, 10)
	require.NoError(t, err)
	require.Empty(t, none.Orders)
}

func TestSettleWithoutTradeNoLeavesItNull(t *testing.T) {
	db := openOrdersTestDB(t)
	ctx := context.Background()
	createPendingOrder(t, db, "ord-1", "p1")

	settlement, err := Settle(ctx, db, "ord-1", "  ", time.Now().UTC())
	require.NoError(t, err)
	require.Nil(t, settlement.Order.TradeNo)

	stored, err := FindByOrderID(ctx, db, "ord-1")
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPaid, stored.Status)
	require.Nil(t, stored.TradeNo)
	require.False(t, Refundable(stored))

	var nullCount int64
	require.NoError(t, db.Model(&models.Order{}).Where("order_id = ? AND trade_no IS NULL", "ord-1").Count(&nullCount).Error)
	require.Equal(t, int64(1), nullCount)
}
