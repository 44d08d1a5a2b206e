package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	dbpkg "github.com/ldcshop/storefront/internal/db"
	"github.com/ldcshop/storefront/internal/epay"
	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testConfig = epay.Config{MerchantID: "1001", MerchantKey: "merchant-secret", BaseURL: "https://shop.example"}

func openNotifyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:notify_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, errOpen)
	sqlDB, errDB := db.DB()
	require.NoError(t, errDB)
	// One connection serialises SQLite transactions while callers still race.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, dbpkg.Migrate(db))
	return db
}

func createOrder(t *testing.T, db *gorm.DB, orderID, productID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Order{
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: "Key",
		Amount:      decimal.RequireFromString("3.00"),
		Status:      models.OrderStatusPending,
	}).Error)
}

func importCards(t *testing.T, db *gorm.DB, productID string, keys ...string) {
	t.Helper()
	_, err := inventory.Import(context.Background(), db, productID, keys)
	require.NoError(t, err)
}

func signedCallback(orderID, tradeNo, status string) map[string]string {
	fields := map[string]string{
		"pid":          testConfig.MerchantID,
		"trade_no":     tradeNo,
		"out_trade_no": orderID,
		"type":         "epay",
		"name":         "Key",
		"money":        "3.00",
		"trade_status": status,
		"sign_type":    "MD5",
	}
	fields["sign"] = epay.Sign(fields, testConfig.MerchantKey)
	return fields
}

func loadOrder(t *testing.T, db *gorm.DB, orderID string) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.Where("order_id = ?", orderID).First(&order).Error)
	return order
}

func usedCards(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Card{}).Where("is_used = ?", true).Count(&n).Error)
	return n
}

type recordingCache struct {
	inventory.NopStockCache
	mu          sync.Mutex
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, productID)
}

func TestHandleDeliversCard(t *testing.T) {
	db := openNotifyTestDB(t)
	createOrder(t, db, "ord-1", "p1")
	importCards(t, db, "p1", "CARD-A")
	cache := &recordingCache{}
	svc := NewService(db, testConfig, cache)

	result, err := svc.Handle(context.Background(), signedCallback("ord-1", "T1", epay.TradeStatusSuccess), "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, OutcomeProcessed, result.Outcome)
	require.True(t, result.Delivered)
	require.Equal(t, models.OrderStatusDelivered, result.Status)
	require.Equal(t, []string{"p1"}, cache.invalidated)

	order := loadOrder(t, db, "ord-1")
	require.Equal(t, models.OrderStatusDelivered, order.Status)
	require.Equal(t, "CARD-A", *order.CardKey)
	require.Equal(t, "T1", *order.TradeNo)

	var logEntry models.PaymentNotifyLog
	require.NoError(t, db.First(&logEntry).Error)
	require.Equal(t, "processed", logEntry.Outcome)
	require.Equal(t, "ord-1", logEntry.OrderID)
	require.NotContains(t, string(logEntry.Params), `"sign":`)
}

func TestHandleWithoutStockMarksPaid(t *testing.T) {
	db := openNotifyTestDB(t)
	createOrder(t, db, "ord-1", "p1")
	svc := NewService(db, testConfig, nil)

	result, err := svc.Handle(context.Background(), signedCallback("ord-1", "T1", epay.TradeStatusSuccess), "")
	require.NoError(t, err)
	require.Equal(t, OutcomeProcessed, result.Outcome)
	require.False(t, result.Delivered)

	order := loadOrder(t, db, "ord-1")
	require.Equal(t, models.OrderStatusPaid, order.Status)
	require.Nil(t, order.CardKey)
	require.Equal(t, "T1", *order.TradeNo)
}

func TestHandleIsIdempotent(t *testing.T) {
	db := openNotifyTestDB(t)
	createOrder(t, db, "ord-1", "p1")
	importCards(t, db, "p1", "CARD-A", "CARD-B")
	svc := NewService(db, testConfig, nil)
	fields := signedCallback("ord-1", "T1", epay.TradeStatusSuccess)

	first, err := svc.Handle(context.Background(), fields, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeProcessed, first.Outcome)
	afterFirst := loadOrder(t, db, "ord-1")

	second, err := svc.Handle(context.Background(), fields, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, second.Outcome)
	require.True(t, second.Outcome.Acknowledged())

	afterSecond := loadOrder(t, db, "ord-1")
	require.Equal(t, afterFirst.Status, afterSecond.Status)
	require.Equal(t, *afterFirst.CardKey, *afterSecond.CardKey)
	require.Equal(t, afterFirst.DeliveredAt.Unix(), afterSecond.DeliveredAt.Unix())
	require.Equal(t, int64(1), usedCards(t, db))
}

func TestHandleRejectsInvalidSignature(t *testing.T) {
	db := openNotifyTestDB(t)
	createOrder(t, db, "ord-1", "p1")
	importCards(t, db, "p1", "CARD-A")
	svc := NewService(db, testConfig, nil)

	tampered := signedCallback("ord-1", "T1", epay.TradeStatusSuccess)
	tampered["money"] = "0.01"
	result, err := svc.Handle(context.Background(), tampered, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, result.Outcome)
	require.False(t, result.Outcome.Acknowledged())

	wrongKey := signedCallback("ord-1", "T1", epay.TradeStatusSuccess)
	wrongKey["sign"] = epay.Sign(wrongKey, "other-secret")
	result, err = svc.Handle(context.Background(), wrongKey, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, result.Outcome)

	missing := signedCallback("ord-1", "T1", epay.TradeStatusSuccess)
	delete(missing, "sign")
	result, err = svc.Handle(context.Background(), missing, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeRejected, result.Outcome)

	order := loadOrder(t, db, "ord-1")
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Nil(t, order.TradeNo)
	require.Zero(t, usedCards(t, db))
}

func TestHandleAcknowledgesUnknownOrderAndOtherStatuses(t *testing.T) {
	db := openNotifyTestDB(t)
	createOrder(t, db, "ord-1", "p1")
	importCards(t, db, "p1", "CARD-A")
	svc := NewService(db, testConfig, nil)

	result, err := svc.Handle(context.Background(), signedCallback("nope", "T1", epay.TradeStatusSuccess), "")
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, result.Outcome)

	result, err = svc.Handle(context.Background(), signedCallback("ord-1", "T1", "WAIT_BUYER_PAY"), "")
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, result.Outcome)
	require.Equal(t, models.OrderStatusPending, loadOrder(t, db, "ord-1").Status)
	require.Zero(t, usedCards(t, db))
}

func TestHandleFailsWithoutMerchantKey(t *testing.T) {
	db := openNotifyTestDB(t)
	svc := NewService(db, epay.Config{}, nil)

	_, err := svc.Handle(context.Background(), signedCallback("ord-1", "T1", epay.TradeStatusSuccess), "")
	require.ErrorIs(t, err, epay.ErrMissingCredentials)

	var logEntry models.PaymentNotifyLog
	require.NoError(t, db.First(&logEntry).Error)
	require.Equal(t, "error", logEntry.Outcome)
}

func TestConcurrentCallbacksAllocateEachCardOnce(t *testing.T) {
	const orderCount = 8
	db := openNotifyTestDB(t)
	importCards(t, db, "p1", "CARD-1", "CARD-2", "CARD-3")
	for i := 0; i < orderCount; i++ {
		createOrder(t, db, fmt.Sprintf("ord-%d", i), "p1")
	}
	svc := NewService(db, testConfig, nil)

	var wg sync.WaitGroup
	errs := make(chan error, orderCount*2)
	for i := 0; i < orderCount; i++ {
		fields := signedCallback(fmt.Sprintf("ord-%d", i), fmt.Sprintf("T%d", i), epay.TradeStatusSuccess)
		// Each order is delivered twice to mimic gateway retries.
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Handle(context.Background(), fields, ""); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("handle: %v", err)
	}

	var delivered []models.Order
	require.NoError(t, db.Where("status = ?", models.OrderStatusDelivered).Find(&delivered).Error)
	require.Len(t, delivered, 3)
	keys := map[string]bool{}
	for _, order := range delivered {
		require.NotNil(t, order.CardKey)
		require.False(t, keys[*order.CardKey], "card %s delivered twice", *order.CardKey)
		keys[*order.CardKey] = true
	}

	var paid int64
	require.NoError(t, db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPaid).Count(&paid).Error)
	require.Equal(t, int64(orderCount-3), paid)
	require.Equal(t, int64(3), usedCards(t, db))
}

func TestPaidOrderStaysPaidAfterRestock(t *testing.T) {
	db := openNotifyTestDB(t)
	createOrder(t, db, "ord-1", "p1")
	svc := NewService(db, testConfig, nil)

	_, err := svc.Handle(context.Background(), signedCallback("ord-1", "T1", epay.TradeStatusSuccess), "")
	require.NoError(t, err)
	importCards(t, db, "p1", "LATE")

	require.Equal(t, models.OrderStatusPaid, loadOrder(t, db, "ord-1").Status)
	require.Zero(t, usedCards(t, db))
}
