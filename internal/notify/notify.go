package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ldcshop/storefront/internal/epay"
	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/orders"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Callback field names.
const (
	fieldOutTradeNo  = "out_trade_no"
	fieldTradeNo     = "trade_no"
	fieldTradeStatus = "trade_status"
)

// Result describes a handled callback.
type Result struct {
	Outcome   Outcome
	OrderID   string
	Status    models.OrderStatus // Order status after handling; empty when unknown.
	Delivered bool               // A card was allocated by this callback.
	Detail    string
}

// Service verifies callbacks and settles orders.
type Service struct {
	db    *gorm.DB
	cfg   epay.Config
	cache inventory.StockCache
	now   func() time.Time
}

// NewService constructs a callback service. cache may be nil.
func NewService(db *gorm.DB, cfg epay.Config, cache inventory.StockCache) *Service {
	if cache == nil {
		cache = inventory.NopStockCache{}
	}
	return &Service{db: db, cfg: cfg, cache: cache, now: time.Now}
}

// Handle authenticates fields and applies a successful payment to its order.
// A non-nil error means an unexpected failure the gateway should retry.
func (s *Service) Handle(ctx context.Context, fields map[string]string, remoteAddr string) (Result, error) {
	result, err := s.handle(ctx, fields)
	s.record(ctx, fields, remoteAddr, result, err)

	entry := log.WithFields(log.Fields{
		"order_id":     result.OrderID,
		"trade_status": fields[fieldTradeStatus],
		"outcome":      result.Outcome.String(),
	})
	switch {
	case err != nil:
		entry.WithError(err).Error("notify: callback failed")
	case result.Outcome == OutcomeRejected:
		entry.Warn("notify: signature mismatch")
	default:
		entry.WithField("detail", result.Detail).Info("notify: callback handled")
	}
	return result, err
}

func (s *Service) handle(ctx context.Context, fields map[string]string) (Result, error) {
	result := Result{OrderID: strings.TrimSpace(fields[fieldOutTradeNo])}
	if errValidate := s.cfg.Validate(); errValidate != nil {
		return result, errValidate
	}
	if !epay.Verify(fields, fields[epay.SignKey], s.cfg.MerchantKey) {
		result.Outcome = OutcomeRejected
		result.Detail = "invalid signature"
		return result, nil
	}

	if fields[fieldTradeStatus] != epay.TradeStatusSuccess {
		result.Outcome = OutcomeIgnored
		result.Detail = "trade status not successful"
		return result, nil
	}
	if result.OrderID == "" {
		result.Outcome = OutcomeIgnored
		result.Detail = "missing order id"
		return result, nil
	}

	settlement, errSettle := orders.Settle(ctx, s.db, result.OrderID, fields[fieldTradeNo], s.now().UTC())
	switch {
	case errors.Is(errSettle, orders.ErrOrderNotFound):
		result.Outcome = OutcomeIgnored
		result.Detail = "unknown order"
		return result, nil
	case errors.Is(errSettle, orders.ErrNotPending):
		result.Outcome = OutcomeIgnored
		result.Detail = "order already settled"
		return result, nil
	case errSettle != nil:
		return result, errSettle
	}

	result.Outcome = OutcomeProcessed
	result.Status = settlement.Order.Status
	result.Delivered = settlement.Delivered()
	if result.Delivered {
		result.Detail = "delivered"
		s.cache.Invalidate(ctx, settlement.Order.ProductID)
	} else {
		result.Detail = "paid without stock"
	}
	return result, nil
}

// record stores a diagnostic copy of the callback. Failures are logged only.
func (s *Service) record(ctx context.Context, fields map[string]string, remoteAddr string, result Result, handleErr error) {
	params := make(map[string]string, len(fields))
	for k, v := range fields {
		if k == epay.SignKey {
			continue
		}
		params[k] = v
	}
	raw, errMarshal := json.Marshal(params)
	if errMarshal != nil {
		raw = []byte("{}")
	}
	outcome := result.Outcome.String()
	detail := result.Detail
	if handleErr != nil {
		outcome = "error"
		detail = handleErr.Error()
	}
	entry := models.PaymentNotifyLog{
		OrderID:     truncate(result.OrderID, 64),
		TradeNo:     truncate(fields[fieldTradeNo], 128),
		TradeStatus: truncate(fields[fieldTradeStatus], 64),
		Outcome:     outcome,
		Detail:      detail,
		Params:      datatypes.JSON(raw),
		RemoteAddr:  truncate(remoteAddr, 64),
		ReceivedAt:  s.now().UTC(),
	}
	if errCreate := s.db.WithContext(context.WithoutCancel(ctx)).Create(&entry).Error; errCreate != nil {
		log.WithError(errCreate).Warn("notify: record callback failed")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
