package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/epay"
	apihttp "github.com/ldcshop/storefront/internal/http"
	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/orders"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OrderHandler serves admin order endpoints.
type OrderHandler struct {
	db    *gorm.DB
	epay  epay.Config
	cache inventory.StockCache
}

// NewOrderHandler constructs an OrderHandler. cache may be nil.
func NewOrderHandler(db *gorm.DB, epayCfg epay.Config, cache inventory.StockCache) *OrderHandler {
	if cache == nil {
		cache = inventory.NopStockCache{}
	}
	return &OrderHandler{db: db, epay: epayCfg, cache: cache}
}

// List returns orders filtered by status, product, user, search text and time range.
func (h *OrderHandler) List(c *gin.Context) {
	filter := orders.ListFilter{
		Status:    models.OrderStatus(strings.TrimSpace(c.Query("status"))),
		ProductID: strings.TrimSpace(c.Query("product_id")),
		UserID:    strings.TrimSpace(c.Query("user_id")),
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      apihttp.QueryInt(c, "page", 1),
		PageSize:  apihttp.QueryInt(c, "page_size", 20),
	}
	var errParse error
	if filter.Since, errParse = parseTimeQuery(c, "since"); errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
		return
	}
	if filter.Until, errParse = parseTimeQuery(c, "until"); errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until"})
		return
	}

	page, errList := orders.List(c.Request.Context(), h.db, filter)
	if errList != nil {
		log.WithError(errList).Error("admin orders: list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}
	out := make([]gin.H, 0, len(page.Orders))
	for i := range page.Orders {
		out = append(out, formatOrder(&page.Orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":    out,
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// RefundParams returns the signed refund form for a paid order. The admin's
// browser submits it to the gateway; nothing changes locally.
func (h *OrderHandler) RefundParams(c *gin.Context) {
	order, ok := h.loadOrder(c)
	if !ok {
		return
	}
	if !orders.Refundable(order) {
		c.JSON(http.StatusConflict, gin.H{"error": "order is not refundable"})
		return
	}
	if errValidate := h.epay.Validate(); errValidate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment gateway not configured"})
		return
	}
	c.JSON(http.StatusOK, h.epay.RefundRequest(order.OrderID, *order.TradeNo, order.Amount))
}

// MarkRefunded records that the gateway refund went through.
func (h *OrderHandler) MarkRefunded(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("order_id"))
	order, errMark := orders.MarkRefunded(c.Request.Context(), h.db, orderID, time.Now().UTC())
	if errMark != nil {
		h.writeTransitionError(c, errMark)
		return
	}
	log.WithFields(log.Fields{"order_id": orderID, "admin": adminUsername(c)}).Info("admin orders: marked refunded")
	c.JSON(http.StatusOK, formatOrder(order))
}

// Fulfill delivers a card to an order that was paid while out of stock.
func (h *OrderHandler) Fulfill(c *gin.Context) {
	ctx := c.Request.Context()
	orderID := strings.TrimSpace(c.Param("order_id"))
	settlement, errFulfill := orders.Fulfill(ctx, h.db, orderID, time.Now().UTC())
	if errFulfill != nil {
		h.writeTransitionError(c, errFulfill)
		return
	}
	h.cache.Invalidate(ctx, settlement.Order.ProductID)
	log.WithFields(log.Fields{"order_id": orderID, "admin": adminUsername(c)}).Info("admin orders: fulfilled")
	c.JSON(http.StatusOK, formatOrder(&settlement.Order))
}

func (h *OrderHandler) loadOrder(c *gin.Context) (*models.Order, bool) {
	orderID := strings.TrimSpace(c.Param("order_id"))
	order, errFind := orders.FindByOrderID(c.Request.Context(), h.db, orderID)
	if errFind != nil {
		if errors.Is(errFind, orders.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load order failed"})
		return nil, false
	}
	return order, true
}

func (h *OrderHandler) writeTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, orders.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid order status"})
	case errors.Is(err, orders.ErrNoStock):
		c.JSON(http.StatusConflict, gin.H{"error": "out of stock"})
	default:
		log.WithError(err).Error("admin orders: transition failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update order failed"})
	}
}

// parseTimeQuery reads an RFC 3339 query value; absent values yield nil.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, errParse := time.Parse(time.RFC3339, raw)
	if errParse != nil {
		return nil, errParse
	}
	return &parsed, nil
}

func formatOrder(o *models.Order) gin.H {
	return gin.H{
		"order_id":     o.OrderID,
		"product_id":   o.ProductID,
		"product_name": o.ProductName,
		"amount":       epay.FormatAmount(o.Amount),
		"email":        o.Email,
		"user_id":      o.UserID,
		"username":     o.Username,
		"status":       o.Status,
		"trade_no":     o.TradeNo,
		"card_key":     o.CardKey,
		"created_at":   o.CreatedAt,
		"paid_at":      o.PaidAt,
		"delivered_at": o.DeliveredAt,
		"refunded_at":  o.RefundedAt,
	}
}
