package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/epay"
	apihttp "github.com/ldcshop/storefront/internal/http"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/orders"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OrderHandler serves buyer-facing order lookups.
type OrderHandler struct {
	db *gorm.DB
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{db: db}
}

// orderView is the buyer-facing order representation.
type orderView struct {
	OrderID     string     `json:"order_id"`
	ProductID   string     `json:"product_id"`
	ProductName string     `json:"product_name"`
	Amount      string     `json:"amount"`
	Status      string     `json:"status"`
	CardKey     *string    `json:"card_key,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// Get returns one order. The card key is shown to the owning user, or to
// anyone holding the order id when the order was placed anonymously.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("order_id"))
	order, errFind := orders.FindByOrderID(c.Request.Context(), h.db, orderID)
	if errFind != nil {
		if errors.Is(errFind, orders.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		log.WithError(errFind).Error("front orders: load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load order failed"})
		return
	}
	c.JSON(http.StatusOK, viewOrder(order, canSeeCard(order, getUserID(c))))
}

// ListMine returns the signed-in user's orders, newest first.
func (h *OrderHandler) ListMine(c *gin.Context) {
	page, errList := orders.ListByUser(c.Request.Context(), h.db, getUserID(c),
		apihttp.QueryInt(c, "page", 1), apihttp.QueryInt(c, "page_size", 20))
	if errList != nil {
		log.WithError(errList).Error("front orders: list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}
	out := make([]orderView, 0, len(page.Orders))
	for i := range page.Orders {
		out = append(out, viewOrder(&page.Orders[i], true))
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":    out,
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

func canSeeCard(order *models.Order, userID string) bool {
	if order.UserID == nil || *order.UserID == "" {
		return true
	}
	return userID != "" && *order.UserID == userID
}

func viewOrder(order *models.Order, withCard bool) orderView {
	view := orderView{
		OrderID:     order.OrderID,
		ProductID:   order.ProductID,
		ProductName: order.ProductName,
		Amount:      epay.FormatAmount(order.Amount),
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt,
		PaidAt:      order.PaidAt,
		DeliveredAt: order.DeliveredAt,
	}
	if withCard && order.Status == models.OrderStatusDelivered {
		view.CardKey = order.CardKey
	}
	return view
}
