// Package checkout creates pending orders and the signed gateway redirect.
package checkout

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ldcshop/storefront/internal/epay"
	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Checkout errors.
var (
	// ErrProductNotFound indicates the product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductInactive indicates the product is delisted.
	ErrProductInactive = errors.New("product is not available")
	// ErrOutOfStock indicates no unused card existed when the order was placed.
	ErrOutOfStock = errors.New("product is out of stock")
)

// Buyer is the optional signed-in customer placing an order.
type Buyer struct {
	UserID   string
	Username string
	Email    string
}

// Request describes one checkout.
type Request struct {
	ProductID string
	Email     string
	Buyer     *Buyer
}

// Result is a created order and the form that sends the buyer to the gateway.
type Result struct {
	OrderID string           `json:"order_id"`
	Form    epay.FormRequest `json:"form"`
}

// Service creates orders.
type Service struct {
	db         *gorm.DB
	cfg        epay.Config
	newOrderID func(time.Time) string
	now        func() time.Time
}

// NewService constructs a checkout service.
func NewService(db *gorm.DB, cfg epay.Config) *Service {
	return &Service{db: db, cfg: cfg, newOrderID: newULID, now: time.Now}
}

func newULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// CreateOrder inserts a pending order and returns the signed checkout form.
// The stock check is advisory; exclusivity is enforced when payment settles.
func (s *Service) CreateOrder(ctx context.Context, req Request) (*Result, error) {
	if errValidate := s.cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return nil, ErrProductNotFound
	}

	var product models.Product
	if errFind := s.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("checkout: load product: %w", errFind)
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	stock, errCount := inventory.CountAvailable(ctx, s.db, product.ID)
	if errCount != nil {
		return nil, errCount
	}
	if stock == 0 {
		return nil, ErrOutOfStock
	}

	now := s.now().UTC()
	order := models.Order{
		OrderID:     s.newOrderID(now),
		ProductID:   product.ID,
		ProductName: product.Name,
		Amount:      product.Price,
		Status:      models.OrderStatusPending,
		CreatedAt:   now,
	}
	email := strings.TrimSpace(req.Email)
	if req.Buyer != nil {
		if email == "" {
			email = strings.TrimSpace(req.Buyer.Email)
		}
		if id := strings.TrimSpace(req.Buyer.UserID); id != "" {
			order.UserID = &id
		}
		if name := strings.TrimSpace(req.Buyer.Username); name != "" {
			order.Username = &name
		}
	}
	if email != "" {
		order.Email = &email
	}

	if errCreate := s.db.WithContext(ctx).Create(&order).Error; errCreate != nil {
		return nil, fmt.Errorf("checkout: create order: %w", errCreate)
	}

	log.WithFields(log.Fields{
		"order_id":   order.OrderID,
		"product_id": product.ID,
		"amount":     epay.FormatAmount(order.Amount),
	}).Info("checkout: order created")

	return &Result{
		OrderID: order.OrderID,
		Form:    s.cfg.CheckoutRequest(order.OrderID, product.Name, product.Price),
	}, nil
}
