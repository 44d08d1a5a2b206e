package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/epay"
	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProductHandler serves the public catalogue.
type ProductHandler struct {
	db    *gorm.DB
	cache inventory.StockCache
}

// NewProductHandler constructs a ProductHandler. cache may be nil.
func NewProductHandler(db *gorm.DB, cache inventory.StockCache) *ProductHandler {
	if cache == nil {
		cache = inventory.NopStockCache{}
	}
	return &ProductHandler{db: db, cache: cache}
}

// productItem is one catalogue entry.
type productItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	Stock       int64  `json:"stock"`
}

// List returns active products with their stock counts.
func (h *ProductHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var rows []models.Product
	if errFind := h.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").Order("created_at ASC").
		Find(&rows).Error; errFind != nil {
		log.WithError(errFind).Error("front products: list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list products failed"})
		return
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	stock, errStock := inventory.StockCounts(ctx, h.cache, func(ctx context.Context, ids []string) (map[string]int64, error) {
		return inventory.CountAvailableByProduct(ctx, h.db, ids)
	}, ids)
	if errStock != nil {
		log.WithError(errStock).Error("front products: stock failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list products failed"})
		return
	}

	out := make([]productItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, productItem{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			Category:    row.Category,
			Price:       epay.FormatAmount(row.Price),
			Stock:       stock[row.ID],
		})
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}
