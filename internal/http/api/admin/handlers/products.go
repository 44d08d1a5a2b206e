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
	"github.com/ldcshop/storefront/internal/util"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxImportKeys = 5000

// ProductHandler manages products and their card inventory.
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

// createProductRequest is the payload for product creation.
type createProductRequest struct {
	ID          string `json:"id" binding:"omitempty,max=64"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"max=64"`
	Price       string `json:"price" binding:"required"`
	SortOrder   int    `json:"sort_order"`
}

// Create stores a new active product.
func (h *ProductHandler) Create(c *gin.Context) {
	var body createProductRequest
	if msg, ok := apihttp.BindJSON(c, &body); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	price, errPrice := decimal.NewFromString(strings.TrimSpace(body.Price))
	if errPrice != nil || !price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a positive number"})
		return
	}
	if !price.Equal(price.Round(2)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must have at most two decimal places"})
		return
	}
	id := strings.TrimSpace(body.ID)
	if id == "" {
		id = strings.ToLower(ulid.Make().String())
	}

	product := models.Product{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(body.Description),
		Category:    strings.TrimSpace(body.Category),
		Price:       price,
		IsActive:    true,
		SortOrder:   body.SortOrder,
	}
	var existing int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Product{}).Where("id = ?", id).Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create product failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "product id already exists"})
		return
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&product).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create product failed"})
		return
	}
	c.JSON(http.StatusCreated, formatProduct(&product, 0))
}

// List returns all products with their unused card counts.
func (h *ProductHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var rows []models.Product
	if errFind := h.db.WithContext(ctx).Order("sort_order ASC").Order("created_at ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list products failed"})
		return
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	stock, errStock := inventory.CountAvailableByProduct(ctx, h.db, ids)
	if errStock != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count stock failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatProduct(&rows[i], stock[rows[i].ID]))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

// Toggle flips a product's listing flag.
func (h *ProductHandler) Toggle(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var product models.Product
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Where("id = ?", id).First(&product).Error; errFind != nil {
			return errFind
		}
		product.IsActive = !product.IsActive
		return tx.Model(&models.Product{}).Where("id = ?", id).
			Updates(map[string]any{"is_active": product.IsActive, "updated_at": time.Now().UTC()}).Error
	})
	if errTx != nil {
		if errors.Is(errTx, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle product failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": product.ID, "is_active": product.IsActive})
}

// importCardsRequest carries keys either as a list or as newline-separated text.
type importCardsRequest struct {
	Keys []string `json:"keys"`
	Text string   `json:"text"`
}

// ImportCards adds card keys to a product's inventory.
func (h *ProductHandler) ImportCards(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))
	var body importCardsRequest
	if msg, ok := apihttp.BindJSON(c, &body); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	keys := append([]string{}, body.Keys...)
	if body.Text != "" {
		keys = append(keys, strings.Split(strings.ReplaceAll(body.Text, "\r\n", "\n"), "\n")...)
	}
	if len(keys) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing keys"})
		return
	}
	if len(keys) > maxImportKeys {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many keys"})
		return
	}

	var exists int64
	if errCount := h.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&exists).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import cards failed"})
		return
	}
	if exists == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	result, errImport := inventory.Import(ctx, h.db, id, keys)
	if errImport != nil {
		log.WithError(errImport).WithField("product_id", id).Error("admin cards: import failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import cards failed"})
		return
	}
	h.cache.Invalidate(ctx, id)
	c.JSON(http.StatusOK, result)
}

// ListCards returns a product's cards with keys masked; used=true|false filters.
func (h *ProductHandler) ListCards(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	page := apihttp.QueryInt(c, "page", 1)
	pageSize := apihttp.QueryInt(c, "page_size", 50)
	if pageSize > 200 {
		pageSize = 200
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Card{}).Where("product_id = ?", id)
	switch strings.TrimSpace(c.Query("used")) {
	case "true":
		q = q.Where("is_used = ?", true)
	case "false":
		q = q.Where("is_used = ?", false)
	}
	var total int64
	if errCount := q.Session(&gorm.Session{}).Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list cards failed"})
		return
	}
	var rows []models.Card
	if errFind := q.Session(&gorm.Session{}).Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list cards failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"card_key":   util.HideSecret(row.CardKey),
			"is_used":    row.IsUsed,
			"used_at":    row.UsedAt,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"cards": out, "total": total, "page": page, "page_size": pageSize})
}

func formatProduct(p *models.Product, stock int64) gin.H {
	return gin.H{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"price":       epay.FormatAmount(p.Price),
		"is_active":   p.IsActive,
		"sort_order":  p.SortOrder,
		"stock":       stock,
		"created_at":  p.CreatedAt,
	}
}
