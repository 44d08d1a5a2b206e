package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ldcshop/storefront/internal/models"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListFilter narrows an admin order listing.
type ListFilter struct {
	Status    models.OrderStatus
	ProductID string
	UserID    string
	Search    string // Matches order_id or trade_no prefixes.
	Since     *time.Time
	Until     *time.Time
	Page      int
	PageSize  int
}

// Page is one page of orders.
type Page struct {
	Orders   []models.Order `json:"orders"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// NormalizePage clamps pagination input.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// List returns orders matching filter, newest first.
func List(ctx context.Context, db *gorm.DB, filter ListFilter) (*Page, error) {
	page, pageSize := NormalizePage(filter.Page, filter.PageSize)
	scope := filterScope(filter)

	var total int64
	if errCount := db.WithContext(ctx).Model(&models.Order{}).Scopes(scope).Count(&total).Error; errCount != nil {
		return nil, fmt.Errorf("orders: count: %w", errCount)
	}
	out := &Page{Orders: []models.Order{}, Total: total, Page: page, PageSize: pageSize}
	if total == 0 {
		return out, nil
	}
	if errFind := db.WithContext(ctx).Model(&models.Order{}).Scopes(scope).
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out.Orders).Error; errFind != nil {
		return nil, fmt.Errorf("orders: list: %w", errFind)
	}
	return out, nil
}

func filterScope(filter ListFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if v := strings.TrimSpace(filter.ProductID); v != "" {
			q = q.Where("product_id = ?", v)
		}
		if v := strings.TrimSpace(filter.UserID); v != "" {
			q = q.Where("user_id = ?", v)
		}
		if v := strings.TrimSpace(filter.Search); v != "" {
			q = q.Where("order_id LIKE ? OR trade_no LIKE ?", v+"%", v+"%")
		}
		if filter.Since != nil {
			q = q.Where("created_at >= ?", *filter.Since)
		}
		if filter.Until != nil {
			q = q.Where("created_at < ?", *filter.Until)
		}
		return q
	}
}

// ListByUser returns a user's orders, newest first.
func ListByUser(ctx context.Context, db *gorm.DB, userID string, page, pageSize int) (*Page, error) {
	if strings.TrimSpace(userID) == "" {
		p, ps := NormalizePage(page, pageSize)
		return &Page{Orders: []models.Order{}, Page: p, PageSize: ps}, nil
	}
	return List(ctx, db, ListFilter{UserID: userID, Page: page, PageSize: pageSize})
}
