// Package inventory manages the pool of single-use card keys per product.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ldcshop/storefront/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// maxClaimAttempts bounds retries when a candidate card is taken by a
	// concurrent transaction between selection and the conditional update.
	maxClaimAttempts = 5
	importBatchSize  = 200
)

// ErrClaimContention indicates every claim attempt lost its race.
var ErrClaimContention = errors.New("inventory: card claim contention")

// ClaimCard marks one unused card of productID as used and returns it.
// It must run inside the caller's transaction. A nil card with a nil error
// means the product is out of stock.
func ClaimCard(tx *gorm.DB, productID string, now time.Time) (*models.Card, error) {
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		var card models.Card
		errFind := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("product_id = ? AND is_used = ?", productID, false).
			First(&card).Error
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if errFind != nil {
			return nil, fmt.Errorf("inventory: find card: %w", errFind)
		}

		// is_used in the predicate makes this a compare-and-swap.
		res := tx.Model(&models.Card{}).
			Where("id = ? AND is_used = ?", card.ID, false).
			Updates(map[string]any{"is_used": true, "used_at": now})
		if res.Error != nil {
			return nil, fmt.Errorf("inventory: claim card: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			card.IsUsed = true
			card.UsedAt = &now
			return &card, nil
		}
	}
	return nil, ErrClaimContention
}

// CountAvailable returns the number of unused cards for a product.
func CountAvailable(ctx context.Context, db *gorm.DB, productID string) (int64, error) {
	var n int64
	if errCount := db.WithContext(ctx).
		Model(&models.Card{}).
		Where("product_id = ? AND is_used = ?", productID, false).
		Count(&n).Error; errCount != nil {
		return 0, fmt.Errorf("inventory: count cards: %w", errCount)
	}
	return n, nil
}

// CountAvailableByProduct returns unused card counts keyed by product ID.
// Products without stock are absent from the map.
func CountAvailableByProduct(ctx context.Context, db *gorm.DB, productIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	type row struct {
		ProductID string
		Stock     int64
	}
	var rows []row
	if errScan := db.WithContext(ctx).
		Model(&models.Card{}).
		Select("product_id, COUNT(*) AS stock").
		Where("product_id IN ? AND is_used = ?", productIDs, false).
		Group("product_id").
		Scan(&rows).Error; errScan != nil {
		return nil, fmt.Errorf("inventory: count cards: %w", errScan)
	}
	for _, r := range rows {
		out[r.ProductID] = r.Stock
	}
	return out, nil
}

// ImportResult summarises a card import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// MaxCardKeyLength bounds a card key so (product, key) stays indexable.
const MaxCardKeyLength = 512

// Import adds card keys to a product. Blank or oversized keys, keys repeated
// within the batch and keys the product already holds are skipped; all
// inserts commit together.
func Import(ctx context.Context, db *gorm.DB, productID string, keys []string) (ImportResult, error) {
	var result ImportResult
	seen := make(map[string]struct{}, len(keys))
	cards := make([]models.Card, 0, len(keys))
	for _, raw := range keys {
		key := strings.TrimSpace(raw)
		if key == "" || len(key) > MaxCardKeyLength {
			result.Skipped++
			continue
		}
		if _, dup := seen[key]; dup {
			result.Skipped++
			continue
		}
		seen[key] = struct{}{}
		cards = append(cards, models.Card{ProductID: productID, CardKey: key})
	}
	if len(cards) == 0 {
		return result, nil
	}
	var inserted int64
	errTx := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(cards); start += importBatchSize {
			end := min(start+importBatchSize, len(cards))
			batch := cards[start:end]
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "product_id"}, {Name: "card_key"}},
				DoNothing: true,
			}).Create(&batch)
			if res.Error != nil {
				return res.Error
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if errTx != nil {
		return ImportResult{}, fmt.Errorf("inventory: import cards: %w", errTx)
	}
	result.Imported = int(inserted)
	result.Skipped += len(cards) - int(inserted)
	return result, nil
}
