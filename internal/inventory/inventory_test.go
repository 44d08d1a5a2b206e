package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	dbpkg "github.com/ldcshop/storefront/internal/db"
	"github.com/ldcshop/storefront/internal/models"
	"gorm.io/gorm"
)

func openInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:inventory_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(db); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return db
}

func TestImportSkipsBlankAndDuplicateKeys(t *testing.T) {
	db := openInventoryTestDB(t)

	result, err := Import(context.Background(), db, "p1", []string{"AAA", " ", "BBB", "AAA", "\tCCC\n", ""})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Imported != 3 || result.Skipped != 3 {
		t.Fatalf("expected 3 imported and 3 skipped, got %+v", result)
	}

	stock, err := CountAvailable(context.Background(), db, "p1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if stock != 3 {
		t.Fatalf("expected stock 3, got %d", stock)
	}
}

func TestClaimCardExhaustsStock(t *testing.T) {
	db := openInventoryTestDB(t)
	if _, err := Import(context.Background(), db, "p1", []string{"K1", "K2"}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := Import(context.Background(), db, "p2", []string{"OTHER"}); err != nil {
		t.Fatalf("import: %v", err)
	}

	now := time.Now().UTC()
	claimed := map[string]bool{}
	for i := 0; i < 2; i++ {
		var card *models.Card
		errTx := db.Transaction(func(tx *gorm.DB) error {
			var errClaim error
			card, errClaim = ClaimCard(tx, "p1", now)
			return errClaim
		})
		if errTx != nil {
			t.Fatalf("claim %d: %v", i, errTx)
		}
		if card == nil {
			t.Fatalf("claim %d: expected a card", i)
		}
		if claimed[card.CardKey] {
			t.Fatalf("card %s claimed twice", card.CardKey)
		}
		claimed[card.CardKey] = true
	}

	var card *models.Card
	errTx := db.Transaction(func(tx *gorm.DB) error {
		var errClaim error
		card, errClaim = ClaimCard(tx, "p1", now)
		return errClaim
	})
	if errTx != nil {
		t.Fatalf("claim after exhaustion: %v", errTx)
	}
	if card != nil {
		t.Fatalf("expected no card after exhaustion, got %s", card.CardKey)
	}

	other, err := CountAvailable(context.Background(), db, "p2")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if other != 1 {
		t.Fatalf("expected other product untouched, got stock %d", other)
	}
}

func TestCountAvailableByProduct(t *testing.T) {
	db := openInventoryTestDB(t)
	if _, err := Import(context.Background(), db, "p1", []string{"A", "B"}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := Import(context.Background(), db, "p2", []string{"C"}); err != nil {
		t.Fatalf("import: %v", err)
	}

	counts, err := CountAvailableByProduct(context.Background(), db, []string{"p1", "p2", "p3"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["p1"] != 2 || counts["p2"] != 1 || counts["p3"] != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

type memoryStockCache struct {
	values      map[string]int64
	invalidated []string
}

func (m *memoryStockCache) Get(_ context.Context, id string) (int64, bool) {
	n, ok := m.values[id]
	return n, ok
}

func (m *memoryStockCache) Set(_ context.Context, id string, n int64) { m.values[id] = n }

func (m *memoryStockCache) Invalidate(_ context.Context, id string) {
	delete(m.values, id)
	m.invalidated = append(m.invalidated, id)
}

func TestStockCountsUsesCacheForHits(t *testing.T) {
	cache := &memoryStockCache{values: map[string]int64{"p1": 7}}
	var asked []string
	counts, err := StockCounts(context.Background(), cache, func(_ context.Context, ids []string) (map[string]int64, error) {
		asked = append(asked, ids...)
		return map[string]int64{"p2": 4}, nil
	}, []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("stock counts: %v", err)
	}
	if counts["p1"] != 7 || counts["p2"] != 4 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	if len(asked) != 1 || asked[0] != "p2" {
		t.Fatalf("expected only the miss to be counted, asked %v", asked)
	}
	if cache.values["p2"] != 4 {
		t.Fatalf("expected miss to be cached")
	}
}

func TestImportSkipsKeysAlreadyInStock(t *testing.T) {
	db := openInventoryTestDB(t)
	ctx := context.Background()

	first, err := Import(ctx, db, "p1", []string{"SECRET-1"})
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := Import(ctx, db, "p1", []string{"SECRET-1", "SECRET-2"})
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if first.Imported != 1 || second.Imported != 1 || second.Skipped != 1 {
		t.Fatalf("unexpected results first=%+v second=%+v", first, second)
	}

	other, err := Import(ctx, db, "p2", []string{"SECRET-1"})
	if err != nil || other.Imported != 1 {
		t.Fatalf("same key on another product should import: %+v %v", other, err)
	}

	stock, err := CountAvailable(ctx, db, "p1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if stock != 2 {
		t.Fatalf("expected stock 2, got %d", stock)
	}

	now := time.Now().UTC()
	claimed := map[string]int{}
	for i := 0; i < 3; i++ {
		errTx := db.Transaction(func(tx *gorm.DB) error {
			card, errClaim := ClaimCard(tx, "p1", now)
			if card != nil {
				claimed[card.CardKey]++
			}
			return errClaim
		})
		if errTx != nil {
			t.Fatalf("claim %d: %v", i, errTx)
		}
	}
	if len(claimed) != 2 || claimed["SECRET-1"] != 1 || claimed["SECRET-2"] != 1 {
		t.Fatalf("expected each key handed out once, got %v", claimed)
	}
}

func TestImportSkipsOversizedKeys(t *testing.T) {
	db := openInventoryTestDB(t)

	long := make([]byte, MaxCardKeyLength+1)
	for i := range long {
		long[i] = 'x'
	}
	result, err := Import(context.Background(), db, "p1", []string{string(long), "OK"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 1 {
		t.Fatalf("expected 1 imported and 1 skipped, got %+v", result)
	}
}
