package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/settings"
)

func TestRetentionCleanerDeletesOldLogs(t *testing.T) {
	db := openNotifyTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	settings.Store(now, map[string]json.RawMessage{settings.NotifyLogRetentionDaysKey: json.RawMessage(`7`)})
	t.Cleanup(func() { settings.Store(time.Now(), nil) })

	for _, age := range []time.Duration{time.Hour, 6 * 24 * time.Hour, 8 * 24 * time.Hour, 30 * 24 * time.Hour, 31 * 24 * time.Hour} {
		if errCreate := db.Create(&models.PaymentNotifyLog{Outcome: "processed", ReceivedAt: now.Add(-age)}).Error; errCreate != nil {
			t.Fatalf("create log: %v", errCreate)
		}
	}

	cleaner := NewRetentionCleaner(db)
	cleaner.now = func() time.Time { return now }
	cleaner.batchSize = 2

	if deleted := cleaner.CleanupOnce(context.Background()); deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}
	var remaining int64
	if errCount := db.Model(&models.PaymentNotifyLog{}).Count(&remaining).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if remaining != 2 {
		t.Fatalf("expected 2 remaining, got %d", remaining)
	}
}

func TestRetentionCleanerDisabled(t *testing.T) {
	db := openNotifyTestDB(t)
	settings.Store(time.Now(), map[string]json.RawMessage{settings.NotifyLogRetentionDaysKey: json.RawMessage(`0`)})
	t.Cleanup(func() { settings.Store(time.Now(), nil) })

	if errCreate := db.Create(&models.PaymentNotifyLog{Outcome: "ignored", ReceivedAt: time.Now().AddDate(-1, 0, 0)}).Error; errCreate != nil {
		t.Fatalf("create log: %v", errCreate)
	}
	if deleted := NewRetentionCleaner(db).CleanupOnce(context.Background()); deleted != 0 {
		t.Fatalf("expected no deletion when disabled, got %d", deleted)
	}
	if NewRetentionCleaner(nil) != nil {
		t.Fatalf("expected nil cleaner for nil db")
	}
}
