package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMigrateSQLiteCreatesTables(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{"users", "admins", "settings", "products", "cards", "orders", "admin_messages", "user_notifications", "payment_notify_logs"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	for _, column := range []string{"trade_no", "card_key", "paid_at", "delivered_at", "refunded_at"} {
		if !conn.Migrator().HasColumn("orders", column) {
			t.Fatalf("orders missing column %s", column)
		}
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	for i := 0; i < 2; i++ {
		if errMigrate := Migrate(conn); errMigrate != nil {
			t.Fatalf("migrate run %d: %v", i+1, errMigrate)
		}
	}
}

func TestDetectDialectFromDSN(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"postgres://u:p@localhost:5432/shop":         DialectPostgres,
		"host=localhost user=u dbname=shop":          DialectPostgres,
		"mysql://u:p@localhost:3306/shop":            DialectMySQL,
		"u:p@tcp(127.0.0.1:3306)/shop?charset=utf8":  DialectMySQL,
		"file:data/shop.db":                          DialectSQLite,
		"sqlite://data/shop.db":                      DialectSQLite,
		"shop.db":                                    DialectSQLite,
	}
	for dsn, want := range cases {
		got, err := detectDialectFromDSN(dsn)
		if err != nil {
			t.Fatalf("detect %q: %v", dsn, err)
		}
		if got != want {
			t.Fatalf("detect %q: expected %s, got %s", dsn, want, got)
		}
	}
	if _, err := detectDialectFromDSN("redis://localhost"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestNormalizeMySQLDSN(t *testing.T) {
	t.Parallel()

	got := normalizeMySQLDSN("mysql://shop:secret@db:3306/storefront")
	want := "shop:secret@tcp(db:3306)/storefront?parseTime=true&loc=Local"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	kept := normalizeMySQLDSN("shop:secret@tcp(db:3306)/storefront?parseTime=true")
	if kept != "shop:secret@tcp(db:3306)/storefront?parseTime=true" {
		t.Fatalf("expected dsn unchanged, got %q", kept)
	}
}

func TestSQLitePathFromDSN(t *testing.T) {
	t.Parallel()

	if got := sqlitePathFromDSN("file:data/shop.db?_busy_timeout=5000"); got != "data/shop.db" {
		t.Fatalf("expected data/shop.db, got %q", got)
	}
	if got := sqlitePathFromDSN("file:test_1?mode=memory&cache=shared"); got != "" {
		t.Fatalf("expected empty path for memory dsn, got %q", got)
	}
	if got := sqlitePathFromDSN(":memory:"); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}
