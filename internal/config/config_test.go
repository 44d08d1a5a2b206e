package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ldcshop/storefront/internal/epay"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"), envMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Database.DSN != "file:data/storefront.db" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	ep := cfg.Epay()
	if ep.PayURL != epay.DefaultPayURL || ep.RefundURL != epay.DefaultRefundURL {
		t.Fatalf("unexpected gateway urls %+v", ep)
	}
	if ep.NotifyURL() != "http://localhost:3000/api/notify" {
		t.Fatalf("unexpected notify url %q", ep.NotifyURL())
	}
	if errValidate := cfg.ValidateServe(); errValidate == nil {
		t.Fatalf("expected validation error without secrets")
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  addr: ":9090"
database:
  dsn: "postgres://shop@db/shop"
jwt:
  secret: "from-file"
  admin_expiry_hours: 2
payment:
  merchant_id: "file-pid"
  base_url: "https://file.example/"
redis:
  addr: "cache:6379"
`)
	if errWrite := os.WriteFile(path, content, 0o600); errWrite != nil {
		t.Fatalf("write: %v", errWrite)
	}

	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"MERCHANT_ID":  "1001",
		"MERCHANT_KEY": "k",
		"DATABASE_URL": "file:override.db",
		"VERCEL_URL":   "shop.vercel.app",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected addr from file, got %q", cfg.Server.Addr)
	}
	if cfg.Database.DSN != "file:override.db" {
		t.Fatalf("expected DATABASE_URL override, got %q", cfg.Database.DSN)
	}
	if cfg.Payment.MerchantID != "1001" || cfg.Payment.MerchantKey != "k" {
		t.Fatalf("expected merchant from env, got %+v", cfg.Payment)
	}
	if cfg.Payment.BaseURL != "https://shop.vercel.app" {
		t.Fatalf("expected vercel url, got %q", cfg.Payment.BaseURL)
	}
	if got := cfg.AdminJWT(); got.Secret != "from-file" || got.Expiry != 2*time.Hour {
		t.Fatalf("unexpected admin jwt %+v", got)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Fatalf("expected redis addr, got %q", cfg.Redis.Addr)
	}
	if errValidate := cfg.ValidateServe(); errValidate != nil {
		t.Fatalf("validate: %v", errValidate)
	}
}

func TestAppURLTakesPrecedence(t *testing.T) {
	cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"), envMap(map[string]string{
		"NEXT_PUBLIC_APP_URL": "https://shop.example/",
		"VERCEL_URL":          "ignored.vercel.app",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Payment.BaseURL != "https://shop.example" {
		t.Fatalf("expected app url, got %q", cfg.Payment.BaseURL)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte("server: [unterminated"), 0o600); errWrite != nil {
		t.Fatalf("write: %v", errWrite)
	}
	if _, err := LoadWithEnv(path, envMap(nil)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "/etc/storefront.yaml")
	if got := ResolveConfigPath(" custom.yaml "); got != "custom.yaml" {
		t.Fatalf("expected flag path, got %q", got)
	}
	if got := ResolveConfigPath(""); got != "/etc/storefront.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
	t.Setenv("STOREFRONT_CONFIG", "")
	if got := ResolveConfigPath(""); got != DefaultConfigPath {
		t.Fatalf("expected default path, got %q", got)
	}
}
