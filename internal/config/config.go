// Package config loads the storefront configuration file and its
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ldcshop/storefront/internal/epay"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when neither the flag nor STOREFRONT_CONFIG is set.
	DefaultConfigPath = "config.yaml"
	// DefaultBaseURL is the public URL used when no deployment URL is configured.
	DefaultBaseURL = "http://localhost:3000"

	configPathEnv = "STOREFRONT_CONFIG"
)

// AppConfig carries process-level options from the command line.
type AppConfig struct {
	ConfigPath string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// Config is the parsed configuration file after environment overrides.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTFileConfig  `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Payment  PaymentConfig  `yaml:"payment"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

// DatabaseConfig configures the database connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// JWTFileConfig is the jwt section of the configuration file.
type JWTFileConfig struct {
	Secret           string `yaml:"secret"`
	AdminExpiryHours int    `yaml:"admin_expiry_hours"`
	UserExpiryHours  int    `yaml:"user_expiry_hours"`
}

// RedisConfig configures the optional stock cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// CheckoutConfig configures the public checkout endpoint.
type CheckoutConfig struct {
	RatePerSecond          float64 `yaml:"rate_per_second"`
	Burst                  int     `yaml:"burst"`
	PendingCookieMaxAgeSec int     `yaml:"pending_cookie_max_age_seconds"`
}

// PaymentConfig holds gateway credentials; environment variables take precedence.
type PaymentConfig struct {
	MerchantID  string `yaml:"merchant_id"`
	MerchantKey string `yaml:"merchant_key"`
	PayURL      string `yaml:"pay_url"`
	RefundURL   string `yaml:"refund_url"`
	BaseURL     string `yaml:"base_url"`
}

// ResolveConfigPath picks the configuration file path.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv(configPathEnv)); env != "" {
		return env
	}
	return DefaultConfigPath
}

// ConfigExists reports whether the configuration file is present.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadDotEnv loads a .env file from the working directory when present.
func LoadDotEnv() error {
	if errLoad := godotenv.Load(); errLoad != nil && !errors.Is(errLoad, os.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", errLoad)
	}
	return nil
}

// Load reads path (a missing file yields defaults) and applies the process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	cfg.applyEnv(getenv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }
	override := func(dst *string, key string) {
		if v := env(key); v != "" {
			*dst = v
		}
	}
	override(&c.Payment.MerchantID, "MERCHANT_ID")
	override(&c.Payment.MerchantKey, "MERCHANT_KEY")
	override(&c.Payment.PayURL, "PAY_URL")
	override(&c.Payment.RefundURL, "REFUND_URL")
	override(&c.Database.DSN, "DATABASE_URL")
	override(&c.JWT.Secret, "JWT_SECRET")
	override(&c.Redis.Addr, "REDIS_ADDR")

	if v := env("NEXT_PUBLIC_APP_URL"); v != "" {
		c.Payment.BaseURL = v
	} else if v := env("VERCEL_URL"); v != "" {
		c.Payment.BaseURL = "https://" + strings.TrimPrefix(v, "https://")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownSeconds <= 0 {
		c.Server.ShutdownSeconds = 10
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "file:data/storefront.db"
	}
	if c.JWT.AdminExpiryHours <= 0 {
		c.JWT.AdminExpiryHours = 24
	}
	if c.JWT.UserExpiryHours <= 0 {
		c.JWT.UserExpiryHours = 24 * 7
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 30
	}
	if c.Checkout.RatePerSecond <= 0 {
		c.Checkout.RatePerSecond = 1
	}
	if c.Checkout.Burst <= 0 {
		c.Checkout.Burst = 5
	}
	if c.Checkout.PendingCookieMaxAgeSec <= 0 {
		c.Checkout.PendingCookieMaxAgeSec = 600
	}
	if c.Payment.PayURL == "" {
		c.Payment.PayURL = epay.DefaultPayURL
	}
	if c.Payment.RefundURL == "" {
		c.Payment.RefundURL = epay.DefaultRefundURL
	}
	if c.Payment.BaseURL == "" {
		c.Payment.BaseURL = DefaultBaseURL
	}
	c.Payment.BaseURL = strings.TrimRight(c.Payment.BaseURL, "/")
}

// Epay returns the gateway configuration.
func (c *Config) Epay() epay.Config {
	return epay.Config{
		MerchantID:  c.Payment.MerchantID,
		MerchantKey: c.Payment.MerchantKey,
		PayURL:      c.Payment.PayURL,
		RefundURL:   c.Payment.RefundURL,
		BaseURL:     c.Payment.BaseURL,
	}
}

// AdminJWT returns the admin token settings.
func (c *Config) AdminJWT() JWTConfig {
	return JWTConfig{Secret: c.JWT.Secret, Expiry: time.Duration(c.JWT.AdminExpiryHours) * time.Hour}
}

// UserJWT returns the customer token settings.
func (c *Config) UserJWT() JWTConfig {
	return JWTConfig{Secret: c.JWT.Secret, Expiry: time.Duration(c.JWT.UserExpiryHours) * time.Hour}
}

// ValidateServe checks the settings the HTTP server cannot run without.
func (c *Config) ValidateServe() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt secret is required (jwt.secret or JWT_SECRET)")
	}
	if errEpay := c.Epay().Validate(); errEpay != nil {
		return fmt.Errorf("config: %w (MERCHANT_ID, MERCHANT_KEY)", errEpay)
	}
	return nil
}
