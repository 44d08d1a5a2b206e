package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/accounts"
	"github.com/ldcshop/storefront/internal/config"
	"github.com/ldcshop/storefront/internal/db"
	apihttp "github.com/ldcshop/storefront/internal/http"
	"github.com/ldcshop/storefront/internal/http/api/admin"
	"github.com/ldcshop/storefront/internal/http/api/front"
	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/logging"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/notify"
	"github.com/ldcshop/storefront/internal/settings"
	"github.com/ldcshop/storefront/internal/webui"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	redisPingTimeout        = 3 * time.Second
	settingsRefreshInterval = 30 * time.Second
)

// CreateAdminParams holds inputs for admin creation from the command line.
type CreateAdminParams = accounts.CreateAdminParams

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, _, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// CreateAdmin migrates the database and stores a new administrator.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) (*models.Admin, error) {
	conn, _, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	return accounts.CreateAdmin(ctx, conn, params)
}

// ImportCards adds card keys to an existing product and drops its cached
// stock count so the catalogue reflects the import immediately.
func ImportCards(ctx context.Context, cfg config.AppConfig, productID string, keys []string) (inventory.ImportResult, error) {
	conn, appCfg, err := openDatabase(cfg)
	if err != nil {
		return inventory.ImportResult{}, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return inventory.ImportResult{}, errMigrate
	}
	cache, closeCache := newStockCache(ctx, appCfg.Redis)
	defer closeCache()
	return importCards(ctx, conn, cache, productID, keys)
}

func importCards(ctx context.Context, conn *gorm.DB, cache inventory.StockCache, productID string, keys []string) (inventory.ImportResult, error) {
	productID = strings.TrimSpace(productID)
	var exists int64
	if errCount := conn.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&exists).Error; errCount != nil {
		return inventory.ImportResult{}, errCount
	}
	if exists == 0 {
		return inventory.ImportResult{}, fmt.Errorf("product %q not found", productID)
	}
	result, errImport := inventory.Import(ctx, conn, productID, keys)
	if errImport != nil {
		return inventory.ImportResult{}, errImport
	}
	cache.Invalidate(ctx, productID)
	return result, nil
}

// RunServer boots the storefront HTTP server and its background workers,
// returning once ctx is cancelled and the server has drained.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	conn, appCfg, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	closer, errLog := logging.Setup(appCfg.Log)
	if errLog != nil {
		return errLog
	}
	defer func() { _ = closer.Close() }()

	if errValidate := appCfg.ValidateServe(); errValidate != nil {
		return errValidate
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.Refresh(ctx, conn); errRefresh != nil {
		return fmt.Errorf("load settings: %w", errRefresh)
	}
	settings.StartRefresher(ctx, conn, settingsRefreshInterval)

	stockCache, closeCache := newStockCache(ctx, appCfg.Redis)
	defer closeCache()

	engine, errEngine := newEngine(conn, appCfg, stockCache)
	if errEngine != nil {
		return errEngine
	}

	notify.NewRetentionCleaner(conn).Start(ctx)

	srv := &http.Server{
		Addr:              appCfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("storefront listening on %s (base url %s)", appCfg.Server.Addr, appCfg.Payment.BaseURL)
		if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
		close(errCh)
	}()

	select {
	case errServe, ok := <-errCh:
		if ok {
			return errServe
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(appCfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()
	log.Info("storefront shutting down")
	return srv.Shutdown(shutdownCtx)
}

// newEngine builds the gin engine with middleware and every route.
func newEngine(conn *gorm.DB, appCfg *config.Config, stockCache inventory.StockCache) (*gin.Engine, error) {
	tmpl, errLoad := webui.Load()
	if errLoad != nil {
		return nil, fmt.Errorf("load pages: %w", errLoad)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), apihttp.RequestIDMiddleware(), apihttp.AccessLogMiddleware())
	engine.SetHTMLTemplate(tmpl)

	admin.RegisterAdminRoutes(engine, conn, admin.Options{
		JWT:        appCfg.AdminJWT(),
		Epay:       appCfg.Epay(),
		StockCache: stockCache,
	})
	front.RegisterFrontRoutes(engine, conn, front.Options{
		JWT:             appCfg.UserJWT(),
		Epay:            appCfg.Epay(),
		StockCache:      stockCache,
		CheckoutLimiter: apihttp.NewIPRateLimiter(appCfg.Checkout.RatePerSecond, appCfg.Checkout.Burst),
		CookieMaxAge:    appCfg.Checkout.PendingCookieMaxAgeSec,
	})

	engine.NoRoute(func(c *gin.Context) {
		if isAPIRoute(c.Request.URL.Path) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Status(http.StatusNotFound)
	})
	return engine, nil
}

// openDatabase loads configuration and opens the configured database.
func openDatabase(cfg config.AppConfig) (*gorm.DB, *config.Config, error) {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	appCfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(appCfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	return conn, appCfg, nil
}

// newRedisClient connects the optional stock cache; failures fall back to no cache.
// newStockCache returns the redis stock cache when redis is configured and
// reachable, else a no-op cache. The returned func releases the client.
func newStockCache(ctx context.Context, cfg config.RedisConfig) (inventory.StockCache, func()) {
	client := newRedisClient(ctx, cfg)
	if client == nil {
		return inventory.NopStockCache{}, func() {}
	}
	return inventory.NewRedisStockCache(client), func() { _ = client.Close() }
}

func newRedisClient(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		log.WithError(errPing).Warnf("redis %s unreachable, stock cache disabled", addr)
		_ = client.Close()
		return nil
	}
	log.Infof("stock cache using redis %s", addr)
	return client
}

// isAPIRoute reports whether a path targets API endpoints.
func isAPIRoute(requestPath string) bool {
	if requestPath == "/healthz" || strings.HasPrefix(requestPath, "/healthz/") {
		return true
	}
	for _, prefix := range []string{"/v0", "/api"} {
		if requestPath == prefix || strings.HasPrefix(requestPath, prefix+"/") {
			return true
		}
	}
	return false
}
