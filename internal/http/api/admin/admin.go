package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/broadcast"
	"github.com/ldcshop/storefront/internal/config"
	"github.com/ldcshop/storefront/internal/epay"
	"github.com/ldcshop/storefront/internal/http/api/admin/handlers"
	permissions "github.com/ldcshop/storefront/internal/http/api/admin/permissions"
	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/security"
	"gorm.io/gorm"
)

// Context keys set by adminAuthMiddleware.
const (
	adminIDKey           = "adminID"
	adminUsernameKey     = handlers.AdminUsernameKey
	adminPermissionsKey  = "adminPermissions"
	adminIsSuperAdminKey = "adminIsSuperAdmin"
)

// Options carries the collaborators admin routes depend on.
type Options struct {
	JWT        config.JWTConfig
	Epay       epay.Config
	StockCache inventory.StockCache
}

// RegisterAdminRoutes registers the login endpoint and the permission-guarded admin API.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, opts Options) {
	if r == nil || db == nil {
		return
	}

	r.GET("/healthz", handlers.NewHealthHandler(db).Healthz)

	group := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, opts.JWT)
	group.POST("/login", authHandler.Login)
	group.POST("/login/totp", authHandler.LoginTOTP)

	// Self-service MFA needs a session but no granted permission.
	mfaHandler := handlers.NewMFAHandler(db)
	mfa := group.Group("/mfa", adminAuthMiddleware(db, opts.JWT))
	mfa.GET("", mfaHandler.Status)
	mfa.POST("/totp/prepare", mfaHandler.PrepareTOTP)
	mfa.POST("/totp/confirm", mfaHandler.ConfirmTOTP)
	mfa.POST("/totp/disable", mfaHandler.DisableTOTP)

	authed := group.Group("")
	authed.Use(adminAuthMiddleware(db, opts.JWT), adminPermissionMiddleware())

	messageHandler := handlers.NewMessageHandler(broadcast.NewService(db))
	authed.GET("/messages", messageHandler.List)
	authed.POST("/messages", messageHandler.Send)
	authed.DELETE("/messages/:id", messageHandler.Delete)

	productHandler := handlers.NewProductHandler(db, opts.StockCache)
	authed.GET("/products", productHandler.List)
	authed.POST("/products", productHandler.Create)
	authed.POST("/products/:id/toggle", productHandler.Toggle)
	authed.GET("/products/:id/cards", productHandler.ListCards)
	authed.POST("/products/:id/cards", productHandler.ImportCards)

	orderHandler := handlers.NewOrderHandler(db, opts.Epay, opts.StockCache)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:order_id/refund-params", orderHandler.RefundParams)
	authed.POST("/orders/:order_id/refunded", orderHandler.MarkRefunded)
	authed.POST("/orders/:order_id/fulfill", orderHandler.Fulfill)

	settingHandler := handlers.NewSettingHandler(db)
	authed.GET("/settings", settingHandler.List)
	authed.PUT("/settings/:key", settingHandler.Update)

	adminHandler := handlers.NewAdminHandler(db)
	authed.GET("/admins", adminHandler.List)
	authed.POST("/admins", adminHandler.Create)
	authed.POST("/admins/:id/disable", adminHandler.Disable)
	authed.POST("/admins/:id/enable", adminHandler.Enable)
	authed.PUT("/admins/:id/permissions", adminHandler.SetPermissions)

	permissionHandler := handlers.NewPermissionHandler()
	authed.GET("/permissions", permissionHandler.List)
}

// adminAuthMiddleware validates admin JWTs and loads the admin into context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set(adminIDKey, admin.ID)
		c.Set(adminUsernameKey, admin.Username)
		c.Set(adminPermissionsKey, permissions.ParsePermissions(admin.Permissions))
		c.Set(adminIsSuperAdminKey, admin.IsSuperAdmin)
		c.Next()
	}
}

// bearerToken extracts the bearer token, aborting the request when absent.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
		return "", false
	}
	return token, true
}
