package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/accounts"
	"github.com/ldcshop/storefront/internal/checkout"
	"github.com/ldcshop/storefront/internal/config"
	"github.com/ldcshop/storefront/internal/epay"
	apihttp "github.com/ldcshop/storefront/internal/http"
	"github.com/ldcshop/storefront/internal/http/api/front/handlers"
	"github.com/ldcshop/storefront/internal/inventory"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/notify"
	"github.com/ldcshop/storefront/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options carries the collaborators storefront routes depend on.
type Options struct {
	JWT             config.JWTConfig
	Epay            epay.Config
	StockCache      inventory.StockCache
	CheckoutLimiter *apihttp.IPRateLimiter // nil disables checkout rate limiting.
	CookieMaxAge    int                    // Pending-order cookie lifetime in seconds.
}

// RegisterFrontRoutes registers the gateway endpoints and the storefront API.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, opts Options) {
	if r == nil || db == nil {
		return
	}

	notifyHandler := handlers.NewNotifyHandler(notify.NewService(db, opts.Epay, opts.StockCache))
	r.GET("/api/notify", notifyHandler.Probe)
	r.POST("/api/notify", notifyHandler.Receive)
	r.GET("/callback", handlers.ReturnRedirect)

	secureCookie := strings.HasPrefix(strings.ToLower(opts.Epay.BaseURL), "https://")
	checkoutHandler := handlers.NewCheckoutHandler(checkout.NewService(db, opts.Epay), opts.CookieMaxAge, secureCookie)
	var checkoutChain []gin.HandlerFunc
	if opts.CheckoutLimiter != nil {
		checkoutChain = append(checkoutChain, opts.CheckoutLimiter.Middleware())
	}
	checkoutChain = append(checkoutChain, optionalUserAuthMiddleware(db, opts.JWT))
	r.Group("", checkoutChain...).POST("/checkout", checkoutHandler.Submit)

	front := r.Group("/v0/front")
	front.GET("/config", handlers.GetPublicConfig)

	productHandler := handlers.NewProductHandler(db, opts.StockCache)
	front.GET("/products", productHandler.List)

	front.Group("", checkoutChain...).POST("/checkout", checkoutHandler.Create)

	orderHandler := handlers.NewOrderHandler(db)
	front.GET("/orders/:order_id", optionalUserAuthMiddleware(db, opts.JWT), orderHandler.Get)

	authed := front.Group("")
	authed.Use(userAuthMiddleware(db, opts.JWT))
	authed.GET("/orders", orderHandler.ListMine)

	notificationHandler := handlers.NewNotificationHandler(db)
	authed.GET("/notifications", notificationHandler.List)
	authed.POST("/notifications/:id/read", notificationHandler.MarkRead)
}

// userAuthMiddleware requires a valid user JWT.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if errUser := attachUser(c, db, claims); errUser != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
			return
		}
		c.Next()
	}
}

// optionalUserAuthMiddleware attaches the user when a valid JWT is present
// and otherwise lets the request through anonymously.
func optionalUserAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			c.Next()
			return
		}
		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.Next()
			return
		}
		if errUser := attachUser(c, db, claims); errUser != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
			return
		}
		c.Next()
	}
}

// attachUser records the user in the directory so broadcasts can reach them,
// then stores the identity in the gin context.
func attachUser(c *gin.Context, db *gorm.DB, claims *security.UserClaims) error {
	username := strings.TrimSpace(claims.Username)
	if username == "" {
		username = claims.UserID
	}
	if errUpsert := accounts.UpsertUser(c.Request.Context(), db, models.User{
		UserID:   claims.UserID,
		Username: username,
		Name:     strings.TrimSpace(claims.Name),
		Email:    strings.TrimSpace(claims.Email),
	}); errUpsert != nil {
		log.WithError(errUpsert).WithField("user_id", claims.UserID).Error("front auth: upsert user failed")
		return errUpsert
	}
	c.Set(handlers.UserIDKey, claims.UserID)
	c.Set(handlers.UsernameKey, username)
	c.Set(handlers.UserEmailKey, strings.TrimSpace(claims.Email))
	return nil
}
