package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/checkout"
)

// Context keys set by the front auth middleware.
const (
	UserIDKey    = "userID"
	UsernameKey  = "username"
	UserEmailKey = "userEmail"
)

// getUserID extracts the signed-in user's ID, or "" for anonymous requests.
func getUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// currentBuyer returns the signed-in customer for order attribution.
func currentBuyer(c *gin.Context) *checkout.Buyer {
	userID := getUserID(c)
	if userID == "" {
		return nil
	}
	return &checkout.Buyer{
		UserID:   userID,
		Username: c.GetString(UsernameKey),
		Email:    c.GetString(UserEmailKey),
	}
}
