package handlers

import "github.com/gin-gonic/gin"

// AdminUsernameKey is the gin context key holding the authenticated admin's name.
const AdminUsernameKey = "adminUsername"

// adminUsername returns the authenticated admin's name, or "" when unknown.
func adminUsername(c *gin.Context) string {
	return c.GetString(AdminUsernameKey)
}
