package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	permissions "github.com/ldcshop/storefront/internal/http/api/admin/permissions"
)

// adminPermissionMiddleware allows a request when its route is a defined
// permission held by the admin loaded by adminAuthMiddleware. Super admins
// pass every defined route; undefined routes are always denied.
func adminPermissionMiddleware() gin.HandlerFunc {
	permissionMap := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		key := permissions.Key(c.Request.Method, c.FullPath())
		if _, ok := permissionMap[key]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		if c.GetBool(adminIsSuperAdminKey) {
			c.Next()
			return
		}
		granted, _ := c.Get(adminPermissionsKey)
		list, _ := granted.([]string)
		if !permissions.HasPermission(list, key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}
