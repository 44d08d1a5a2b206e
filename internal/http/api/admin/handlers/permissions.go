package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	permissions "github.com/ldcshop/storefront/internal/http/api/admin/permissions"
)

// PermissionHandler lists the grantable admin permissions.
type PermissionHandler struct{}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler() *PermissionHandler {
	return &PermissionHandler{}
}

// List returns permission definitions grouped by module, each flagged with
// whether the calling admin holds it.
func (h *PermissionHandler) List(c *gin.Context) {
	granted, _ := c.Get("adminPermissions")
	held, _ := granted.([]string)
	super := c.GetBool("adminIsSuperAdmin")

	modules := make([]string, 0)
	grouped := make(map[string][]gin.H)
	for _, def := range permissions.Definitions() {
		if _, seen := grouped[def.Module]; !seen {
			modules = append(modules, def.Module)
		}
		grouped[def.Module] = append(grouped[def.Module], gin.H{
			"key":     def.Key,
			"label":   def.Label,
			"granted": super || permissions.HasPermission(held, def.Key),
		})
	}

	out := make([]gin.H, 0, len(modules))
	for _, module := range modules {
		out = append(out, gin.H{"module": module, "permissions": grouped[module]})
	}
	c.JSON(http.StatusOK, gin.H{"modules": out})
}
