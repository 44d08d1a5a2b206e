package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/accounts"
	dbutil "github.com/ldcshop/storefront/internal/db"
	apihttp "github.com/ldcshop/storefront/internal/http"
	"github.com/ldcshop/storefront/internal/http/api/admin/permissions"
	"github.com/ldcshop/storefront/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdminHandler manages operator accounts.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

type createAdminRequest struct {
	Username     string   `json:"username" binding:"required,max=191"`
	Password     string   `json:"password" binding:"required,min=8"`
	Permissions  []string `json:"permissions"`
	IsSuperAdmin bool     `json:"is_super_admin"`
}

// Create adds an operator. Only super admins may mint other super admins.
func (h *AdminHandler) Create(c *gin.Context) {
	var body createAdminRequest
	if msg, ok := apihttp.BindJSON(c, &body); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if body.IsSuperAdmin && !c.GetBool("adminIsSuperAdmin") {
		c.JSON(http.StatusForbidden, gin.H{"error": "only super admins can create super admins"})
		return
	}

	admin, errCreate := accounts.CreateAdmin(c.Request.Context(), h.db, accounts.CreateAdminParams{
		Username:     body.Username,
		Password:     body.Password,
		Permissions:  body.Permissions,
		IsSuperAdmin: body.IsSuperAdmin,
	})
	if errCreate != nil {
		writeAccountError(c, errCreate)
		return
	}
	log.WithFields(log.Fields{"admin": admin.Username, "by": adminUsername(c)}).Info("admin accounts: created")
	c.JSON(http.StatusCreated, formatAdmin(admin))
}

// List returns operators, newest first, optionally filtered by username.
func (h *AdminHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Admin{})
	if search := strings.TrimSpace(c.Query("username")); search != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), dbutil.NormalizeLikePattern(h.db, "%"+search+"%"))
	}

	var rows []models.Admin
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list admins failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatAdmin(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"admins": out})
}

// Disable deactivates an operator; their existing tokens stop working.
func (h *AdminHandler) Disable(c *gin.Context) { h.setActive(c, false) }

// Enable reactivates an operator.
func (h *AdminHandler) Enable(c *gin.Context) { h.setActive(c, true) }

func (h *AdminHandler) setActive(c *gin.Context, active bool) {
	id, ok := adminIDParam(c)
	if !ok {
		return
	}
	actor := c.GetUint64("adminID")
	if errSet := accounts.SetAdminActive(c.Request.Context(), h.db, actor, id, active); errSet != nil {
		writeAccountError(c, errSet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type setPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// SetPermissions replaces the permission keys granted to an operator.
func (h *AdminHandler) SetPermissions(c *gin.Context) {
	id, ok := adminIDParam(c)
	if !ok {
		return
	}
	var body setPermissionsRequest
	if msg, okBind := apihttp.BindJSON(c, &body); !okBind {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	granted, errSet := accounts.SetAdminPermissions(c.Request.Context(), h.db, id, body.Permissions)
	if errSet != nil {
		writeAccountError(c, errSet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "permissions": granted})
}

func adminIDParam(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeAccountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, accounts.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username or password"})
	case errors.Is(err, accounts.ErrInvalidPermissions):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions"})
	case errors.Is(err, accounts.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
	case errors.Is(err, accounts.ErrSelfLockout):
		c.JSON(http.StatusConflict, gin.H{"error": "cannot disable your own account"})
	case errors.Is(err, accounts.ErrAdminNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.WithError(err).Error("admin accounts: update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
	}
}

func formatAdmin(admin *models.Admin) gin.H {
	return gin.H{
		"id":             admin.ID,
		"username":       admin.Username,
		"active":         admin.Active,
		"is_super_admin": admin.IsSuperAdmin,
		"mfa_enabled":    admin.TOTPSecret != "",
		"permissions":    permissions.ParsePermissions(admin.Permissions),
		"created_at":     admin.CreatedAt,
		"updated_at":     admin.UpdatedAt,
	}
}
