package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/config"
	apihttp "github.com/ldcshop/storefront/internal/http"
	permissions "github.com/ldcshop/storefront/internal/http/api/admin/permissions"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an admin by password. Admins with TOTP enabled get
// 403 "mfa required" and must use LoginTOTP instead.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if msg, ok := apihttp.BindJSON(c, &body); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	admin, ok := h.checkPassword(c, body.Username, body.Password)
	if !ok {
		return
	}
	if admin.TOTPSecret != "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "mfa required", "mfa": "totp"})
		return
	}
	h.respondWithAdminToken(c, admin)
}

type loginTOTPRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// LoginTOTP authenticates an admin by password plus a current TOTP code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTOTPRequest
	if msg, ok := apihttp.BindJSON(c, &body); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	admin, ok := h.checkPassword(c, body.Username, body.Password)
	if !ok {
		return
	}
	if admin.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp not enabled"})
		return
	}
	if !security.ValidateTOTP(body.Code, admin.TOTPSecret) {
		log.WithField("username", admin.Username).Warn("admin login: invalid totp code")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	h.respondWithAdminToken(c, admin)
}

// checkPassword loads an active admin and verifies the password, writing the
// error response itself when it fails. Hashes with an outdated cost are
// upgraded in place.
func (h *AuthHandler) checkPassword(c *gin.Context, rawUsername, rawPassword string) (*models.Admin, bool) {
	username := strings.TrimSpace(rawUsername)
	password := strings.TrimSpace(rawPassword)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return nil, false
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return nil, false
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		return nil, false
	}
	if !security.CheckPassword(admin.Password, password) {
		log.WithField("username", username).Warn("admin login: invalid password")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return nil, false
	}

	if security.NeedsRehash(admin.Password) {
		if hash, errHash := security.HashPassword(password); errHash == nil {
			if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
				Where("id = ?", admin.ID).Update("password", hash).Error; errUpdate != nil {
				log.WithError(errUpdate).WithField("username", username).Warn("admin login: rehash failed")
			}
		}
	}
	return &admin, true
}

func (h *AuthHandler) respondWithAdminToken(c *gin.Context, admin *models.Admin) {
	token, errToken := security.GenerateAdminToken(h.jwtCfg.Secret, admin.ID, admin.Username, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":             admin.ID,
			"username":       admin.Username,
			"permissions":    permissions.ParsePermissions(admin.Permissions),
			"is_super_admin": admin.IsSuperAdmin,
			"mfa_enabled":    admin.TOTPSecret != "",
		},
	})
}
