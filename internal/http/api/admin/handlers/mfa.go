package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apihttp "github.com/ldcshop/storefront/internal/http"
	"github.com/ldcshop/storefront/internal/models"
	"github.com/ldcshop/storefront/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const pendingTOTPTTL = 10 * time.Minute

type pendingSecret struct {
	secret  string
	expires time.Time
}

// pendingTOTP holds generated secrets until the admin confirms a code.
type pendingTOTP struct {
	mu    sync.Mutex
	items map[uint64]pendingSecret
}

func (p *pendingTOTP) set(adminID uint64, secret string, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[adminID] = pendingSecret{secret: secret, expires: now.Add(pendingTOTPTTL)}
}

func (p *pendingTOTP) get(adminID uint64, now time.Time) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.items[adminID]
	if !ok {
		return "", false
	}
	if now.After(entry.expires) {
		delete(p.items, adminID)
		return "", false
	}
	return entry.secret, true
}

func (p *pendingTOTP) delete(adminID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, adminID)
}

// MFAHandler lets an authenticated admin manage their own TOTP factor.
type MFAHandler struct {
	db      *gorm.DB
	pending *pendingTOTP
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db, pending: &pendingTOTP{items: make(map[uint64]pendingSecret)}}
}

// Status reports whether the calling admin has TOTP enabled.
func (h *MFAHandler) Status(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": admin.TOTPSecret != ""})
}

// PrepareTOTP generates a secret to be confirmed with ConfirmTOTP.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	if admin.TOTPSecret != "" {
		c.JSON(http.StatusConflict, gin.H{"error": "totp already enabled"})
		return
	}
	enrollment, errGenerate := security.GenerateTOTP(admin.Username)
	if errGenerate != nil {
		log.WithError(errGenerate).Error("admin mfa: generate totp secret")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}
	h.pending.set(admin.ID, enrollment.Secret, time.Now())
	c.JSON(http.StatusOK, enrollment)
}

type totpCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// ConfirmTOTP enables the pending secret once the admin proves possession.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	var body totpCodeRequest
	if msg, ok := apihttp.BindJSON(c, &body); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	adminID := c.GetUint64("adminID")
	secret, ok := h.pending.get(adminID, time.Now())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp setup expired"})
		return
	}
	if !security.ValidateTOTP(body.Code, secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	if errUpdate := h.setSecret(c, adminID, secret); errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.pending.delete(adminID)
	log.WithField("admin", adminUsername(c)).Info("admin mfa: totp enabled")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTOTP removes the admin's TOTP factor; a current code is required.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	var body totpCodeRequest
	if msg, ok := apihttp.BindJSON(c, &body); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	admin, ok := h.currentAdmin(c)
	if !ok {
		return
	}
	if admin.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp not enabled"})
		return
	}
	if !security.ValidateTOTP(body.Code, admin.TOTPSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	if errUpdate := h.setSecret(c, admin.ID, ""); errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.pending.delete(admin.ID)
	log.WithField("admin", admin.Username).Info("admin mfa: totp disabled")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *MFAHandler) currentAdmin(c *gin.Context) (*models.Admin, bool) {
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, c.GetUint64("adminID")).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return nil, false
	}
	return &admin, true
}

func (h *MFAHandler) setSecret(c *gin.Context, adminID uint64, secret string) error {
	return h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()}).Error
}
