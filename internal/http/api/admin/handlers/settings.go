package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingHandler serves the runtime settings endpoints.
type SettingHandler struct {
	db *gorm.DB
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{db: db}
}

// List returns every known setting with its effective value.
func (h *SettingHandler) List(c *gin.Context) {
	keys := append([]string{}, settings.Known...)
	sort.Strings(keys)
	out := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		value, stored := settings.Value(key)
		out = append(out, gin.H{"key": key, "value": value, "stored": stored})
	}
	c.JSON(http.StatusOK, gin.H{
		"settings":   out,
		"updated_at": settings.UpdatedAt(),
	})
}

// updateSettingRequest wraps the raw JSON value to store.
type updateSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// Update stores one setting and refreshes the in-memory snapshot.
func (h *SettingHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if !settings.IsKnown(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown setting"})
		return
	}
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body.Value) == 0 || !json.Valid(body.Value) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
		return
	}
	if errSave := settings.Save(c.Request.Context(), h.db, key, body.Value); errSave != nil {
		log.WithError(errSave).WithField("key", key).Error("admin settings: save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save setting failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": body.Value})
}
