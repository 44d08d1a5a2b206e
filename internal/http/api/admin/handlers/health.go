package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz reports whether the database answers a ping within a short deadline.
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := "up"
	if !h.databaseUp(c.Request.Context()) {
		status = "down"
	}
	code := http.StatusOK
	if status != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"ok": status == "up", "database": status})
}

func (h *HealthHandler) databaseUp(ctx context.Context) bool {
	sqlDB, err := h.db.DB()
	if err != nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	return sqlDB.PingContext(pingCtx) == nil
}
