package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/broadcast"
	apihttp "github.com/ldcshop/storefront/internal/http"
	"gorm.io/gorm"
)

// NotificationHandler serves the signed-in user's notifications.
type NotificationHandler struct {
	db *gorm.DB
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// List returns recent notifications with unread count.
func (h *NotificationHandler) List(c *gin.Context) {
	page, errList := broadcast.ListForUser(c.Request.Context(), h.db, getUserID(c), apihttp.QueryInt(c, "limit", 20))
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list notifications failed"})
		return
	}
	out := make([]gin.H, 0, len(page.Notifications))
	for _, n := range page.Notifications {
		out = append(out, gin.H{
			"id":          n.ID,
			"type":        n.Type,
			"title_key":   n.TitleKey,
			"content_key": n.ContentKey,
			"data":        n.Data,
			"is_read":     n.IsRead,
			"created_at":  n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out, "total": page.Total, "unread": page.Unread})
}

// MarkRead flags one notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if errMark := broadcast.MarkRead(c.Request.Context(), h.db, getUserID(c), id); errMark != nil {
		if errors.Is(errMark, broadcast.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update notification failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
