package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/broadcast"
	apihttp "github.com/ldcshop/storefront/internal/http"
	"github.com/ldcshop/storefront/internal/models"
	log "github.com/sirupsen/logrus"
)

// MessageHandler serves admin broadcast endpoints.
type MessageHandler struct {
	svc *broadcast.Service
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(svc *broadcast.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// sendMessageRequest is the broadcast payload.
type sendMessageRequest struct {
	TargetType  string `json:"targetType"`
	TargetValue string `json:"targetValue"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

// Send broadcasts a message. Rule violations are reported as
// {success:false, error:<code>} with status 200.
func (h *MessageHandler) Send(c *gin.Context) {
	var body sendMessageRequest
	if msg, ok := apihttp.BindJSON(c, &body); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
		return
	}

	count, errSend := h.svc.Send(c.Request.Context(), broadcast.Message{
		TargetType:  body.TargetType,
		TargetValue: body.TargetValue,
		Title:       body.Title,
		Body:        body.Body,
		Sender:      adminUsername(c),
	})
	if errSend != nil {
		code := broadcast.ErrorCode(errSend)
		if errors.Is(errSend, broadcast.ErrValidation) ||
			errors.Is(errSend, broadcast.ErrInvalidTarget) ||
			errors.Is(errSend, broadcast.ErrUserNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": code})
			return
		}
		log.WithError(errSend).Error("admin messages: send failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}

// Delete removes a broadcast record without retracting notifications.
// Deleting an id that is already gone still succeeds.
func (h *MessageHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid id"})
		return
	}
	if errDelete := h.svc.Delete(c.Request.Context(), id); errDelete != nil && !errors.Is(errDelete, broadcast.ErrMessageNotFound) {
		log.WithError(errDelete).Error("admin messages: delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// List returns sent messages, newest first.
func (h *MessageHandler) List(c *gin.Context) {
	page, errList := h.svc.List(c.Request.Context(), apihttp.QueryInt(c, "page", 1), apihttp.QueryInt(c, "page_size", 20))
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list messages failed"})
		return
	}
	out := make([]gin.H, 0, len(page.Messages))
	for i := range page.Messages {
		out = append(out, formatMessage(&page.Messages[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":  out,
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

func formatMessage(m *models.AdminMessage) gin.H {
	return gin.H{
		"id":          m.ID,
		"targetType":  m.TargetType,
		"targetValue": m.TargetValue,
		"title":       m.Title,
		"body":        m.Body,
		"sender":      m.Sender,
		"created_at":  m.CreatedAt,
	}
}
