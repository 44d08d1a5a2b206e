package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/ldcshop/storefront/internal/notify"
	log "github.com/sirupsen/logrus"
)

// Plain-text replies expected by the payment gateway.
const (
	notifyProbeText = "Notify endpoint is working. Use POST for callbacks."
	notifySuccess   = "success"
	notifyFail      = "fail"
	notifyError     = "error"

	notifyMaxMemory = 1 << 20
)

// NotifyHandler receives payment gateway callbacks.
type NotifyHandler struct {
	svc *notify.Service
}

// NewNotifyHandler constructs a NotifyHandler.
func NewNotifyHandler(svc *notify.Service) *NotifyHandler {
	return &NotifyHandler{svc: svc}
}

// Probe answers GET requests so operators can check reachability.
func (h *NotifyHandler) Probe(c *gin.Context) {
	c.String(http.StatusOK, notifyProbeText)
}

// Receive verifies and applies one callback. Only body fields are signed by
// the gateway, so query parameters on the notify URL are ignored.
func (h *NotifyHandler) Receive(c *gin.Context) {
	var errParse error
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		errParse = c.Request.ParseMultipartForm(notifyMaxMemory)
	} else {
		errParse = c.Request.ParseForm()
	}
	if errParse != nil {
		log.WithError(errParse).Warn("notify: unparsable callback")
		c.String(http.StatusBadRequest, notifyFail)
		return
	}
	fields := make(map[string]string, len(c.Request.PostForm))
	for key := range c.Request.PostForm {
		fields[key] = c.Request.PostForm.Get(key)
	}

	result, errHandle := h.svc.Handle(c.Request.Context(), fields, c.ClientIP())
	switch {
	case errHandle != nil:
		c.String(http.StatusInternalServerError, notifyError)
	case !result.Outcome.Acknowledged():
		c.String(http.StatusBadRequest, notifyFail)
	default:
		c.String(http.StatusOK, notifySuccess)
	}
}
