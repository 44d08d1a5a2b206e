package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ldcshop/storefront/internal/checkout"
	"github.com/ldcshop/storefront/internal/epay"
	apihttp "github.com/ldcshop/storefront/internal/http"
	"github.com/ldcshop/storefront/internal/settings"
	"github.com/ldcshop/storefront/internal/webui"
	log "github.com/sirupsen/logrus"
)

// PendingOrderCookie remembers the last created order for the return redirect.
const PendingOrderCookie = "ldc_pending_order"

// CheckoutHandler creates orders and hands buyers to the gateway.
type CheckoutHandler struct {
	svc          *checkout.Service
	cookieMaxAge int
	secureCookie bool
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(svc *checkout.Service, cookieMaxAge int, secureCookie bool) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, cookieMaxAge: cookieMaxAge, secureCookie: secureCookie}
}

// checkoutRequest is the checkout payload.
type checkoutRequest struct {
	ProductID string `json:"product_id" form:"product_id" binding:"required,max=64"`
	Email     string `json:"email" form:"email" binding:"omitempty,email,max=255"`
}

// checkoutResponse carries the signed form for the client to auto-submit.
type checkoutResponse struct {
	OrderID string            `json:"order_id"`
	URL     string            `json:"url"`
	Params  map[string]string `json:"params"`
}

// Create places a pending order and returns the signed gateway form as JSON.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var body checkoutRequest
	if msg, ok := apihttp.BindJSON(c, &body); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	result, status, msg := h.create(c, body)
	if result == nil {
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, checkoutResponse{
		OrderID: result.OrderID,
		URL:     result.Form.URL,
		Params:  result.Form.Params,
	})
}

// Submit handles a plain HTML form post and answers with a page that
// auto-submits the signed form to the gateway.
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var body checkoutRequest
	if errBind := c.ShouldBind(&body); errBind != nil {
		renderError(c, http.StatusBadRequest, apihttp.BindErrorMessage(errBind))
		return
	}
	result, status, msg := h.create(c, body)
	if result == nil {
		renderError(c, status, msg)
		return
	}
	c.HTML(http.StatusOK, webui.RedirectPage, gin.H{
		"SiteName": settings.SiteName(),
		"OrderID":  result.OrderID,
		"URL":      result.Form.URL,
		"Params":   result.Form.Params,
	})
}

func (h *CheckoutHandler) create(c *gin.Context, body checkoutRequest) (*checkout.Result, int, string) {
	result, errCreate := h.svc.CreateOrder(c.Request.Context(), checkout.Request{
		ProductID: strings.TrimSpace(body.ProductID),
		Email:     strings.TrimSpace(body.Email),
		Buyer:     currentBuyer(c),
	})
	if errCreate != nil {
		switch {
		case errors.Is(errCreate, checkout.ErrProductNotFound):
			return nil, http.StatusNotFound, "product not found"
		case errors.Is(errCreate, checkout.ErrProductInactive):
			return nil, http.StatusNotFound, "product not available"
		case errors.Is(errCreate, checkout.ErrOutOfStock):
			return nil, http.StatusConflict, "out of stock"
		case errors.Is(errCreate, epay.ErrMissingCredentials):
			log.WithError(errCreate).Error("front checkout: gateway not configured")
			return nil, http.StatusInternalServerError, "payment unavailable"
		default:
			log.WithError(errCreate).Error("front checkout: create order failed")
			return nil, http.StatusInternalServerError, "checkout failed"
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(PendingOrderCookie, result.OrderID, h.cookieMaxAge, "/", "", h.secureCookie, true)
	return result, http.StatusOK, ""
}

func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, webui.ErrorPage, gin.H{"SiteName": settings.SiteName(), "Message": message})
}
