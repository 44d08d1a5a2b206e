package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxOrderIDLen bounds identifiers accepted from the return redirect.
const maxOrderIDLen = 64

// ReturnRedirect sends the buyer's browser to their order page after paying.
// The order id comes from the gateway's query string, else the pending-order
// cookie; without either the buyer lands on the home page.
func ReturnRedirect(c *gin.Context) {
	orderID := strings.TrimSpace(c.Query("out_trade_no"))
	if !validOrderID(orderID) {
		cookie, errCookie := c.Cookie(PendingOrderCookie)
		orderID = ""
		if errCookie == nil && validOrderID(strings.TrimSpace(cookie)) {
			orderID = strings.TrimSpace(cookie)
		}
	}
	if orderID == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(PendingOrderCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/order/"+url.PathEscape(orderID))
}

// validOrderID accepts the identifier alphabet used for order ids.
func validOrderID(id string) bool {
	if id == "" || len(id) > maxOrderIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
