package epay

import (
	"errors"
	"strings"
)

// Gateway constants shared by outbound requests and inbound callbacks.
const (
	// SignTypeMD5 is the only signature type the gateway accepts.
	SignTypeMD5 = "MD5"
	// PayTypeEpay is the payment method sent with checkout requests.
	PayTypeEpay = "epay"
	// TradeStatusSuccess marks a completed payment in callbacks.
	TradeStatusSuccess = "TRADE_SUCCESS"

	// DefaultPayURL is the gateway's form submission endpoint.
	DefaultPayURL = "https://credit.linux.do/epay/pay/submit.php"
	// DefaultRefundURL is the gateway's merchant API endpoint.
	DefaultRefundURL = "https://credit.linux.do/epay/api.php"

	notifyPath = "/api/notify"
	returnPath = "/callback"
)

// ErrMissingCredentials indicates the merchant id or key is not configured.
var ErrMissingCredentials = errors.New("epay: merchant id and key are required")

// Config holds the merchant credentials and endpoints for the gateway.
type Config struct {
	MerchantID  string // Gateway merchant id (pid).
	MerchantKey string // Shared signing secret.
	PayURL      string // Checkout form target.
	RefundURL   string // Refund form target.
	BaseURL     string // Public base URL of this storefront.
}

// Validate checks that signing is possible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.MerchantID) == "" || strings.TrimSpace(c.MerchantKey) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// NotifyURL is the absolute callback endpoint given to the gateway.
func (c Config) NotifyURL() string {
	return strings.TrimRight(c.BaseURL, "/") + notifyPath
}

// ReturnURL is where the gateway sends the buyer's browser after paying.
func (c Config) ReturnURL() string {
	return strings.TrimRight(c.BaseURL, "/") + returnPath
}

func (c Config) payURL() string {
	if strings.TrimSpace(c.PayURL) == "" {
		return DefaultPayURL
	}
	return c.PayURL
}

func (c Config) refundURL() string {
	if strings.TrimSpace(c.RefundURL) == "" {
		return DefaultRefundURL
	}
	return c.RefundURL
}
