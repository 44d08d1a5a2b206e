package epay

import "github.com/shopspring/decimal"

// FormRequest is a signed parameter set to be auto-submitted as an HTML form.
type FormRequest struct {
	URL    string            `json:"url"`
	Params map[string]string `json:"params"`
}

// CheckoutRequest builds the signed form that sends a buyer to the gateway.
func (c Config) CheckoutRequest(orderID, productName string, amount decimal.Decimal) FormRequest {
	params := map[string]string{
		"pid":          c.MerchantID,
		"type":         PayTypeEpay,
		"out_trade_no": orderID,
		"notify_url":   c.NotifyURL(),
		"return_url":   c.ReturnURL(),
		"name":         productName,
		"money":        FormatAmount(amount),
		SignTypeKey:    SignTypeMD5,
	}
	params[SignKey] = Sign(params, c.MerchantKey)
	return FormRequest{URL: c.payURL(), Params: params}
}

// RefundRequest builds the signed form an administrator submits to refund a trade.
func (c Config) RefundRequest(orderID, tradeNo string, amount decimal.Decimal) FormRequest {
	params := map[string]string{
		"act":          "refund",
		"pid":          c.MerchantID,
		"trade_no":     tradeNo,
		"out_trade_no": orderID,
		"money":        FormatAmount(amount),
		SignTypeKey:    SignTypeMD5,
	}
	params[SignKey] = Sign(params, c.MerchantKey)
	return FormRequest{URL: c.refundURL(), Params: params}
}

// FormatAmount renders an amount with exactly two decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
