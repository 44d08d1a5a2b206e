package security

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"

	"github.com/pquerna/otp/totp"
)

// TOTPIssuer names the account in authenticator apps.
const TOTPIssuer = "Storefront"

// TOTPEnrollment is a freshly generated, not yet confirmed TOTP secret.
type TOTPEnrollment struct {
	Secret  string `json:"secret"`
	URL     string `json:"otpauth_url"`
	QRImage string `json:"qr_image,omitempty"`
}

// GenerateTOTP creates a new secret for account. The QR image is a PNG data
// URL and is left empty when rendering fails.
func GenerateTOTP(account string) (*TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: TOTPIssuer, AccountName: account})
	if err != nil {
		return nil, err
	}
	out := &TOTPEnrollment{Secret: key.Secret(), URL: key.URL()}
	if img, errImage := key.Image(220, 220); errImage == nil {
		var buf bytes.Buffer
		if errEncode := png.Encode(&buf, img); errEncode == nil {
			out.QRImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	return out, nil
}

// ValidateTOTP reports whether code is current for secret.
func ValidateTOTP(code, secret string) bool {
	code = strings.TrimSpace(code)
	if code == "" || strings.TrimSpace(secret) == "" {
		return false
	}
	return totp.Validate(code, secret)
}
