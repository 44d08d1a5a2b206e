// Package epay implements the payment gateway's signing contract and the
// request parameter sets sent to it.
package epay

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Reserved field names excluded from the signed payload.
const (
	// SignKey carries the hex digest.
	SignKey = "sign"
	// SignTypeKey carries the digest algorithm name.
	SignTypeKey = "sign_type"
)

// Sign computes the gateway signature over fields.
//
// Empty values and the reserved signature fields are dropped, the remaining
// keys are sorted byte-wise, joined as key=value pairs with '&', and the
// secret is appended without a separator before hashing.
func Sign(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for key, value := range fields {
		if key == SignKey || key == SignTypeKey || value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(fields[key])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether provided is exactly the signature of fields.
// The comparison is case-sensitive against the lowercase hex digest.
func Verify(fields map[string]string, provided string, secret string) bool {
	if provided == "" {
		return false
	}
	expected := Sign(fields, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
