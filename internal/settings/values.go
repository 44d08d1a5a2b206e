package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// IntValue returns the integer stored under key, or def when unset or malformed.
func IntValue(key string, def int) int {
	raw, ok := Value(key)
	if !ok {
		return def
	}
	if n, okParse := parseInt(raw); okParse {
		return n
	}
	return def
}

// StringValue returns the non-empty string stored under key, or def.
func StringValue(key string, def string) string {
	raw, ok := Value(key)
	if !ok {
		return def
	}
	raw = bytes.TrimSpace(raw)
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
		return def
	}
	var wrapper struct {
		Value string `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && strings.TrimSpace(wrapper.Value) != "" {
		return strings.TrimSpace(wrapper.Value)
	}
	return def
}

// SiteName returns the configured storefront name.
func SiteName() string {
	return StringValue(SiteNameKey, DefaultSiteName)
}

// NotifyLogRetentionDays returns the callback log retention window in days.
func NotifyLogRetentionDays() int {
	return IntValue(NotifyLogRetentionDaysKey, DefaultNotifyLogRetentionDays)
}

func parseInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil {
		return n, true
	}
	var f float64
	if errUnmarshal := json.Unmarshal(raw, &f); errUnmarshal == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		if parsed, errParse := strconv.Atoi(strings.TrimSpace(s)); errParse == nil {
			return parsed, true
		}
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
		return parseInt(wrapper.Value)
	}
	return 0, false
}
