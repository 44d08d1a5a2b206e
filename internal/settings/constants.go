package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the storefront display name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback display name.
	DefaultSiteName = "LDC Shop"
	// NotifyLogRetentionDaysKey controls how long payment callback logs are kept.
	NotifyLogRetentionDaysKey = "NOTIFY_LOG_RETENTION_DAYS"
	// DefaultNotifyLogRetentionDays is the fallback retention; zero or less disables cleanup.
	DefaultNotifyLogRetentionDays = 30
)

// Known lists the keys administrators may edit.
var Known = []string{SiteNameKey, NotifyLogRetentionDaysKey}

// IsKnown reports whether key is an editable setting.
func IsKnown(key string) bool {
	for _, k := range Known {
		if k == key {
			return true
		}
	}
	return false
}
