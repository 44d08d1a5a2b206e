// Package permissions defines the admin route permission catalogue.
package permissions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// Definition describes one permission-guarded admin route.
type Definition struct {
	Key    string `json:"key"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Label  string `json:"label"`
	Module string `json:"module"`
}

var definitions = []Definition{
	newDefinition(http.MethodGet, "/v0/admin/messages", "List messages", "Messages"),
	newDefinition(http.MethodPost, "/v0/admin/messages", "Send message", "Messages"),
	newDefinition(http.MethodDelete, "/v0/admin/messages/:id", "Delete message", "Messages"),

	newDefinition(http.MethodGet, "/v0/admin/products", "List products", "Products"),
	newDefinition(http.MethodPost, "/v0/admin/products", "Create product", "Products"),
	newDefinition(http.MethodPost, "/v0/admin/products/:id/toggle", "Toggle product", "Products"),
	newDefinition(http.MethodGet, "/v0/admin/products/:id/cards", "List cards", "Products"),
	newDefinition(http.MethodPost, "/v0/admin/products/:id/cards", "Import cards", "Products"),

	newDefinition(http.MethodGet, "/v0/admin/orders", "List orders", "Orders"),
	newDefinition(http.MethodGet, "/v0/admin/orders/:order_id/refund-params", "Build refund request", "Orders"),
	newDefinition(http.MethodPost, "/v0/admin/orders/:order_id/refunded", "Mark order refunded", "Orders"),
	newDefinition(http.MethodPost, "/v0/admin/orders/:order_id/fulfill", "Fulfil paid order", "Orders"),

	newDefinition(http.MethodGet, "/v0/admin/settings", "List settings", "Settings"),
	newDefinition(http.MethodPut, "/v0/admin/settings/:key", "Update setting", "Settings"),

	newDefinition(http.MethodGet, "/v0/admin/admins", "List admins", "Admins"),
	newDefinition(http.MethodPost, "/v0/admin/admins", "Create admin", "Admins"),
	newDefinition(http.MethodPost, "/v0/admin/admins/:id/disable", "Disable admin", "Admins"),
	newDefinition(http.MethodPost, "/v0/admin/admins/:id/enable", "Enable admin", "Admins"),
	newDefinition(http.MethodPut, "/v0/admin/admins/:id/permissions", "Set admin permissions", "Admins"),

	newDefinition(http.MethodGet, "/v0/admin/permissions", "List permissions", "Admins"),
}

func newDefinition(method, path, label, module string) Definition {
	return Definition{Key: Key(method, path), Method: method, Path: path, Label: label, Module: module}
}

// Key builds the permission key for a method and route pattern.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns a copy of all permission definitions.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap returns definitions keyed by permission key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}

// ParsePermissions decodes a stored permission list; malformed data yields none.
func ParsePermissions(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var list []string
	if errUnmarshal := json.Unmarshal(raw, &list); errUnmarshal != nil {
		return []string{}
	}
	return NormalizePermissions(list)
}

// NormalizePermissions trims, dedupes and sorts permission keys.
func NormalizePermissions(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// ValidatePermissions rejects keys that are not defined.
func ValidatePermissions(list []string) error {
	known := DefinitionMap()
	for _, item := range list {
		if _, ok := known[item]; !ok {
			return fmt.Errorf("unknown permission %q", item)
		}
	}
	return nil
}

// MarshalPermissions encodes a permission list for storage.
func MarshalPermissions(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

// HasPermission reports whether key is granted.
func HasPermission(granted []string, key string) bool {
	for _, item := range granted {
		if item == key {
			return true
		}
	}
	return false
}
