package settings

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot is an immutable copy of the settings table.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var current atomic.Pointer[snapshot]

// Store replaces the in-memory settings. Blank keys are dropped and values copied.
func Store(updatedAt time.Time, values map[string]json.RawMessage) {
	next := &snapshot{updatedAt: updatedAt.UTC(), values: make(map[string]json.RawMessage, len(values))}
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next.values[key] = bytes.Clone(v)
	}
	current.Store(next)
}

// UpdatedAt returns the newest update time among stored settings.
func UpdatedAt() time.Time {
	if s := current.Load(); s != nil {
		return s.updatedAt
	}
	return time.Time{}
}

// Value returns a copy of the raw JSON stored under key.
func Value(key string) (json.RawMessage, bool) {
	s := current.Load()
	if s == nil {
		return nil, false
	}
	v, ok := s.values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}
