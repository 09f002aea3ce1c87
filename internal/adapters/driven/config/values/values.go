// Package values holds flat, dot-keyed settings with lenient typed reads.
// Both the TOML and in-memory config stores keep their state here.
package values

import (
	"maps"
	"sync"

	"github.com/samber/lo"
)

// Map is a concurrency-safe key/value set. Typed getters return the zero
// value when a key is missing or holds a value of another kind.
type Map struct {
	mu   sync.RWMutex
	data map[string]any
}

// New returns a Map seeded with a copy of data.
func New(data map[string]any) *Map {
	m := &Map{}
	m.Replace(data)
	return m
}

// Get returns the raw value stored under key.
func (m *Map) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Map) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

// GetInt accepts any integer kind; TOML decodes integers as int64.
func (m *Map) GetInt(key string) int {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	}
	return 0
}

// GetFloat widens integers.
func (m *Map) GetFloat(key string) float64 {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int, int32, int64:
		return float64(m.GetInt(key))
	}
	return 0
}

func (m *Map) GetBool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

// GetStringSlice keeps the string elements of a decoded array.
func (m *Map) GetStringSlice(key string) []string {
	v, _ := m.Get(key)
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		return lo.FilterMap(list, func(item any, _ int) (string, bool) {
			s, ok := item.(string)
			return s, ok
		})
	}
	return nil
}

// Put stores value under key.
func (m *Map) Put(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Replace swaps the whole content for a copy of data.
func (m *Map) Replace(data map[string]any) {
	next := maps.Clone(data)
	if next == nil {
		next = make(map[string]any)
	}
	m.mu.Lock()
	m.data = next
	m.mu.Unlock()
}

// Snapshot returns a copy of the current content.
func (m *Map) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}
