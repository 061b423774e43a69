// Package themes holds the current theme list shared by the dialog and
// batch-planning flows. It replaces process-wide mutable state with an
// explicitly owned cache passed to its consumers.
package themes

import "sync"

// MaxThemes caps the number of themes the cache will hold.
const MaxThemes = 35

// Cache is a concurrency-safe theme list with process lifetime.
type Cache struct {
	mu     sync.RWMutex
	themes []string
}

// NewCache creates an empty theme cache.
func NewCache() *Cache {
	return &Cache{}
}

// Set replaces the whole theme list, truncated to MaxThemes.
func (c *Cache) Set(themes []string) {
	if len(themes) > MaxThemes {
		themes = themes[:MaxThemes]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.themes = append([]string(nil), themes...)
}

// All returns a copy of the current theme list.
func (c *Cache) All() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.themes...)
}

// Add appends one theme. Reports false when the cache is full.
func (c *Cache) Add(theme string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.themes) >= MaxThemes {
		return false
	}
	c.themes = append(c.themes, theme)
	return true
}

// Remove deletes the theme at index. Reports false for an invalid index.
func (c *Cache) Remove(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.themes) {
		return false
	}
	c.themes = append(c.themes[:index], c.themes[index+1:]...)
	return true
}

// Len returns the number of cached themes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.themes)
}
