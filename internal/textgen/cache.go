package textgen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Cache stores completion responses on disk so repeated prompts skip the
// backend entirely. Entries expire after the configured TTL; a zero TTL
// means entries never expire.
type Cache struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger

	now func() time.Time // injectable for tests
}

// cacheEntry is the on-disk shape of one cached response.
type cacheEntry struct {
	Response  string     `json:"response"`
	CachedAt  time.Time  `json:"cached_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NewCache creates a response cache rooted at dir.
func NewCache(dir string, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{dir: dir, ttl: ttl, logger: logger, now: time.Now}
}

// Get returns the cached response for key, if present and not expired.
// Expired and unreadable entries are removed on the way out.
func (c *Cache) Get(key string) (string, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("removing unreadable cache entry",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		os.Remove(path)
		return "", false
	}

	if entry.ExpiresAt != nil && c.now().After(*entry.ExpiresAt) {
		os.Remove(path)
		return "", false
	}
	return entry.Response, true
}

// Set stores a response under key. A write failure is logged, not returned:
// the completion already succeeded and the caller must not lose it.
func (c *Cache) Set(key, response string) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("failed to create cache directory",
			slog.String("dir", c.dir),
			slog.String("error", err.Error()),
		)
		return
	}

	entry := cacheEntry{Response: response, CachedAt: c.now()}
	if c.ttl > 0 {
		expires := entry.CachedAt.Add(c.ttl)
		entry.ExpiresAt = &expires
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		c.logger.Warn("failed to write cache entry",
			slog.String("path", c.path(key)),
			slog.String("error", err.Error()),
		)
	}
}

// ClearExpired removes expired and unreadable entries, returning the count.
func (c *Cache) ClearExpired() int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}

	removed := 0
	now := c.now()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(c.dir, e.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry cacheEntry
		if err := json.Unmarshal(data, &entry); err == nil {
			if entry.ExpiresAt == nil || now.Before(*entry.ExpiresAt) {
				continue
			}
		}
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed
}

// path maps a key to its cache file. Keys are hashed so arbitrary prompt
// text never leaks into filenames.
func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
