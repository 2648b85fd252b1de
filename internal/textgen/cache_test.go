package textgen

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(t.TempDir(), time.Hour, nil)

	_, ok := c.Get("prompt-a")
	assert.False(t, ok)

	c.Set("prompt-a", "a cached reply")
	got, ok := c.Get("prompt-a")
	require.True(t, ok)
	assert.Equal(t, "a cached reply", got)

	_, ok = c.Get("prompt-b")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	now := time.Now()
	c := NewCache(t.TempDir(), time.Minute, nil)
	c.now = func() time.Time { return now }

	c.Set("key", "value")
	_, ok := c.Get("key")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("key")
	assert.False(t, ok)

	// The expired entry was removed, not just skipped.
	entries, err := os.ReadDir(c.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	now := time.Now()
	c := NewCache(t.TempDir(), 0, nil)
	c.now = func() time.Time { return now }

	c.Set("key", "value")
	now = now.Add(1000 * time.Hour)

	got, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestCacheRemovesCorruptedEntry(t *testing.T) {
	c := NewCache(t.TempDir(), time.Hour, nil)
	c.Set("key", "value")

	entries, err := os.ReadDir(c.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	path := filepath.Join(c.dir, entries[0].Name())
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.NoFileExists(t, path)
}

func TestCacheClearExpired(t *testing.T) {
	now := time.Now()
	c := NewCache(t.TempDir(), time.Minute, nil)
	c.now = func() time.Time { return now }

	c.Set("old", "stale")
	now = now.Add(2 * time.Minute)
	c.Set("fresh", "current")

	assert.Equal(t, 1, c.ClearExpired())

	_, ok := c.Get("fresh")
	assert.True(t, ok)
	_, ok = c.Get("old")
	assert.False(t, ok)
}

func TestCacheMissingDir(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "nope"), time.Hour, nil)
	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.Zero(t, c.ClearExpired())
}
