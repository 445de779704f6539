package spark

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Cache is a content-addressed disk cache for History Server responses.
// Keys are hashed with SHA-256 so arbitrary URLs map to flat filenames.
// Historical application data never changes, so entries have no TTL.
type Cache struct {
	dir string
}

// DefaultCacheDir returns the per-user cache location
// (~/.cache/sparkinsight on Linux, the platform cache dir elsewhere).
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(base, "sparkinsight"), nil
}

// NewCache creates a disk cache rooted at dir, creating it if needed.
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		var err error
		dir, err = DefaultCacheDir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get returns the cached body for key, if present.
func (c *Cache) Get(key string) ([]byte, bool) {
	body, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	return body, true
}

// Put stores body under key. Writes go through a temp file so a crashed
// process never leaves a truncated entry behind.
func (c *Cache) Put(key string, body []byte) error {
	target := c.path(key)
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache entry: %w", err)
	}
	return os.Rename(tmp.Name(), target)
}

// Clear removes all cache entries and reports how many were deleted.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("removing cache entry %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
