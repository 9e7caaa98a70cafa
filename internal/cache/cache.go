package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Entry is one cached payload.
type Entry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Options configures a cache.
type Options struct {
	Enabled bool
	Dir     string
	TTL     time.Duration
}

// Cache is a directory of JSON entries. A disabled cache misses every Get and
// ignores every Put.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	now     func() time.Time
}

// New creates a cache, creating its directory when enabled. An empty Dir uses
// the default cache directory.
func New(opts Options) (*Cache, error) {
	c := &Cache{ttl: opts.TTL, enabled: opts.Enabled, now: time.Now, dir: opts.Dir}
	if !opts.Enabled {
		return c, nil
	}
	if c.dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		c.dir = d
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return c, nil
}

// Get decodes the entry for key into v. It reports false on a miss, an
// expired entry or an undecodable entry.
func (c *Cache) Get(key string, v any) bool {
	if !c.enabled {
		return false
	}
	path := c.entryPath(key)
	entry, err := readEntry(path)
	if err != nil {
		return false
	}
	if c.expired(entry) {
		os.Remove(path)
		return false
	}
	return json.Unmarshal(entry.Payload, v) == nil
}

// Put stores v under key. The file is written atomically.
func (c *Cache) Put(key string, v any) error {
	if !c.enabled {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling cache payload: %w", err)
	}
	data, err := json.Marshal(Entry{Key: Key(key), Payload: payload, CreatedAt: c.now()})
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return os.Rename(tmp.Name(), c.entryPath(key))
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	removed := 0
	err := c.walk(func(path string, _ fs.FileInfo) {
		if os.Remove(path) == nil {
			removed++
		}
	})
	return removed, err
}

// Stats describes the cache contents.
type Stats struct {
	Dir        string `json:"dir"`
	Enabled    bool   `json:"enabled"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Expired    int    `json:"expired"`
}

// Stats scans the cache directory.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Dir: c.dir, Enabled: c.enabled}
	err := c.walk(func(path string, info fs.FileInfo) {
		stats.Entries++
		stats.TotalBytes += info.Size()
		if entry, err := readEntry(path); err == nil && c.expired(entry) {
			stats.Expired++
		}
	})
	return stats, err
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool { return c.enabled }

// Key hashes key material into an entry name.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.CreatedAt) > c.ttl
}

func (c *Cache) walk(fn func(path string, info fs.FileInfo)) error {
	if !c.enabled || c.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		fn(filepath.Join(c.dir, e.Name()), info)
	}
	return nil
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, Key(key)+".json")
}

// DefaultDir returns the OS-appropriate cache directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "prgate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "prgate"), nil
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "prgate", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "prgate", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "prgate"), nil
	}
}
