package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Summary string `json:"summary"`
	Items   []string
}

func TestCachePutGet(t *testing.T) {
	c, err := New(Options{Enabled: true, Dir: t.TempDir(), TTL: time.Hour})
	require.NoError(t, err)

	var got payload
	if c.Get("k", &got) {
		t.Error("expected cache miss before put")
	}

	want := payload{Summary: "looks good", Items: []string{"a", "b"}}
	require.NoError(t, c.Put("k", want))
	require.True(t, c.Get("k", &got), "expected cache hit after put")
	assert.Equal(t, want, got)
}

func TestCacheTTLExpiration(t *testing.T) {
	c, err := New(Options{Enabled: true, Dir: t.TempDir(), TTL: time.Minute})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Put("k", payload{Summary: "x"}))

	now = now.Add(2 * time.Minute)
	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Expired)

	var got payload
	assert.False(t, c.Get("k", &got), "expected miss after TTL")
	_, err = os.Stat(c.entryPath("k"))
	assert.True(t, os.IsNotExist(err), "expired entry should be removed")
}

func TestCacheDisabled(t *testing.T) {
	c, err := New(Options{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, c.Put("k", payload{}))

	var got payload
	assert.False(t, c.Get("k", &got))
	n, err := c.Clear()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, c.Enabled())
}

func TestCacheClearAndStats(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{Enabled: true, Dir: dir})
	require.NoError(t, err)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Put(k, payload{Summary: k}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Positive(t, stats.TotalBytes)
	assert.Equal(t, dir, stats.Dir)

	n, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err, "non-entry files are untouched")
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	c, err := New(Options{Enabled: true, Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.entryPath("k"), []byte("{not json"), 0o644))

	var got payload
	assert.False(t, c.Get("k", &got))
}

func TestKey(t *testing.T) {
	assert.Len(t, Key("x"), 64)
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestDefaultDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "prgate"), dir)
}
