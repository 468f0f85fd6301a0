package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoinhurrell/notegraph/internal/cache"
)

func TestWatcher_InvalidatesCacheOnChange(t *testing.T) {
	vault := t.TempDir()
	notePath := filepath.Join(vault, "note.md")
	require.NoError(t, os.WriteFile(notePath, []byte("# Note\n"), 0o644))

	c := cache.New(cache.Config{TTL: time.Minute})
	c.Set("graph", vault, "cached-stats")

	w, err := New(Config{Root: vault, Debounce: 50 * time.Millisecond}, c, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(notePath, []byte("# Note\nedited\n"), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := c.Get("graph", vault)
		return !ok
	}, 3*time.Second, 20*time.Millisecond, "cache entry should be evicted after the change settles")
}

func TestWatcher_IgnoresNonMarkdown(t *testing.T) {
	vault := t.TempDir()

	c := cache.New(cache.Config{TTL: time.Minute})
	c.Set("graph", vault, "cached-stats")

	w, err := New(Config{Root: vault, Debounce: 50 * time.Millisecond}, c, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(vault, "image.png"), []byte{0x89}, 0o644))

	time.Sleep(300 * time.Millisecond)
	_, ok := c.Get("graph", vault)
	assert.True(t, ok, "non-markdown changes must not evict cache entries")
}

func TestWatcher_DefaultDebounce(t *testing.T) {
	vault := t.TempDir()
	w, err := New(Config{Root: vault}, cache.New(cache.Config{}), nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, DefaultDebounce, w.config.Debounce)
}
