package thumbs

import (
	"context"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raindrop213/bibi-library/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Writer: io.Discard, Environment: "development", Level: logger.ParseLevel("error")})
}

// writeCover writes a solid-color JPEG cover of the given size.
func writeCover(t *testing.T, dir string, width, height int) string {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 40, G: 80, B: 120, A: 255})
	path := filepath.Join(dir, "cover.jpg")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestGetDerivesThumbnail(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "thumbnails"), 2, testLogger())
	require.NoError(t, err)
	cover := writeCover(t, t.TempDir(), 600, 900)

	path, err := cache.Get(context.Background(), 1, cover)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache.Dir(), "1.jpg"), path)

	thumb, err := imaging.Open(path)
	require.NoError(t, err)
	bounds := thumb.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), thumbWidth)
	assert.LessOrEqual(t, bounds.Dy(), thumbHeight)
}

func TestGetPreservesAspectRatio(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "thumbnails"), 2, testLogger())
	require.NoError(t, err)
	cover := writeCover(t, t.TempDir(), 1000, 500)

	path, err := cache.Get(context.Background(), 2, cover)
	require.NoError(t, err)

	thumb, err := imaging.Open(path)
	require.NoError(t, err)
	bounds := thumb.Bounds()
	// Wide source fits the width and shrinks the height proportionally.
	assert.Equal(t, thumbWidth, bounds.Dx())
	assert.Equal(t, thumbWidth/2, bounds.Dy())
}

func TestGetServesCachedEntry(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "thumbnails"), 2, testLogger())
	require.NoError(t, err)
	cover := writeCover(t, t.TempDir(), 600, 900)

	first, err := cache.Get(context.Background(), 3, cover)
	require.NoError(t, err)
	firstInfo, err := os.Stat(first)
	require.NoError(t, err)

	// Second call hits the cache even if the cover disappears.
	require.NoError(t, os.Remove(cover))
	second, err := cache.Get(context.Background(), 3, cover)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	secondInfo, err := os.Stat(second)
	require.NoError(t, err)
	assert.Equal(t, firstInfo.ModTime(), secondInfo.ModTime())
}

func TestLookup(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "thumbnails"), 2, testLogger())
	require.NoError(t, err)
	cover := writeCover(t, t.TempDir(), 600, 900)

	_, ok := cache.Lookup(7)
	assert.False(t, ok)

	derived, err := cache.Get(context.Background(), 7, cover)
	require.NoError(t, err)

	path, ok := cache.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, derived, path)
}

func TestGetBadCover(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(filepath.Join(dir, "thumbnails"), 2, testLogger())
	require.NoError(t, err)

	bad := filepath.Join(dir, "cover.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	_, err = cache.Get(context.Background(), 4, bad)
	assert.Error(t, err)

	// No partial entry left behind.
	_, statErr := os.Stat(filepath.Join(cache.Dir(), "4.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPurge(t *testing.T) {
	cache, err := NewCache(filepath.Join(t.TempDir(), "thumbnails"), 2, testLogger())
	require.NoError(t, err)
	coverDir := t.TempDir()

	for id := int64(1); id <= 3; id++ {
		cover := writeCover(t, coverDir, 400, 600)
		_, err := cache.Get(context.Background(), id, cover)
		require.NoError(t, err)
	}

	removed, err := cache.Purge()
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	entries, err := os.ReadDir(cache.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Purging an empty cache removes nothing.
	removed, err = cache.Purge()
	require.NoError(t, err)
	assert.Zero(t, removed)
}
