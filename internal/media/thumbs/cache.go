// Package thumbs maintains the on-disk thumbnail cache derived from
// Calibre cover images. Derivation is bounded by a weighted semaphore
// so a cold cache cannot exhaust memory on a burst of image decodes.
package thumbs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"

	domainerrors "github.com/raindrop213/bibi-library/internal/errors"
	"github.com/raindrop213/bibi-library/internal/logger"
)

const (
	thumbWidth   = 300
	thumbHeight  = 400
	thumbQuality = 80
)

// Cache derives and stores thumbnail images under a cache directory,
// keyed by book id. Entries live until the janitor evicts them.
type Cache struct {
	dir string
	sem *semaphore.Weighted
	log *logger.Logger
}

// NewCache creates the cache, ensuring the directory exists.
// maxConcurrent bounds simultaneous derivations.
func NewCache(dir string, maxConcurrent int64, log *logger.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to create thumbnail cache directory")
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Cache{
		dir: dir,
		sem: semaphore.NewWeighted(maxConcurrent),
		log: log,
	}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) entryPath(bookID int64) string {
	return filepath.Join(c.dir, fmt.Sprintf("%d.jpg", bookID))
}

// Lookup reports whether a cached thumbnail already exists for the
// book, without touching the cover.
func (c *Cache) Lookup(bookID int64) (string, bool) {
	entry := c.entryPath(bookID)
	if _, err := os.Stat(entry); err != nil {
		return "", false
	}
	return entry, true
}

// Get returns the cached thumbnail path for a book, deriving it from
// the cover on a miss. On derivation failure the caller should fall
// back to serving the full cover.
func (c *Cache) Get(ctx context.Context, bookID int64, coverPath string) (string, error) {
	entry := c.entryPath(bookID)
	if _, err := os.Stat(entry); err == nil {
		return entry, nil
	}
	return c.derive(ctx, bookID, coverPath, entry)
}

// derive decodes the cover, fits it into the thumbnail box and writes
// the result atomically. Concurrent derivations of the same book race
// benignly: both produce identical bytes and the last rename wins.
func (c *Cache) derive(ctx context.Context, bookID int64, coverPath, entry string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "thumbnail derivation canceled")
	}
	defer c.sem.Release(1)

	// Re-check under the semaphore: a concurrent request may have
	// already written the entry while we waited.
	if _, err := os.Stat(entry); err == nil {
		return entry, nil
	}

	img, err := imaging.Open(coverPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", domainerrors.Wrapf(err, domainerrors.CodeInternal, "failed to decode cover for book %d", bookID)
	}
	thumb := imaging.Fit(img, thumbWidth, thumbHeight, imaging.Lanczos)

	tmp, err := os.CreateTemp(c.dir, fmt.Sprintf(".%d-*.tmp", bookID))
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to create thumbnail temp file")
	}
	tmpName := tmp.Name()

	if err := imaging.Encode(tmp, thumb, imaging.JPEG, imaging.JPEGQuality(thumbQuality)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", domainerrors.Wrapf(err, domainerrors.CodeInternal, "failed to encode thumbnail for book %d", bookID)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to close thumbnail temp file")
	}
	if err := os.Rename(tmpName, entry); err != nil {
		os.Remove(tmpName)
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to publish thumbnail")
	}

	c.log.Debug("thumbnail derived", "book_id", bookID, "path", entry)
	return entry, nil
}

// Purge removes every cached thumbnail and returns how many entries
// were actually deleted. Temp files from in-flight derivations are
// removed too; those derivations finish and repopulate the cache.
func (c *Cache) Purge() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to read thumbnail cache directory")
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			c.log.Warn("failed to remove thumbnail", "name", e.Name(), "error", err)
			continue
		}
		if filepath.Ext(e.Name()) == ".jpg" {
			removed++
		}
	}
	return removed, nil
}
