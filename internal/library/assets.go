// Package library resolves book assets on disk. Calibre lays each book
// out under {library}/{Author}/{Title (id)}/ with cover.jpg and the
// format files beside the metadata.
package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	domainerrors "github.com/raindrop213/bibi-library/internal/errors"
)

// Resolver maps a book's stored relative path to files inside the
// library root. Every resolved path is containment-checked so a
// corrupted database row cannot escape the library directory.
type Resolver struct {
	root string
}

// NewResolver creates a resolver rooted at the library directory.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to resolve library root")
	}
	return &Resolver{root: abs}, nil
}

// bookDir returns the absolute book directory after containment check.
func (r *Resolver) bookDir(relPath string) (string, error) {
	dir := filepath.Join(r.root, filepath.FromSlash(relPath))
	dir = filepath.Clean(dir)
	if dir != r.root && !strings.HasPrefix(dir, r.root+string(filepath.Separator)) {
		return "", domainerrors.NotFound("book path outside library")
	}
	return dir, nil
}

// CoverPath returns the path of the book's full cover image.
func (r *Resolver) CoverPath(relPath string) (string, error) {
	dir, err := r.bookDir(relPath)
	if err != nil {
		return "", err
	}
	cover := filepath.Join(dir, "cover.jpg")
	if _, err := os.Stat(cover); err != nil {
		return "", domainerrors.NotFound("cover not found")
	}
	return cover, nil
}

// EpubPath returns the path of the book's EPUB file. When a book has
// several EPUB variants the alphabetically first is served.
func (r *Resolver) EpubPath(relPath string) (string, error) {
	dir, err := r.bookDir(relPath)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", domainerrors.NotFound("book directory not found")
	}
	var epubs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".epub") {
			epubs = append(epubs, e.Name())
		}
	}
	if len(epubs) == 0 {
		return "", domainerrors.NotFound("no epub file for book")
	}
	sort.Strings(epubs)
	return filepath.Join(dir, epubs[0]), nil
}
