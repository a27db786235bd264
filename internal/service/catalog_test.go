package service

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raindrop213/bibi-library/internal/config"
	"github.com/raindrop213/bibi-library/internal/library"
	"github.com/raindrop213/bibi-library/internal/logger"
	"github.com/raindrop213/bibi-library/internal/store"
	"github.com/raindrop213/bibi-library/internal/store/sqlite"
	"github.com/raindrop213/bibi-library/internal/visibility"
)

const testSchema = `
CREATE TABLE books (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	sort TEXT,
	author_sort TEXT,
	pubdate TEXT,
	timestamp TEXT,
	path TEXT,
	has_cover BOOL DEFAULT 0,
	series_index REAL DEFAULT 1.0
);
CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT NOT NULL, sort TEXT);
CREATE TABLE publishers (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE series (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE languages (id INTEGER PRIMARY KEY, lang_code TEXT NOT NULL);
CREATE TABLE comments (id INTEGER PRIMARY KEY, book INTEGER, text TEXT);
CREATE TABLE identifiers (id INTEGER PRIMARY KEY, book INTEGER, type TEXT, val TEXT);
CREATE TABLE books_authors_link (id INTEGER PRIMARY KEY, book INTEGER, author INTEGER);
CREATE TABLE books_publishers_link (id INTEGER PRIMARY KEY, book INTEGER, publisher INTEGER);
CREATE TABLE books_tags_link (id INTEGER PRIMARY KEY, book INTEGER, tag INTEGER);
CREATE TABLE books_series_link (id INTEGER PRIMARY KEY, book INTEGER, series INTEGER);
CREATE TABLE books_languages_link (id INTEGER PRIMARY KEY, book INTEGER, lang_code INTEGER, item_order INTEGER DEFAULT 0);

INSERT INTO books (id, title, sort, author_sort, pubdate, timestamp, path, has_cover) VALUES
	(1, 'Dune', 'Dune', 'Herbert, Frank', '1965-08-01 00:00:00+00:00', '2024-01-01 10:00:00+00:00', 'Frank Herbert/Dune (1)', 1),
	(2, 'Hidden Book', 'Hidden Book', 'Nobody, Sam', '2000-01-01 00:00:00+00:00', '2024-01-02 10:00:00+00:00', 'Sam Nobody/Hidden Book (2)', 0);
INSERT INTO authors (id, name, sort) VALUES (1, 'Frank Herbert', 'Herbert, Frank'), (2, 'Sam Nobody', 'Nobody, Sam');
INSERT INTO books_authors_link (book, author) VALUES (1, 1), (2, 2);
INSERT INTO tags (id, name) VALUES (1, 'Science Fiction'), (2, 'ECHI');
INSERT INTO books_tags_link (book, tag) VALUES (1, 1), (2, 2);
INSERT INTO languages (id, lang_code) VALUES (1, 'eng');
INSERT INTO books_languages_link (book, lang_code, item_order) VALUES (1, 1, 0);
INSERT INTO comments (book, text) VALUES (1, '<p>A <b>classic</b>.</p>');
INSERT INTO identifiers (book, type, val) VALUES (1, 'isbn', '9780441013593');
`

func newTestCatalog(t *testing.T) (*CatalogService, string) {
	t.Helper()

	libRoot := t.TempDir()
	bookDir := filepath.Join(libRoot, "Frank Herbert", "Dune (1)")
	require.NoError(t, os.MkdirAll(bookDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "cover.jpg"), []byte("jpeg"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "Dune.epub"), []byte("epub"), 0o644))

	dbPath := filepath.Join(libRoot, "metadata.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	log := logger.New(logger.Config{Writer: io.Discard, Environment: "development", Level: logger.ParseLevel("error")})
	st, err := sqlite.Open(dbPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	resolver, err := library.NewResolver(libRoot)
	require.NoError(t, err)

	policy := visibility.NewPolicy("secret", []string{"ECHI"})
	pagination := config.PaginationConfig{PageSize: 20, SeriesPageSize: 10}

	return NewCatalogService(st, policy, resolver, pagination, log), libRoot
}

func TestListBooksUnauthorizedHidesExcluded(t *testing.T) {
	svc, _ := newTestCatalog(t)

	page, err := svc.ListBooks(context.Background(), "", store.Filters{}, store.PageParams{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Dune", page.Items[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, page.Items[0].Authors)
}

func TestListBooksAuthorizedSeesEverything(t *testing.T) {
	svc, _ := newTestCatalog(t)

	page, err := svc.ListBooks(context.Background(), "secret", store.Filters{}, store.PageParams{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), page.Total)
}

func TestGetBookDetail(t *testing.T) {
	svc, _ := newTestCatalog(t)

	detail, err := svc.GetBook(context.Background(), "", 1)
	require.NoError(t, err)

	assert.Equal(t, "Dune", detail.Title)
	assert.Equal(t, []string{"Frank Herbert"}, detail.Authors)
	assert.Equal(t, []string{"Science Fiction"}, detail.Tags)
	assert.Equal(t, []string{"English"}, detail.Languages)
	require.Len(t, detail.Identifiers, 1)
	assert.Equal(t, "isbn", detail.Identifiers[0].Type)
	assert.Contains(t, detail.Comments, "**classic**")
	assert.Empty(t, detail.Publishers)
	assert.Equal(t, "/api/v1/books/1/cover?size=full", detail.CoverURL)
	assert.Equal(t, "/api/v1/books/1/cover", detail.ThumbURL)
	assert.Equal(t, "/api/v1/books/1/file", detail.EpubURL)
}

func TestGetBookHiddenWithoutCredential(t *testing.T) {
	svc, _ := newTestCatalog(t)

	_, err := svc.GetBook(context.Background(), "", 2)
	assert.Error(t, err)

	detail, err := svc.GetBook(context.Background(), "secret", 2)
	require.NoError(t, err)
	assert.Equal(t, "Hidden Book", detail.Title)
	// No files on disk for this book, so no asset links.
	assert.Empty(t, detail.CoverURL)
	assert.Empty(t, detail.EpubURL)
}

func TestListTagsHidesExcludedLabel(t *testing.T) {
	svc, _ := newTestCatalog(t)

	tags, err := svc.ListTags(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Science Fiction", tags[0].Name)

	all, err := svc.ListTags(context.Background(), "secret")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListLanguagesDisplayNames(t *testing.T) {
	svc, _ := newTestCatalog(t)

	langs, err := svc.ListLanguages(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, langs, 1)
	assert.Equal(t, "English", langs[0].Name)
}

func TestCoverPath(t *testing.T) {
	svc, libRoot := newTestCatalog(t)

	path, err := svc.CoverPath(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(libRoot, "Frank Herbert", "Dune (1)", "cover.jpg"), path)
}

func TestEpubPath(t *testing.T) {
	svc, _ := newTestCatalog(t)

	path, book, err := svc.EpubPath(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune.epub", filepath.Base(path))
	assert.Equal(t, "Dune", book.Title)
}

func TestHealth(t *testing.T) {
	svc, _ := newTestCatalog(t)
	assert.NoError(t, svc.Health(context.Background()))
}
