package sqlite

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raindrop213/bibi-library/internal/logger"
	"github.com/raindrop213/bibi-library/internal/store"
)

const fixtureSchema = `
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
`

const fixtureData = `
INSERT INTO books (id, title, sort, author_sort, pubdate, timestamp, path, has_cover, series_index) VALUES
	(1, 'Dune', 'Dune', 'Herbert, Frank', '1965-08-01 00:00:00+00:00', '2024-01-01 10:00:00+00:00', 'Frank Herbert/Dune (1)', 1, 1.0),
	(2, 'Dune Messiah', 'Dune Messiah', 'Herbert, Frank', '1969-07-01 00:00:00+00:00', '2024-01-02 10:00:00+00:00', 'Frank Herbert/Dune Messiah (2)', 1, 2.0),
	(3, 'Hidden Book', 'Hidden Book', 'Nobody, Sam', '2000-01-01 00:00:00+00:00', '2024-01-03 10:00:00+00:00', 'Sam Nobody/Hidden Book (3)', 0, 1.0),
	(4, 'Solaris', 'Solaris', 'Lem, Stanislaw', '1961-01-01 00:00:00+00:00', '2024-01-04 10:00:00+00:00', 'Stanislaw Lem/Solaris (4)', 1, 1.0);

INSERT INTO authors (id, name, sort) VALUES
	(1, 'Frank Herbert', 'Herbert, Frank'),
	(2, 'Sam Nobody', 'Nobody, Sam'),
	(3, 'Stanislaw Lem', 'Lem, Stanislaw');
INSERT INTO books_authors_link (book, author) VALUES (1, 1), (2, 1), (3, 2), (4, 3);

INSERT INTO publishers (id, name) VALUES (1, 'Chilton Books');
INSERT INTO books_publishers_link (book, publisher) VALUES (1, 1), (2, 1);

INSERT INTO tags (id, name) VALUES (1, 'Science Fiction'), (2, 'ECHI');
INSERT INTO books_tags_link (book, tag) VALUES (1, 1), (2, 1), (4, 1), (3, 2);

INSERT INTO series (id, name) VALUES (1, 'Dune Saga');
INSERT INTO books_series_link (book, series) VALUES (1, 1), (2, 1);

INSERT INTO languages (id, lang_code) VALUES (1, 'eng'), (2, 'pol');
INSERT INTO books_languages_link (book, lang_code, item_order) VALUES (1, 1, 0), (2, 1, 0), (3, 1, 0), (4, 2, 0);

INSERT INTO comments (book, text) VALUES (1, '<p>A <b>classic</b> of science fiction.</p>');
INSERT INTO identifiers (book, type, val) VALUES (1, 'isbn', '9780441013593');
`

func newFixtureStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metadata.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(fixtureSchema)
	require.NoError(t, err)
	_, err = db.Exec(fixtureData)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	log := logger.New(logger.Config{Writer: io.Discard, Environment: "development", Level: logger.ParseLevel("error")})
	st, err := Open(path, log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func gate() store.Fragment {
	return store.ExcludedTagsFragment([]string{"ECHI"})
}

func TestOpenMissingDatabase(t *testing.T) {
	log := logger.New(logger.Config{Writer: io.Discard, Environment: "development", Level: logger.ParseLevel("error")})
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"), log)
	assert.Error(t, err)
}

func TestListBooksUngated(t *testing.T) {
	st := newFixtureStore(t)

	b := &store.Builder{}
	books, total, err := st.ListBooks(context.Background(), b, store.SortDateDesc, store.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(4), total)
	require.Len(t, books, 4)
	// Newest first by added timestamp.
	assert.Equal(t, "Solaris", books[0].Title)
	assert.Equal(t, "Dune", books[3].Title)
}

func TestListBooksGateHidesExcludedTag(t *testing.T) {
	st := newFixtureStore(t)

	b := &store.Builder{}
	b.Add(gate())
	books, total, err := st.ListBooks(context.Background(), b, store.SortTitleAsc, store.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(3), total)
	for _, book := range books {
		assert.NotEqual(t, "Hidden Book", book.Title)
	}
}

func TestListBooksSearchFilter(t *testing.T) {
	st := newFixtureStore(t)

	b := &store.Builder{}
	b.Add(store.SearchFragment("dune"))
	books, total, err := st.ListBooks(context.Background(), b, store.SortTitleAsc, store.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Dune Messiah", books[1].Title)
}

func TestListBooksSeriesOrder(t *testing.T) {
	st := newFixtureStore(t)

	b := &store.Builder{}
	b.Add(store.SeriesFragment(1))
	books, total, err := st.ListBooks(context.Background(), b, store.SortSeries, store.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(2), total)
	// Highest series index first.
	assert.Equal(t, "Dune Messiah", books[0].Title)
	assert.Equal(t, 2.0, books[0].SeriesIndex)
}

func TestListBooksPagination(t *testing.T) {
	st := newFixtureStore(t)

	b := &store.Builder{}
	books, total, err := st.ListBooks(context.Background(), b, store.SortTitleAsc, store.PageParams{Page: 2, PageSize: 3})
	require.NoError(t, err)

	assert.Equal(t, int64(4), total)
	require.Len(t, books, 1)
	assert.Equal(t, "Solaris", books[0].Title)
}

func TestGetBook(t *testing.T) {
	st := newFixtureStore(t)

	book, err := st.GetBook(context.Background(), &store.Builder{}, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.True(t, book.HasCover)
	assert.Equal(t, "Frank Herbert/Dune (1)", book.Path)
	assert.Equal(t, 2024, book.AddedAt.Year())
}

func TestGetBookNotFound(t *testing.T) {
	st := newFixtureStore(t)

	_, err := st.GetBook(context.Background(), &store.Builder{}, 999)
	assert.Error(t, err)
}

func TestGetBookHiddenBehindGate(t *testing.T) {
	st := newFixtureStore(t)

	b := &store.Builder{}
	b.Add(gate())
	_, err := st.GetBook(context.Background(), b, 3)
	assert.Error(t, err)
}

func TestAuthorsForBooksBatch(t *testing.T) {
	st := newFixtureStore(t)

	byBook, err := st.AuthorsForBooks(context.Background(), []int64{1, 2, 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"Frank Herbert"}, byBook[1])
	assert.Equal(t, []string{"Frank Herbert"}, byBook[2])
	assert.Equal(t, []string{"Stanislaw Lem"}, byBook[4])

	empty, err := st.AuthorsForBooks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBookSubLookups(t *testing.T) {
	st := newFixtureStore(t)
	ctx := context.Background()

	series, err := st.SeriesForBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune Saga", series)

	none, err := st.SeriesForBook(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, none)

	publishers, err := st.PublishersForBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chilton Books"}, publishers)

	tags, err := st.TagsForBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Science Fiction"}, tags)

	langs, err := st.LanguagesForBook(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"pol"}, langs)

	ids, err := st.IdentifiersForBook(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "isbn", ids[0].Type)

	comments, err := st.CommentsForBook(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, comments, "classic")

	noComments, err := st.CommentsForBook(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, noComments)
}

func TestParseCalibreTime(t *testing.T) {
	ts := parseCalibreTime("2024-01-01 10:00:00+00:00")
	assert.Equal(t, 2024, ts.Year())

	assert.True(t, parseCalibreTime("").IsZero())
	assert.True(t, parseCalibreTime("not a time").IsZero())
}
