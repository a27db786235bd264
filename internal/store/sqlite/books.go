package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/raindrop213/bibi-library/internal/domain"
	domainerrors "github.com/raindrop213/bibi-library/internal/errors"
	"github.com/raindrop213/bibi-library/internal/store"
)

const bookColumns = "books.id, books.title, books.sort, books.author_sort, books.pubdate, books.timestamp, books.path, books.has_cover, books.series_index"

// calibreTimeLayouts covers the timestamp formats Calibre writes.
var calibreTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

func parseCalibreTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range calibreTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ListBooks returns one page of book rows matching the builder, plus the
// total count compiled from the same fragments.
func (s *Store) ListBooks(ctx context.Context, b *store.Builder, order store.Sort, params store.PageParams) ([]domain.BookSummary, int64, error) {
	countSQL, countArgs := b.CountSQL()
	var total int64
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to count books")
	}

	rowsSQL, rowsArgs := b.RowsSQL(bookColumns, order, params.PageSize, params.Offset())
	rows, err := s.db.QueryContext(ctx, rowsSQL, rowsArgs...)
	if err != nil {
		return nil, 0, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query books")
	}
	defer rows.Close()

	var books []domain.BookSummary
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to iterate books")
	}
	return books, total, nil
}

// GetBook returns a single book row, honoring the visibility fragments in
// the builder. A hidden book is indistinguishable from a missing one.
func (s *Store) GetBook(ctx context.Context, b *store.Builder, id int64) (domain.BookSummary, error) {
	b.Add(store.Fragment{Condition: "books.id = ?", Args: []any{id}})
	rowsSQL, args := b.RowsSQL(bookColumns, store.SortDateDesc, 1, 0)

	rows, err := s.db.QueryContext(ctx, rowsSQL, args...)
	if err != nil {
		return domain.BookSummary{}, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query book")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.BookSummary{}, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query book")
		}
		return domain.BookSummary{}, domainerrors.NotFoundf("book %d not found", id)
	}
	return scanBook(rows)
}

func scanBook(rows *sql.Rows) (domain.BookSummary, error) {
	var (
		book       domain.BookSummary
		sortTitle  sql.NullString
		authorSort sql.NullString
		pubdate    sql.NullString
		timestamp  sql.NullString
		path       sql.NullString
		hasCover   sql.NullBool
		seriesIdx  sql.NullFloat64
	)
	err := rows.Scan(&book.ID, &book.Title, &sortTitle, &authorSort, &pubdate, &timestamp, &path, &hasCover, &seriesIdx)
	if err != nil {
		return domain.BookSummary{}, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to scan book row")
	}
	book.Sort = nullStr(sortTitle)
	book.AuthorSort = nullStr(authorSort)
	book.PubDate = parseCalibreTime(nullStr(pubdate))
	book.AddedAt = parseCalibreTime(nullStr(timestamp))
	book.Path = nullStr(path)
	book.HasCover = hasCover.Valid && hasCover.Bool
	book.SeriesIndex = nullFloat(seriesIdx)
	return book, nil
}

// AuthorsForBooks fetches the author names of every given book in one
// query, returned as a map keyed by book id in link-table order.
func (s *Store) AuthorsForBooks(ctx context.Context, bookIDs []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(bookIDs))
	if len(bookIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(bookIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(bookIDs))
	for i, id := range bookIDs {
		args[i] = id
	}

	query := `SELECT bal.book, a.name
		FROM books_authors_link bal
		JOIN authors a ON a.id = bal.author
		WHERE bal.book IN (` + placeholders + `)
		ORDER BY bal.book, bal.id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query book authors")
	}
	defer rows.Close()

	for rows.Next() {
		var bookID int64
		var name string
		if err := rows.Scan(&bookID, &name); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to scan author row")
		}
		result[bookID] = append(result[bookID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to iterate authors")
	}
	return result, nil
}

// SeriesForBook returns the series name a book belongs to, or "" if none.
func (s *Store) SeriesForBook(ctx context.Context, bookID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT s.name
		FROM books_series_link bsl
		JOIN series s ON s.id = bsl.series
		WHERE bsl.book = ?`, bookID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query book series")
	}
	return name, nil
}

// PublishersForBook returns the publisher names of a book.
func (s *Store) PublishersForBook(ctx context.Context, bookID int64) ([]string, error) {
	return s.queryStrings(ctx, `SELECT p.name
		FROM books_publishers_link bpl
		JOIN publishers p ON p.id = bpl.publisher
		WHERE bpl.book = ?`, bookID)
}

// TagsForBook returns the tag names of a book, alphabetically.
func (s *Store) TagsForBook(ctx context.Context, bookID int64) ([]string, error) {
	return s.queryStrings(ctx, `SELECT t.name
		FROM books_tags_link btl
		JOIN tags t ON t.id = btl.tag
		WHERE btl.book = ?
		ORDER BY t.name COLLATE NOCASE`, bookID)
}

// LanguagesForBook returns the language codes of a book in item order.
func (s *Store) LanguagesForBook(ctx context.Context, bookID int64) ([]string, error) {
	return s.queryStrings(ctx, `SELECT l.lang_code
		FROM books_languages_link bll
		JOIN languages l ON l.id = bll.lang_code
		WHERE bll.book = ?
		ORDER BY bll.item_order`, bookID)
}

// IdentifiersForBook returns the external identifiers attached to a book.
func (s *Store) IdentifiersForBook(ctx context.Context, bookID int64) ([]domain.Identifier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, val FROM identifiers WHERE book = ? ORDER BY type`, bookID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query identifiers")
	}
	defer rows.Close()

	var ids []domain.Identifier
	for rows.Next() {
		var id domain.Identifier
		if err := rows.Scan(&id.Type, &id.Value); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to scan identifier row")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to iterate identifiers")
	}
	return ids, nil
}

// CommentsForBook returns the raw HTML comments of a book, or "" if none.
func (s *Store) CommentsForBook(ctx context.Context, bookID int64) (string, error) {
	var text sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT text FROM comments WHERE book = ?`, bookID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query comments")
	}
	return nullStr(text), nil
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query")
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to scan row")
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to iterate rows")
	}
	return values, nil
}
