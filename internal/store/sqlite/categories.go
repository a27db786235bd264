package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/raindrop213/bibi-library/internal/domain"
	domainerrors "github.com/raindrop213/bibi-library/internal/errors"
	"github.com/raindrop213/bibi-library/internal/store"
)

// categorySQL builds the aggregate query for a link-table category.
// The visibility fragment is applied to the joined books rows so counts
// only reflect books the caller can see; categories whose every book is
// hidden drop out entirely.
func categorySQL(table, link, fk string, gate store.Fragment) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT c.id, c.name, COUNT(DISTINCT books.id) AS cnt")
	sb.WriteString(" FROM " + table + " c")
	sb.WriteString(" JOIN " + link + " l ON l." + fk + " = c.id")
	sb.WriteString(" JOIN books ON books.id = l.book")
	var args []any
	if gate.Condition != "" {
		sb.WriteString(" WHERE " + gate.Condition)
		args = gate.Args
	}
	sb.WriteString(" GROUP BY c.id, c.name HAVING cnt > 0 ORDER BY c.name COLLATE NOCASE")
	return sb.String(), args
}

// ListAuthors returns every author with at least one visible book.
func (s *Store) ListAuthors(ctx context.Context, gate store.Fragment) ([]domain.CategoryEntry, error) {
	query, args := categorySQL("authors", "books_authors_link", "author", gate)
	return s.queryCategories(ctx, query, args...)
}

// ListPublishers returns every publisher with at least one visible book.
func (s *Store) ListPublishers(ctx context.Context, gate store.Fragment) ([]domain.CategoryEntry, error) {
	query, args := categorySQL("publishers", "books_publishers_link", "publisher", gate)
	return s.queryCategories(ctx, query, args...)
}

// ListTags returns every tag with at least one visible book. Excluded
// tag names are filtered out of the listing itself when the gate is
// active, so a hidden shelf does not leak through its label.
func (s *Store) ListTags(ctx context.Context, gate store.Fragment, excluded []string) ([]domain.CategoryEntry, error) {
	query, args := categorySQL("tags", "books_tags_link", "tag", gate)
	entries, err := s.queryCategories(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if gate.Condition == "" || len(excluded) == 0 {
		return entries, nil
	}
	hidden := make(map[string]bool, len(excluded))
	for _, t := range excluded {
		hidden[strings.ToLower(t)] = true
	}
	visible := entries[:0]
	for _, e := range entries {
		if !hidden[strings.ToLower(e.Name)] {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// ListLanguages returns every language with at least one visible book,
// as raw lang codes. Display names are attached by the service layer.
func (s *Store) ListLanguages(ctx context.Context, gate store.Fragment) ([]domain.CategoryEntry, error) {
	var sb strings.Builder
	sb.WriteString("SELECT lg.id, lg.lang_code, COUNT(DISTINCT books.id) AS cnt")
	sb.WriteString(" FROM languages lg")
	sb.WriteString(" JOIN books_languages_link l ON l.lang_code = lg.id")
	sb.WriteString(" JOIN books ON books.id = l.book")
	var args []any
	if gate.Condition != "" {
		sb.WriteString(" WHERE " + gate.Condition)
		args = gate.Args
	}
	sb.WriteString(" GROUP BY lg.id, lg.lang_code HAVING cnt > 0 ORDER BY lg.lang_code")
	return s.queryCategories(ctx, sb.String(), args...)
}

// ListSeries returns every series with at least one visible book. The
// cover book id is the visible volume with the highest series index,
// which backs the series thumbnail in clients.
func (s *Store) ListSeries(ctx context.Context, gate store.Fragment, params store.PageParams) ([]domain.SeriesEntry, int64, error) {
	gateClause := ""
	args := []any{}
	if gate.Condition != "" {
		gateClause = " AND " + gate.Condition
		args = append(args, gate.Args...)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM (
		SELECT s.id FROM series s
		JOIN books_series_link bsl ON bsl.series = s.id
		JOIN books ON books.id = bsl.book` +
		whereGate(gate) + `
		GROUP BY s.id)`
	if err := s.db.QueryRowContext(ctx, countQuery, gate.Args...).Scan(&total); err != nil {
		return nil, 0, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to count series")
	}

	query := seriesSelect(gateClause) +
		whereGate(gate) + `
		GROUP BY s.id, s.name HAVING cnt > 0
		ORDER BY s.name COLLATE NOCASE
		LIMIT ? OFFSET ?`

	queryArgs := make([]any, 0, len(args)*2+2)
	queryArgs = append(queryArgs, args...)
	queryArgs = append(queryArgs, args...)
	queryArgs = append(queryArgs, params.PageSize, params.Offset())

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query series")
	}
	defer rows.Close()

	var entries []domain.SeriesEntry
	for rows.Next() {
		e, err := scanSeries(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to iterate series")
	}
	return entries, total, nil
}

// seriesSelect builds the aggregate projection shared by the paginated
// listing and the exact-name lookup: visible book count, first reading
// position, most recent addition and the representative cover book.
func seriesSelect(gateClause string) string {
	return `SELECT s.id, s.name, COUNT(DISTINCT books.id) AS cnt,
		MIN(books.series_index) AS first_pos,
		MAX(books.timestamp) AS last_added,
		(SELECT b2.id FROM books b2
			JOIN books_series_link bsl2 ON bsl2.book = b2.id
			WHERE bsl2.series = s.id AND b2.has_cover = 1` + replaceBooksAlias(gateClause, "b2") + `
			ORDER BY b2.series_index DESC LIMIT 1) AS cover_book
		FROM series s
		JOIN books_series_link bsl ON bsl.series = s.id
		JOIN books ON books.id = bsl.book`
}

func scanSeries(rows *sql.Rows) (domain.SeriesEntry, error) {
	var (
		e         domain.SeriesEntry
		firstPos  sql.NullFloat64
		lastAdded sql.NullString
		coverBook sql.NullInt64
	)
	if err := rows.Scan(&e.ID, &e.Name, &e.Count, &firstPos, &lastAdded, &coverBook); err != nil {
		return domain.SeriesEntry{}, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to scan series row")
	}
	e.EarliestPosition = nullFloat(firstPos)
	e.LatestAddition = parseCalibreTime(nullStr(lastAdded))
	if coverBook.Valid {
		e.CoverBookID = coverBook.Int64
	}
	return e, nil
}

// GetSeriesByName looks up one series aggregate by exact name,
// case-insensitively, honoring the visibility gate.
func (s *Store) GetSeriesByName(ctx context.Context, gate store.Fragment, name string) (domain.SeriesEntry, error) {
	gateClause := ""
	if gate.Condition != "" {
		gateClause = " AND " + gate.Condition
	}

	query := seriesSelect(gateClause) + `
		WHERE s.name = ? COLLATE NOCASE` + gateClause + `
		GROUP BY s.id, s.name HAVING cnt > 0`

	args := make([]any, 0, len(gate.Args)*2+1)
	args = append(args, gate.Args...)
	args = append(args, name)
	args = append(args, gate.Args...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.SeriesEntry{}, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query series by name")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.SeriesEntry{}, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query series by name")
		}
		return domain.SeriesEntry{}, domainerrors.NotFoundf("series %q not found", name)
	}
	return scanSeries(rows)
}

func whereGate(gate store.Fragment) string {
	if gate.Condition == "" {
		return ""
	}
	return " WHERE " + gate.Condition
}

// replaceBooksAlias rewrites a gate clause written against the books
// table to target an aliased copy used inside a correlated subquery.
func replaceBooksAlias(clause, alias string) string {
	return strings.ReplaceAll(clause, "books.id", alias+".id")
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...any) ([]domain.CategoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to query categories")
	}
	defer rows.Close()

	var entries []domain.CategoryEntry
	for rows.Next() {
		var e domain.CategoryEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Count); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to scan category row")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to iterate categories")
	}
	return entries, nil
}
