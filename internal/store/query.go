// Package store defines the query composition layer shared by the SQLite
// implementation: filters, orderings, pagination and the fragment builder
// that compiles them into matched count and row statements.
package store

import (
	"fmt"
	"sort"
	"strings"
)

// Fragment is a reusable WHERE condition with its placeholder arguments
// and the link-table joins it depends on. Fragments compose into a
// Builder, which guarantees the count and row queries of a listing are
// produced from the same conditions.
type Fragment struct {
	Condition string
	Args      []any
	Joins     []Join
}

// Join names a link-table join a fragment requires. Identical joins
// from multiple fragments are deduplicated by Name.
type Join struct {
	Name   string
	Clause string
}

// Filters carries the catalog listing criteria taken from the request.
// Zero values mean "no constraint".
type Filters struct {
	Search    string
	AuthorID  int64
	Publisher int64
	TagID     int64
	SeriesID  int64
	Language  string
	Sort      Sort
}

// Builder accumulates fragments and compiles them into SQL. The zero
// value is ready to use.
type Builder struct {
	fragments []Fragment
}

// Add appends a fragment. Empty conditions are ignored.
func (b *Builder) Add(f Fragment) *Builder {
	if f.Condition == "" && len(f.Joins) == 0 {
		return b
	}
	b.fragments = append(b.fragments, f)
	return b
}

// joins returns the deduplicated join clauses in deterministic order.
func (b *Builder) joins() []string {
	seen := make(map[string]string)
	for _, f := range b.fragments {
		for _, j := range f.Joins {
			seen[j.Name] = j.Clause
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	clauses := make([]string, 0, len(names))
	for _, name := range names {
		clauses = append(clauses, seen[name])
	}
	return clauses
}

// where returns the combined WHERE clause and its arguments.
func (b *Builder) where() (string, []any) {
	var conds []string
	var args []any
	for _, f := range b.fragments {
		if f.Condition == "" {
			continue
		}
		conds = append(conds, f.Condition)
		args = append(args, f.Args...)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CountSQL compiles the builder into a count statement. DISTINCT guards
// against row multiplication from link-table joins.
func (b *Builder) CountSQL() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(DISTINCT books.id) FROM books")
	for _, j := range b.joins() {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	where, args := b.where()
	sb.WriteString(where)
	return sb.String(), args
}

// RowsSQL compiles the builder into a page statement selecting the given
// columns, ordered and limited. The same fragments that shaped CountSQL
// shape this query, so totals always match the rows.
func (b *Builder) RowsSQL(columns string, order Sort, limit, offset int) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT DISTINCT %s FROM books", columns)
	for _, j := range b.joins() {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	where, args := b.where()
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order.orderClause())
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, offset)
	return sb.String(), args
}

// SearchFragment matches the query text against title, sort title and
// author sort string, case-insensitively.
func SearchFragment(query string) Fragment {
	pattern := "%" + query + "%"
	return Fragment{
		Condition: "(books.title LIKE ? COLLATE NOCASE OR books.sort LIKE ? COLLATE NOCASE OR books.author_sort LIKE ? COLLATE NOCASE)",
		Args:      []any{pattern, pattern, pattern},
	}
}

// AuthorFragment restricts to books by the given author.
func AuthorFragment(authorID int64) Fragment {
	return Fragment{
		Condition: "bal.author = ?",
		Args:      []any{authorID},
		Joins:     []Join{{Name: "bal", Clause: "JOIN books_authors_link bal ON bal.book = books.id"}},
	}
}

// PublisherFragment restricts to books from the given publisher.
func PublisherFragment(publisherID int64) Fragment {
	return Fragment{
		Condition: "bpl.publisher = ?",
		Args:      []any{publisherID},
		Joins:     []Join{{Name: "bpl", Clause: "JOIN books_publishers_link bpl ON bpl.book = books.id"}},
	}
}

// TagFragment restricts to books carrying the given tag.
func TagFragment(tagID int64) Fragment {
	return Fragment{
		Condition: "btl.tag = ?",
		Args:      []any{tagID},
		Joins:     []Join{{Name: "btl", Clause: "JOIN books_tags_link btl ON btl.book = books.id"}},
	}
}

// SeriesFragment restricts to books in the given series.
func SeriesFragment(seriesID int64) Fragment {
	return Fragment{
		Condition: "bsl.series = ?",
		Args:      []any{seriesID},
		Joins:     []Join{{Name: "bsl", Clause: "JOIN books_series_link bsl ON bsl.book = books.id"}},
	}
}

// LanguageFragment restricts to books in the given language code.
func LanguageFragment(code string) Fragment {
	return Fragment{
		Condition: "bll.lang_code IN (SELECT id FROM languages WHERE lang_code = ?)",
		Args:      []any{code},
		Joins:     []Join{{Name: "bll", Clause: "JOIN books_languages_link bll ON bll.book = books.id"}},
	}
}

// ExcludedTagsFragment hides every book carrying any of the named tags.
// It uses NOT EXISTS rather than a join so unexcluded books are never
// multiplied or dropped.
func ExcludedTagsFragment(tags []string) Fragment {
	if len(tags) == 0 {
		return Fragment{}
	}
	placeholders := strings.Repeat("?,", len(tags))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(tags))
	for i, t := range tags {
		args[i] = t
	}
	return Fragment{
		Condition: "NOT EXISTS (SELECT 1 FROM books_tags_link xbtl JOIN tags xt ON xt.id = xbtl.tag WHERE xbtl.book = books.id AND xt.name IN (" + placeholders + "))",
		Args:      args,
	}
}
