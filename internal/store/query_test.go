package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCountAndRowsShareConditions(t *testing.T) {
	b := &Builder{}
	b.Add(SearchFragment("dune"))
	b.Add(TagFragment(7))

	countSQL, countArgs := b.CountSQL()
	rowsSQL, rowsArgs := b.RowsSQL("books.id", SortDateDesc, 20, 0)

	assert.Contains(t, countSQL, "COUNT(DISTINCT books.id)")
	assert.Contains(t, countSQL, "books_tags_link")
	assert.Contains(t, countSQL, "books.title LIKE ?")
	assert.Contains(t, rowsSQL, "SELECT DISTINCT books.id")
	assert.Contains(t, rowsSQL, "books_tags_link")
	assert.Contains(t, rowsSQL, "books.title LIKE ?")

	// Row query carries the same filter args plus limit and offset.
	require.Len(t, countArgs, 4)
	require.Len(t, rowsArgs, 6)
	assert.Equal(t, countArgs, rowsArgs[:4])
	assert.Equal(t, 20, rowsArgs[4])
	assert.Equal(t, 0, rowsArgs[5])
}

func TestBuilderDeduplicatesJoins(t *testing.T) {
	b := &Builder{}
	b.Add(TagFragment(1))
	b.Add(TagFragment(2))

	countSQL, _ := b.CountSQL()
	assert.Equal(t, 1, countOccurrences(countSQL, "books_tags_link"))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

func TestBuilderEmptyWhere(t *testing.T) {
	b := &Builder{}
	countSQL, args := b.CountSQL()
	assert.Equal(t, "SELECT COUNT(DISTINCT books.id) FROM books", countSQL)
	assert.Empty(t, args)
}

func TestExcludedTagsFragment(t *testing.T) {
	f := ExcludedTagsFragment([]string{"ECHI", "private"})
	assert.Contains(t, f.Condition, "NOT EXISTS")
	assert.Contains(t, f.Condition, "IN (?,?)")
	assert.Equal(t, []any{"ECHI", "private"}, f.Args)
	assert.Empty(t, f.Joins)

	empty := ExcludedTagsFragment(nil)
	assert.Empty(t, empty.Condition)
}

func TestBuilderIgnoresEmptyFragment(t *testing.T) {
	b := &Builder{}
	b.Add(Fragment{})
	countSQL, _ := b.CountSQL()
	assert.NotContains(t, countSQL, "WHERE")
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortTitleAsc, ParseSort("title-asc"))
	assert.Equal(t, SortRandom, ParseSort("random"))
	assert.Equal(t, SortDateDesc, ParseSort(""))
	assert.Equal(t, SortDateDesc, ParseSort("bogus"))
}

func TestSortOrderClauses(t *testing.T) {
	assert.Equal(t, "books.timestamp DESC", SortDateDesc.orderClause())
	assert.Equal(t, "books.sort COLLATE NOCASE ASC", SortTitleAsc.orderClause())
	assert.Equal(t, "books.author_sort COLLATE NOCASE DESC", SortAuthorDesc.orderClause())
	assert.Equal(t, "RANDOM()", SortRandom.orderClause())
	assert.Equal(t, "books.series_index DESC", SortSeries.orderClause())
}

func TestPageParamsNormalize(t *testing.T) {
	p := PageParams{}.Normalize(20, 100)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)

	p = PageParams{Page: 3, PageSize: 500}.Normalize(20, 100)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.PageSize)
	assert.Equal(t, 200, p.Offset())
}

func TestNewPage(t *testing.T) {
	params := PageParams{Page: 2, PageSize: 10}
	page := NewPage([]int{1, 2, 3}, params, 25)

	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasMore)

	last := NewPage([]int{1}, PageParams{Page: 3, PageSize: 10}, 25)
	assert.False(t, last.HasMore)
}
