package store

// Sort identifies one of the supported orderings for book listings.
type Sort string

const (
	SortDateDesc    Sort = "date-desc"
	SortDateAsc     Sort = "date-asc"
	SortTitleAsc    Sort = "title-asc"
	SortTitleDesc   Sort = "title-desc"
	SortAuthorAsc   Sort = "author-asc"
	SortAuthorDesc  Sort = "author-desc"
	SortPubDateDesc Sort = "pubdate-desc"
	SortPubDateAsc  Sort = "pubdate-asc"
	SortRandom      Sort = "random"
	SortSeries      Sort = "series"
)

// ParseSort maps a request value onto a known ordering. Unknown or empty
// values fall back to newest-first.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortDateDesc, SortDateAsc, SortTitleAsc, SortTitleDesc,
		SortAuthorAsc, SortAuthorDesc, SortPubDateDesc, SortPubDateAsc,
		SortRandom, SortSeries:
		return Sort(s)
	default:
		return SortDateDesc
	}
}

// orderClause returns the ORDER BY expression for the ordering.
// Title and author orderings use the Calibre sort columns so articles
// and name inversions collate the way the desktop app shows them.
func (s Sort) orderClause() string {
	switch s {
	case SortDateAsc:
		return "books.timestamp ASC"
	case SortTitleAsc:
		return "books.sort COLLATE NOCASE ASC"
	case SortTitleDesc:
		return "books.sort COLLATE NOCASE DESC"
	case SortAuthorAsc:
		return "books.author_sort COLLATE NOCASE ASC"
	case SortAuthorDesc:
		return "books.author_sort COLLATE NOCASE DESC"
	case SortPubDateDesc:
		return "books.pubdate DESC"
	case SortPubDateAsc:
		return "books.pubdate ASC"
	case SortRandom:
		return "RANDOM()"
	case SortSeries:
		return "books.series_index DESC"
	default:
		return "books.timestamp DESC"
	}
}
