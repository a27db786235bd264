// Package domain defines the core entities served by the catalog.
// These types mirror the Calibre metadata layout but are shaped for the
// JSON surface, not for storage.
package domain

import "time"

// BookSummary is the list-view projection of a book. Author names are
// attached by the service layer in a single batched lookup.
type BookSummary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Sort        string    `json:"sort,omitempty"`
	AuthorSort  string    `json:"author_sort,omitempty"`
	Authors     []string  `json:"authors"`
	Series      string    `json:"series,omitempty"`
	SeriesIndex float64   `json:"series_index,omitempty"`
	PubDate     time.Time `json:"pubdate,omitempty"`
	AddedAt     time.Time `json:"timestamp"`
	HasCover    bool      `json:"has_cover"`
	Path        string    `json:"-"`
}

// Identifier is an external identifier attached to a book (isbn, mobi-asin...).
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// BookDetail is the full projection returned by the single-book endpoint.
// Comments arrive as HTML in Calibre and are served as Markdown.
type BookDetail struct {
	BookSummary

	Publishers  []string     `json:"publishers"`
	Tags        []string     `json:"tags"`
	Languages   []string     `json:"languages"`
	Identifiers []Identifier `json:"identifiers"`
	Comments    string       `json:"comments,omitempty"`

	// Asset links, absent when the underlying file does not exist.
	CoverURL string `json:"cover_url,omitempty"`
	ThumbURL string `json:"thumb_url,omitempty"`
	EpubURL  string `json:"epub_url,omitempty"`
}

// CategoryEntry is one row of an aggregate listing (authors, publishers,
// tags or languages) with the number of visible books carrying it.
type CategoryEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// SeriesEntry is one row of the series aggregate. The cover book is the
// highest-numbered visible volume and backs the series thumbnail.
type SeriesEntry struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Count            int64     `json:"count"`
	EarliestPosition float64   `json:"earliest_position"`
	LatestAddition   time.Time `json:"latest_addition"`
	CoverBookID      int64     `json:"cover_book_id,omitempty"`
}
