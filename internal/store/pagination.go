package store

// PageParams normalizes page and page-size values coming off the wire.
type PageParams struct {
	Page     int
	PageSize int
}

// Normalize clamps the parameters to sane values, substituting the
// given default size when the request carried none.
func (p PageParams) Normalize(defaultSize, maxSize int) PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p
}

// Offset returns the row offset for the page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is one page of results together with its pagination envelope.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// NewPage assembles the envelope around a slice of items.
func NewPage[T any](items []T, params PageParams, total int64) Page[T] {
	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return Page[T]{
		Items:      items,
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    params.Page < totalPages,
	}
}
