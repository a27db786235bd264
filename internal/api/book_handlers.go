package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/raindrop213/bibi-library/internal/domain"
	"github.com/raindrop213/bibi-library/internal/store"
)

// ListBooksInput carries the listing filters off the query string.
type ListBooksInput struct {
	AccessKey string `header:"X-Access-Key" doc:"Shared catalog secret for full visibility"`
	Search    string `query:"search" doc:"Match against title and author"`
	AuthorID  int64  `query:"author" doc:"Filter by author id"`
	Publisher int64  `query:"publisher" doc:"Filter by publisher id"`
	TagID     int64  `query:"tag" doc:"Filter by tag id"`
	SeriesID  int64  `query:"series" doc:"Filter by series id"`
	Language  string `query:"language" doc:"Filter by language code"`
	Sort      string `query:"sort" doc:"Ordering; unknown values fall back to date-desc"`
	Page      int    `query:"page" doc:"Page number, 1-based"`
	PageSize  int    `query:"pageSize" doc:"Books per page, capped at 100"`
}

// BookListBody is the paginated book listing.
type BookListBody struct {
	Books      []domain.BookSummary `json:"books"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	Total      int64                `json:"total"`
	TotalPages int                  `json:"totalPages"`
	HasMore    bool                 `json:"hasMore"`
}

type ListBooksOutput struct {
	Body BookListBody
}

type GetBookInput struct {
	AccessKey string `header:"X-Access-Key" doc:"Shared catalog secret for full visibility"`
	ID        int64  `path:"id" doc:"Book id"`
}

type GetBookOutput struct {
	Body domain.BookDetail
}

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-books",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns one page of books matching the given filters and ordering.",
		Tags:        []string{"Books"},
	}, func(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
		filters := store.Filters{
			Search:    input.Search,
			AuthorID:  input.AuthorID,
			Publisher: input.Publisher,
			TagID:     input.TagID,
			SeriesID:  input.SeriesID,
			Language:  input.Language,
			Sort:      store.ParseSort(input.Sort),
		}
		params := store.PageParams{Page: input.Page, PageSize: input.PageSize}

		page, err := s.catalog.ListBooks(ctx, input.AccessKey, filters, params)
		if err != nil {
			return nil, humaError(err)
		}
		if page.Items == nil {
			page.Items = []domain.BookSummary{}
		}
		return &ListBooksOutput{Body: BookListBody{
			Books:      page.Items,
			Page:       page.Page,
			PageSize:   page.PageSize,
			Total:      page.Total,
			TotalPages: page.TotalPages,
			HasMore:    page.HasMore,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-book",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book detail",
		Description: "Returns the full metadata of one book, including tags, identifiers and Markdown description.",
		Tags:        []string{"Books"},
	}, func(ctx context.Context, input *GetBookInput) (*GetBookOutput, error) {
		detail, err := s.catalog.GetBook(ctx, input.AccessKey, input.ID)
		if err != nil {
			return nil, humaError(err)
		}
		return &GetBookOutput{Body: detail}, nil
	})
}
