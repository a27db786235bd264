package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/raindrop213/bibi-library/internal/domain"
	"github.com/raindrop213/bibi-library/internal/store"
)

type CategoryInput struct {
	AccessKey string `header:"X-Access-Key" doc:"Shared catalog secret for full visibility"`
}

type CategoryOutput struct {
	Body []domain.CategoryEntry
}

type ListSeriesInput struct {
	AccessKey string `header:"X-Access-Key" doc:"Shared catalog secret for full visibility"`
	Page      int    `query:"page" doc:"Page number, 1-based"`
	PageSize  int    `query:"pageSize" doc:"Series per page, capped at 100"`
}

type GetSeriesInput struct {
	AccessKey string `header:"X-Access-Key" doc:"Shared catalog secret for full visibility"`
	Name      string `path:"name" doc:"Exact series name, matched case-insensitively"`
}

type GetSeriesOutput struct {
	Body domain.SeriesEntry
}

// SeriesListBody is the paginated series aggregate.
type SeriesListBody struct {
	Series     []domain.SeriesEntry `json:"series"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	Total      int64                `json:"total"`
	TotalPages int                  `json:"totalPages"`
	HasMore    bool                 `json:"hasMore"`
}

type ListSeriesOutput struct {
	Body SeriesListBody
}

func (s *Server) registerCategoryRoutes() {
	type lister func(ctx context.Context, credential string) ([]domain.CategoryEntry, error)

	register := func(id, path, name string, list lister) {
		huma.Register(s.api, huma.Operation{
			OperationID: id,
			Method:      http.MethodGet,
			Path:        path,
			Summary:     "List " + name,
			Description: "Returns every " + name + " entry with at least one visible book and its book count.",
			Tags:        []string{"Categories"},
		}, func(ctx context.Context, input *CategoryInput) (*CategoryOutput, error) {
			entries, err := list(ctx, input.AccessKey)
			if err != nil {
				return nil, humaError(err)
			}
			if entries == nil {
				entries = []domain.CategoryEntry{}
			}
			return &CategoryOutput{Body: entries}, nil
		})
	}

	register("list-authors", "/api/v1/authors", "author", s.catalog.ListAuthors)
	register("list-publishers", "/api/v1/publishers", "publisher", s.catalog.ListPublishers)
	register("list-tags", "/api/v1/tags", "tag", s.catalog.ListTags)
	register("list-languages", "/api/v1/languages", "language", s.catalog.ListLanguages)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-series",
		Method:      http.MethodGet,
		Path:        "/api/v1/series",
		Summary:     "List series",
		Description: "Returns one page of series, each with its visible book count and representative cover book.",
		Tags:        []string{"Categories"},
	}, func(ctx context.Context, input *ListSeriesInput) (*ListSeriesOutput, error) {
		page, err := s.catalog.ListSeries(ctx, input.AccessKey, store.PageParams{Page: input.Page, PageSize: input.PageSize})
		if err != nil {
			return nil, humaError(err)
		}
		if page.Items == nil {
			page.Items = []domain.SeriesEntry{}
		}
		return &ListSeriesOutput{Body: SeriesListBody{
			Series:     page.Items,
			Page:       page.Page,
			PageSize:   page.PageSize,
			Total:      page.Total,
			TotalPages: page.TotalPages,
			HasMore:    page.HasMore,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-series",
		Method:      http.MethodGet,
		Path:        "/api/v1/series/{name}",
		Summary:     "Look up a series by name",
		Description: "Returns the aggregate entry for a single series, matched by exact name.",
		Tags:        []string{"Categories"},
	}, func(ctx context.Context, input *GetSeriesInput) (*GetSeriesOutput, error) {
		entry, err := s.catalog.FindSeries(ctx, input.AccessKey, input.Name)
		if err != nil {
			return nil, humaError(err)
		}
		return &GetSeriesOutput{Body: entry}, nil
	})
}
