// Package service implements the catalog use cases: listing and
// enriching books, category aggregates, and asset resolution. It sits
// between the HTTP layer and the SQLite store and owns the visibility
// policy.
package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/raindrop213/bibi-library/internal/config"
	"github.com/raindrop213/bibi-library/internal/domain"
	"github.com/raindrop213/bibi-library/internal/library"
	"github.com/raindrop213/bibi-library/internal/logger"
	"github.com/raindrop213/bibi-library/internal/store"
	"github.com/raindrop213/bibi-library/internal/store/sqlite"
	"github.com/raindrop213/bibi-library/internal/visibility"
)

// CatalogService orchestrates catalog reads. Every operation takes the
// caller's credential and threads the resulting visibility fragment
// into the store queries.
type CatalogService struct {
	store      *sqlite.Store
	policy     *visibility.Policy
	resolver   *library.Resolver
	pagination config.PaginationConfig
	log        *logger.Logger
}

// NewCatalogService wires the catalog service.
func NewCatalogService(st *sqlite.Store, policy *visibility.Policy, resolver *library.Resolver, pagination config.PaginationConfig, log *logger.Logger) *CatalogService {
	return &CatalogService{
		store:      st,
		policy:     policy,
		resolver:   resolver,
		pagination: pagination,
		log:        log,
	}
}

// buildQuery composes the visibility gate and the request filters into
// one builder, and resolves the effective ordering. An active series
// filter forces series-index order regardless of the requested sort.
func (s *CatalogService) buildQuery(credential string, f store.Filters) (*store.Builder, store.Sort) {
	b := &store.Builder{}
	b.Add(s.policy.Fragment(credential))

	if f.Search != "" {
		b.Add(store.SearchFragment(f.Search))
	}
	if f.AuthorID > 0 {
		b.Add(store.AuthorFragment(f.AuthorID))
	}
	if f.Publisher > 0 {
		b.Add(store.PublisherFragment(f.Publisher))
	}
	if f.TagID > 0 {
		b.Add(store.TagFragment(f.TagID))
	}
	if f.SeriesID > 0 {
		b.Add(store.SeriesFragment(f.SeriesID))
	}
	if f.Language != "" {
		b.Add(store.LanguageFragment(f.Language))
	}

	order := f.Sort
	if f.SeriesID > 0 {
		order = store.SortSeries
	}
	return b, order
}

// maxPageSize caps the requested page size on every paginated listing.
const maxPageSize = 100

// ListBooks returns one page of books matching the filters, with author
// names attached in a single batched lookup.
func (s *CatalogService) ListBooks(ctx context.Context, credential string, f store.Filters, params store.PageParams) (store.Page[domain.BookSummary], error) {
	defaultSize := s.pagination.PageSize
	if f.SeriesID > 0 {
		defaultSize = s.pagination.SeriesPageSize
	}
	params = params.Normalize(defaultSize, maxPageSize)

	b, order := s.buildQuery(credential, f)
	books, total, err := s.store.ListBooks(ctx, b, order, params)
	if err != nil {
		return store.Page[domain.BookSummary]{}, err
	}

	if err := s.attachAuthors(ctx, books); err != nil {
		return store.Page[domain.BookSummary]{}, err
	}
	return store.NewPage(books, params, total), nil
}

// attachAuthors fills the Authors field of every summary from one
// IN-query over the link table.
func (s *CatalogService) attachAuthors(ctx context.Context, books []domain.BookSummary) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]int64, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	byBook, err := s.store.AuthorsForBooks(ctx, ids)
	if err != nil {
		return err
	}
	for i := range books {
		authors := byBook[books[i].ID]
		if authors == nil {
			authors = []string{}
		}
		books[i].Authors = authors
	}
	return nil
}

// GetBook returns the full detail of one visible book. The per-book
// lookups fan out in parallel; the first failure cancels the rest.
func (s *CatalogService) GetBook(ctx context.Context, credential string, id int64) (domain.BookDetail, error) {
	b, _ := s.buildQuery(credential, store.Filters{})
	summary, err := s.store.GetBook(ctx, b, id)
	if err != nil {
		return domain.BookDetail{}, err
	}

	detail := domain.BookDetail{BookSummary: summary}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		byBook, err := s.store.AuthorsForBooks(gctx, []int64{id})
		if err != nil {
			return err
		}
		detail.Authors = byBook[id]
		return nil
	})
	g.Go(func() error {
		name, err := s.store.SeriesForBook(gctx, id)
		if err != nil {
			return err
		}
		detail.Series = name
		return nil
	})
	g.Go(func() error {
		publishers, err := s.store.PublishersForBook(gctx, id)
		if err != nil {
			return err
		}
		detail.Publishers = publishers
		return nil
	})
	g.Go(func() error {
		tags, err := s.store.TagsForBook(gctx, id)
		if err != nil {
			return err
		}
		detail.Tags = tags
		return nil
	})
	g.Go(func() error {
		codes, err := s.store.LanguagesForBook(gctx, id)
		if err != nil {
			return err
		}
		names := make([]string, len(codes))
		for i, c := range codes {
			names[i] = languageName(c)
		}
		detail.Languages = names
		return nil
	})
	g.Go(func() error {
		identifiers, err := s.store.IdentifiersForBook(gctx, id)
		if err != nil {
			return err
		}
		detail.Identifiers = identifiers
		return nil
	})
	g.Go(func() error {
		html, err := s.store.CommentsForBook(gctx, id)
		if err != nil {
			return err
		}
		detail.Comments = htmlToMarkdown(html)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.BookDetail{}, err
	}

	if detail.Authors == nil {
		detail.Authors = []string{}
	}
	if detail.Publishers == nil {
		detail.Publishers = []string{}
	}
	if detail.Tags == nil {
		detail.Tags = []string{}
	}
	if detail.Languages == nil {
		detail.Languages = []string{}
	}
	if detail.Identifiers == nil {
		detail.Identifiers = []domain.Identifier{}
	}

	base := fmt.Sprintf("/api/v1/books/%d", id)
	if summary.HasCover {
		if _, err := s.resolver.CoverPath(summary.Path); err == nil {
			detail.CoverURL = base + "/cover?size=full"
			detail.ThumbURL = base + "/cover"
		}
	}
	if _, err := s.resolver.EpubPath(summary.Path); err == nil {
		detail.EpubURL = base + "/file"
	}
	return detail, nil
}

// ListAuthors returns the author aggregate visible to the caller.
func (s *CatalogService) ListAuthors(ctx context.Context, credential string) ([]domain.CategoryEntry, error) {
	return s.store.ListAuthors(ctx, s.policy.Fragment(credential))
}

// ListPublishers returns the publisher aggregate visible to the caller.
func (s *CatalogService) ListPublishers(ctx context.Context, credential string) ([]domain.CategoryEntry, error) {
	return s.store.ListPublishers(ctx, s.policy.Fragment(credential))
}

// ListTags returns the tag aggregate visible to the caller.
func (s *CatalogService) ListTags(ctx context.Context, credential string) ([]domain.CategoryEntry, error) {
	return s.store.ListTags(ctx, s.policy.Fragment(credential), s.policy.ExcludedTags())
}

// ListLanguages returns the language aggregate with display names.
func (s *CatalogService) ListLanguages(ctx context.Context, credential string) ([]domain.CategoryEntry, error) {
	entries, err := s.store.ListLanguages(ctx, s.policy.Fragment(credential))
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Name = languageName(entries[i].Name)
	}
	return entries, nil
}

// ListSeries returns one page of the series aggregate.
func (s *CatalogService) ListSeries(ctx context.Context, credential string, params store.PageParams) (store.Page[domain.SeriesEntry], error) {
	params = params.Normalize(s.pagination.SeriesPageSize, maxPageSize)
	entries, total, err := s.store.ListSeries(ctx, s.policy.Fragment(credential), params)
	if err != nil {
		return store.Page[domain.SeriesEntry]{}, err
	}
	return store.NewPage(entries, params, total), nil
}

// FindSeries looks up one series aggregate by exact name.
func (s *CatalogService) FindSeries(ctx context.Context, credential, name string) (domain.SeriesEntry, error) {
	return s.store.GetSeriesByName(ctx, s.policy.Fragment(credential), name)
}

// Book returns the summary row of a single visible book.
func (s *CatalogService) Book(ctx context.Context, credential string, id int64) (domain.BookSummary, error) {
	b, _ := s.buildQuery(credential, store.Filters{})
	return s.store.GetBook(ctx, b, id)
}

// CoverPathFor resolves the full cover image of an already-fetched book.
func (s *CatalogService) CoverPathFor(book domain.BookSummary) (string, error) {
	return s.resolver.CoverPath(book.Path)
}

// CoverPath resolves the full cover image of a visible book.
func (s *CatalogService) CoverPath(ctx context.Context, credential string, id int64) (string, error) {
	book, err := s.Book(ctx, credential, id)
	if err != nil {
		return "", err
	}
	return s.resolver.CoverPath(book.Path)
}

// EpubPath resolves the EPUB file of a visible book, returning the
// path and the book for download naming.
func (s *CatalogService) EpubPath(ctx context.Context, credential string, id int64) (string, domain.BookSummary, error) {
	b, _ := s.buildQuery(credential, store.Filters{})
	book, err := s.store.GetBook(ctx, b, id)
	if err != nil {
		return "", domain.BookSummary{}, err
	}
	path, err := s.resolver.EpubPath(book.Path)
	if err != nil {
		return "", domain.BookSummary{}, err
	}
	return path, book, nil
}

// Health checks the database connection.
func (s *CatalogService) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}
