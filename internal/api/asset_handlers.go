package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/raindrop213/bibi-library/internal/http/response"
)

// Cover and file routes use chi directly for streaming, not huma.
func (s *Server) registerAssetRoutes() {
	s.router.Get("/api/v1/books/{id}/cover", s.handleCover)
	s.router.Get("/api/v1/books/{id}/file", s.handleFile)
}

// handleCover serves the cover image. size=thumb (the default) serves
// the cached thumbnail, falling back to the full cover when derivation
// fails; size=full always serves the original. A cached thumbnail is
// served without consulting the library directory at all.
func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid book id", s.log.Logger)
		return
	}

	book, err := s.catalog.Book(r.Context(), credential(r), id)
	if err != nil {
		response.HandleError(w, err, s.log.Logger)
		return
	}

	wantThumb := r.URL.Query().Get("size") != "full"
	if wantThumb {
		if cached, ok := s.thumbs.Lookup(id); ok {
			serveImage(w, r, cached)
			return
		}
	}

	coverPath, err := s.catalog.CoverPathFor(book)
	if err != nil {
		response.HandleError(w, err, s.log.Logger)
		return
	}

	servePath := coverPath
	if wantThumb {
		thumbPath, err := s.thumbs.Get(r.Context(), id, coverPath)
		if err != nil {
			s.log.Warn("thumbnail derivation failed, serving full cover", "book_id", id, "error", err)
		} else {
			servePath = thumbPath
		}
	}
	serveImage(w, r, servePath)
}

func serveImage(w http.ResponseWriter, r *http.Request, path string) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}

// handleFile serves the book's EPUB as a download.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid book id", s.log.Logger)
		return
	}

	path, book, err := s.catalog.EpubPath(r.Context(), credential(r), id)
	if err != nil {
		response.HandleError(w, err, s.log.Logger)
		return
	}

	filename := book.Title + filepath.Ext(path)
	w.Header().Set("Content-Type", "application/epub+zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}
