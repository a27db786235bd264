package api

import (
	"net"
	"net/http"

	"github.com/raindrop213/bibi-library/internal/http/response"
)

func (s *Server) registerAdminRoutes() {
	s.router.Post("/api/v1/admin/thumbnails/purge", s.handlePurge)
}

// handlePurge evicts the whole thumbnail cache on demand. Restricted to
// loopback callers and rate limited per remote host.
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r) {
		response.Forbidden(w, "purge is only available from localhost", s.log.Logger)
		return
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !s.purgeLimiter.Allow(host) {
		response.TooManyRequests(w, "too many purge requests", s.log.Logger)
		return
	}

	removed, err := s.thumbs.Purge()
	if err != nil {
		response.HandleError(w, err, s.log.Logger)
		return
	}

	s.log.Info("thumbnail cache purged", "removed", removed, "remote", r.RemoteAddr)
	response.Success(w, map[string]any{"removed": removed}, s.log.Logger)
}
