package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func (s *Server) registerHealthRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		if err := s.catalog.Health(ctx); err != nil {
			return nil, huma.NewError(http.StatusServiceUnavailable, "database unreachable")
		}
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})
}
