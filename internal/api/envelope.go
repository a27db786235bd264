package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/raindrop213/bibi-library/internal/http/response"
)

// EnvelopeTransformer wraps every JSON body in the shared response
// envelope so huma-registered operations and the raw chi handlers
// present the same shape.
func EnvelopeTransformer(ctx huma.Context, status string, v any) (any, error) {
	if v == nil {
		return v, nil
	}
	if errModel, ok := v.(*huma.ErrorModel); ok {
		msg := errModel.Title
		if errModel.Detail != "" {
			msg = errModel.Detail
		}
		return response.Envelope{Error: msg, Success: false}, nil
	}
	if _, ok := v.(response.Envelope); ok {
		return v, nil
	}
	return response.Envelope{Data: v, Success: true}, nil
}
