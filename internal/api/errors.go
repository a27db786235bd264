package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/raindrop213/bibi-library/internal/errors"
)

// humaError maps a domain error onto the status huma should respond
// with. Unknown errors become opaque 500s so internals never leak.
func humaError(err error) error {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return huma.NewError(domainErr.HTTPStatus(), domainErr.Message)
	}
	return huma.NewError(500, "internal server error")
}
