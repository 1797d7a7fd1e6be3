package httpadapter

import (
	"net/http"

	"github.com/fabworks/partquote/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrPartNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrQuoteNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrCatalogNotFound):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
