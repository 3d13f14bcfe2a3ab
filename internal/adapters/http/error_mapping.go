package httpadapter

import (
	"net/http"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrParse):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrCountMismatch):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrRenderTimeout):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrRender),
		domain.IsKind(err, domain.ErrStorage),
		domain.IsKind(err, domain.ErrDB):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
