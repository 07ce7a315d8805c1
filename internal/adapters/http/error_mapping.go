package httpadapter

import (
	"net/http"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrInvalidState):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrSchemaViolation),
		domain.IsKind(err, domain.ErrGeneration),
		domain.IsKind(err, domain.ErrVerification):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
