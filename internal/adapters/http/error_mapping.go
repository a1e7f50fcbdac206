package httpadapter

import (
	"net/http"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrUnsupportedFormat),
		domain.IsKind(err, domain.ErrExtractionFailure),
		domain.IsKind(err, domain.ErrUnknownDisease):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrAnalysisNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrModelUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
