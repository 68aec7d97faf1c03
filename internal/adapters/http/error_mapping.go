package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/usecase"
)

func mapErrorToHTTPStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrConfirmationRequired):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrSizeLimit):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrQuotaExhausted):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrIngestionTimeout):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrMalformedResponse), domain.IsKind(err, domain.ErrProcessingFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": ...}. Internal failures are logged
// and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := usecase.UserMessage(err)
	if status == http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}
