package http

import (
	"errors"
	"net/http"
	"strings"

	"expenses/internal/core"
	"expenses/internal/log"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// writeServiceError maps ledger errors to status codes. Anything
// unrecognised is logged and reported as a 500 without details.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationErrorResponse(verr).Write(w)
	case errors.Is(err, core.ErrDuplicateCategory):
		ConflictError(err.Error()).Write(w)
	case errors.Is(err, core.ErrCategoryNotFound), errors.Is(err, core.ErrTransactionNotFound):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, core.ErrInvalidPeriod):
		BadRequestError(err.Error()).Write(w)
	default:
		s.slog.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, operation,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
		InternalServerError("internal error").Write(w)
	}
}
