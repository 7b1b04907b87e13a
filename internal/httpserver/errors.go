package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"woocart-bridge/internal/domain"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrMutationRejected):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// messageFor returns the caller-facing text of err. Store and unknown
// failures get a generic message; the details are logged instead.
func messageFor(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Error()
	}
	switch statusFor(err) {
	case http.StatusServiceUnavailable:
		return "service unavailable"
	case http.StatusInternalServerError:
		return "internal error"
	}
	for _, kind := range []error{
		domain.ErrUnauthorized, domain.ErrForbidden, domain.ErrValidation,
		domain.ErrNotFound, domain.ErrMutationRejected,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal error"
}

func (h *handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Printf("request_id=%s %s %s error=%v", requestID(c), c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": messageFor(err)})
}
