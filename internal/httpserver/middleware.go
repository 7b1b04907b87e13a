package httpserver

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"woocart-bridge/internal/livecart"
	"woocart-bridge/internal/service/auth"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestIDMiddleware keeps a caller supplied X-Request-ID or assigns one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// authMiddleware verifies API credentials and binds the caller identity.
func (h *handlers) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.verifier.Verify(c.Request.Context(), c.Request)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// liveCartMiddleware gives each request its own live cart and empties it
// when the request ends, including when a handler panics.
func liveCartMiddleware(catalog livecart.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		lc := livecart.New(catalog)
		c.Request = c.Request.WithContext(livecart.WithCart(c.Request.Context(), lc))
		defer lc.Reset()
		c.Next()
	}
}
