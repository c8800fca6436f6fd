package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/channelsync/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects request bodies larger than maxBytes. Webhook payloads are
// small; anything bigger is noise or abuse.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "Request body exceeds maximum allowed size", ""))
			return
		}

		// Streaming requests without Content-Length still get capped
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
