package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the correlation ID
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a correlation ID. An incoming header is
// honored so IDs survive proxies; otherwise a new one is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID returns the request's correlation ID, or an empty string
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
