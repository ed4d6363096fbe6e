package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
)

// LoggingMiddleware tags every request with an X-Request-ID (kept if the
// caller sent one) and logs one line per completed request.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDKey, reqID)
		c.Header(RequestIDHeader, reqID)

		c.Next()

		log.Printf("request_id=%s method=%s path=%s status=%d latency=%s",
			reqID, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
