package httpkit

import (
	"time"

	"github.com/TekupDK/tekup-sub017/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID attaches a request ID to the gin context and response headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(string(logger.RequestIDKey), id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// RequestLogger logs each request with latency via the structured logger.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := float64(time.Since(start).Microseconds()) / 1000.0
		log.HTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), latency, c.ClientIP())
	}
}
