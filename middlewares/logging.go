package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger logs each request as structured JSON and tags it with a
// request id, reusing the caller's X-Request-ID when present.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		evt := logger.Info()
		if status >= 500 {
			evt = logger.Error()
		} else if status >= 400 {
			evt = logger.Warn()
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		evt.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration_ms", time.Since(start)).
			Int("bytes_sent", c.Writer.Size()).
			Msg("request")
	}
}
