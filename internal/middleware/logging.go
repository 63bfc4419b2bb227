package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mudler/xlog"
)

// RequestLogger logs one line per request. Server errors log at error level.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		if sess := CurrentSession(c); sess != nil {
			fields = append(fields, "username", sess.Username)
		}
		switch {
		case status >= 500:
			xlog.Error("HTTP request", fields...)
		case status >= 400:
			xlog.Warn("HTTP request", fields...)
		default:
			xlog.Debug("HTTP request", fields...)
		}
	}
}
