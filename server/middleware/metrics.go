package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcriber/observability"
)

// Metrics records request count, latency and in-flight requests. It runs
// inside gin so routes are reported by pattern ("/status/:task_id"), not
// by concrete path.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.RecordRequestStart(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequestEnd(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
