package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Paths whose traffic is machine-generated and would drown the request
// metrics on a quiet bridge: scrapes and liveness probes.
var unobservedPaths = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
}

// Middleware records every request into the HTTP metrics family,
// labeled by route template rather than raw URL so path cardinality
// stays bounded.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if _, skip := unobservedPaths[route]; skip {
			c.Next()
			return
		}

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		start := time.Now()
		c.Next()

		metrics.RecordHTTPRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			reqSize,
			int64(c.Writer.Size()),
		)
	}
}
