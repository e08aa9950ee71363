package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SyncStats serves the JSON synchronization statistics: counter mirrors
// plus rolling latency summaries. Prometheus exposition lives on
// /metrics; this endpoint is for dashboards that want numbers, not
// scrape text.
func (h *Handlers) SyncStats(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics collection disabled"})
		return
	}

	c.JSON(http.StatusOK, h.metrics.SyncSnapshot())
}
