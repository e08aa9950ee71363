package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/shared/id"
)

// maxLogBatch bounds one surface log upload.
const maxLogBatch = 100

// SurfaceLogEntry represents a log entry from a sandbox surface
type SurfaceLogEntry struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
}

// SurfaceLogRequest represents a batch of logs from a sandbox surface
type SurfaceLogRequest struct {
	Source  string            `json:"source"` // "surface"
	Entries []SurfaceLogEntry `json:"entries"`
}

// StreamLogs ingests diagnostics from sandbox surfaces. The surface
// runs isolated, so this endpoint is its only path into the service
// logs.
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req SurfaceLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}

	if req.Source != "surface" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log source"})
		return
	}

	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}
	if len(req.Entries) > maxLogBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Too many log entries in one batch"})
		return
	}

	processed := 0
	for _, entry := range req.Entries {
		if entry.Message == "" {
			continue
		}
		h.logSurfaceEntry(entry)
		processed++
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"entries_received":  len(req.Entries),
		"entries_processed": processed,
		"timestamp":         time.Now().Unix(),
	})
}

// logSurfaceEntry re-emits one surface entry through the service logger
func (h *Handlers) logSurfaceEntry(entry SurfaceLogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+4)

	fields = append(fields,
		zap.String("surface_log_id", entry.ID),
		zap.String("source", "surface"),
		zap.String("surface_timestamp", entry.Timestamp),
	)
	if id.IsValid(entry.SessionID, id.EditorPrefix) {
		fields = append(fields, zap.String("session_id", entry.SessionID))
	}

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case int:
			fields = append(fields, zap.Int(key, v))
		case int64:
			fields = append(fields, zap.Int64(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		h.log.Error(entry.Message, fields...)
	case "warn":
		h.log.Warn(entry.Message, fields...)
	case "debug", "verbose":
		h.log.Debug(entry.Message, fields...)
	default:
		h.log.Info(entry.Message, fields...)
	}
}
