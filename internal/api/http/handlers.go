package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/venuely/editor-bridge/internal/domain/editor"
	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
	"github.com/venuely/editor-bridge/internal/infrastructure/monitoring"
	"github.com/venuely/editor-bridge/internal/profile"
)

const serviceVersion = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	editor   *editor.Manager
	profiles *profile.Registry
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(mgr *editor.Manager, profiles *profile.Registry, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{
		editor:   mgr,
		profiles: profiles,
		metrics:  metrics,
		log:      log.Named("http"),
	}
}

// Root reports service identity
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "venuely-editor-bridge",
		"version": serviceVersion,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.editor.Stats(),
		"profiles": gin.H{"count": len(h.profiles.List())},
	})
}

// statusFor maps domain errors onto HTTP status codes. Unknown errors
// surface as 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, editor.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrClosed), errors.Is(err, editor.ErrAttachmentConflict):
		return http.StatusConflict
	case errors.Is(err, editor.ErrContentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, editor.ErrSessionLimit):
		return http.StatusServiceUnavailable
	case errors.Is(err, profile.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the mapped error response.
func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
