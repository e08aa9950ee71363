package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/domain/editor"
	"github.com/venuely/editor-bridge/internal/infrastructure/config"
	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
	"github.com/venuely/editor-bridge/internal/infrastructure/monitoring"
	"github.com/venuely/editor-bridge/internal/shared/id"
)

// Sandbox surfaces load inside the embedding page, so the handshake
// arrives from the page's origin, not ours. Origin policy for the REST
// surface lives in the middleware package.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades attach requests and runs each surface connection
// for its lifetime.
type Handler struct {
	editor  *editor.Manager
	metrics *monitoring.Metrics
	cfg     config.WSConfig
	log     *logging.Logger
}

// NewHandler creates the WebSocket handler. metrics may be nil.
func NewHandler(editorMgr *editor.Manager, metrics *monitoring.Metrics, cfg config.WSConfig, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{
		editor:  editorMgr,
		metrics: metrics,
		cfg:     cfg,
		log:     log.Named("ws"),
	}
}

// Attach handles GET /editors/:id/attach. It upgrades the request and
// binds the surface to the session until the socket dies. One surface
// per session; a second handshake is refused with 409 while the first
// is live, and a fresh attach after detach starts a clean ready cycle.
func (h *Handler) Attach(c *gin.Context) {
	sessionID := c.Param("id")
	if !id.IsValid(sessionID, id.EditorPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed session id"})
		return
	}

	// A refused handshake should carry a real status code, so the
	// common rejections are checked before the upgrade commits the
	// response. Attach re-checks under its own lock; losing that race
	// is handled after the upgrade.
	s, err := h.editor.Get(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	switch s.State {
	case editor.StateClosed:
		c.JSON(http.StatusConflict, gin.H{"error": editor.ErrClosed.Error()})
		return
	case editor.StateAttached:
		c.JSON(http.StatusConflict, gin.H{"error": editor.ErrAttachmentConflict.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.Warn("upgrade failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}
	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	ch := newChannel(conn, h.cfg.WriteTimeout, h.metrics, h.log)
	att, err := h.editor.Attach(sessionID, ch)
	if err != nil {
		ch.shutdown(websocket.ClosePolicyViolation, err.Error())
		return
	}

	connID := uuid.New().String()
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.log.Info("surface connected",
		zap.String("conn_id", connID),
		zap.String("session_id", sessionID),
		zap.String("attachment_id", att.ID),
		zap.String("remote", c.ClientIP()))

	// Blocks until the socket dies, from either side.
	ch.run()

	att.Close()
	ch.Close()
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.log.Info("surface disconnected",
		zap.String("conn_id", connID),
		zap.String("session_id", sessionID))
}
