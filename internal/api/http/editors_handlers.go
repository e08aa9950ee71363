package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/venuely/editor-bridge/internal/domain/editor"
	"github.com/venuely/editor-bridge/internal/profile"
	"github.com/venuely/editor-bridge/internal/shared/hash"
	"github.com/venuely/editor-bridge/internal/shared/id"
)

// CreateEditorRequest is the body for POST /editors. Every field is
// optional; an empty object provisions a default-profile editor.
type CreateEditorRequest struct {
	ProfileID   string `json:"profile_id"`
	Content     string `json:"content"`
	Placeholder string `json:"placeholder"`
}

// UpdateContentRequest is the body for PUT /editors/:id/content. The
// pointer distinguishes a missing field from a deliberate empty
// document.
type UpdateContentRequest struct {
	Content *string `json:"content"`
}

// createEditorResponse decorates the fresh session with the path a
// sandbox surface should dial to attach.
type createEditorResponse struct {
	*editor.Session
	AttachURL string `json:"attach_url"`
}

// CreateEditor provisions a new editor session
func (h *Handlers) CreateEditor(c *gin.Context) {
	var req CreateEditorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sess, err := h.editor.Create(editor.CreateParams{
		ProfileID:      req.ProfileID,
		InitialContent: req.Content,
		Placeholder:    req.Placeholder,
	})
	if err != nil {
		// A bad profile reference is a request defect, not a missing
		// resource.
		if errors.Is(err, profile.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, createEditorResponse{
		Session:   sess,
		AttachURL: "/editors/" + sess.ID + "/attach",
	})
}

// ListEditors lists editor sessions, optionally filtered by state
func (h *Handlers) ListEditors(c *gin.Context) {
	var state *editor.AttachState
	if raw := c.Query("state"); raw != "" {
		s := editor.AttachState(raw)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown state filter: " + raw})
			return
		}
		state = &s
	}

	c.JSON(http.StatusOK, gin.H{
		"editors": h.editor.List(state),
		"stats":   h.editor.Stats(),
	})
}

// GetEditor returns one session snapshot
func (h *Handlers) GetEditor(c *gin.Context) {
	sessionID := c.Param("id")
	if !id.IsValid(sessionID, id.EditorPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed session id"})
		return
	}

	sess, err := h.editor.Get(sessionID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

// GetContent returns the canonical document for a session
func (h *Handlers) GetContent(c *gin.Context) {
	sessionID := c.Param("id")
	if !id.IsValid(sessionID, id.EditorPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed session id"})
		return
	}

	sess, err := h.editor.Get(sessionID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"content":    sess.Content,
		"digest":     hash.Content(sess.Content).String(),
		"updated_at": sess.UpdatedAt,
	})
}

// PutContent replaces the canonical document for a session
func (h *Handlers) PutContent(c *gin.Context) {
	sessionID := c.Param("id")
	if !id.IsValid(sessionID, id.EditorPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed session id"})
		return
	}

	var req UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.Content == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	sess, err := h.editor.SetContent(sessionID, *req.Content)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sess,
	})
}

// CloseEditor ends a session
func (h *Handlers) CloseEditor(c *gin.Context) {
	sessionID := c.Param("id")
	if !id.IsValid(sessionID, id.EditorPrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed session id"})
		return
	}

	if err := h.editor.Close(sessionID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
	})
}
