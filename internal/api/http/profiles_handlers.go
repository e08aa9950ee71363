package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListProfiles lists the editor profiles available to new sessions
func (h *Handlers) ListProfiles(c *gin.Context) {
	profiles := h.profiles.List()

	c.JSON(http.StatusOK, gin.H{
		"profiles": profiles,
		"default":  h.profiles.Default().ID,
	})
}

// GetProfile returns one profile by slug
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.profiles.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}
