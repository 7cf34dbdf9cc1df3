package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casinocore/internal/entropy"
)

// EntropyHandler serves the most recent beacon draw so clients can attach
// the draw and its proof reference to a settlement request.
type EntropyHandler struct {
	Latest *entropy.Latest
}

func (h *EntropyHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/entropy/latest", h.latest)
}

func (h *EntropyHandler) latest(c *gin.Context) {
	if h.Latest == nil {
		Error(c, http.StatusServiceUnavailable, "entropy feed not running")
		return
	}
	draw, ok := h.Latest.Get()
	if !ok {
		Error(c, http.StatusServiceUnavailable, "no draw received yet")
		return
	}
	Ok(c, draw)
}
