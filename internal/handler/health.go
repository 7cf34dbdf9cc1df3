package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casinocore/internal/service"
)

type HealthHandler struct {
	Wallet service.Wallet
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) ready(c *gin.Context) {
	connected := h.Wallet != nil && h.Wallet.Connected()
	c.JSON(http.StatusOK, gin.H{
		"status":           "ready",
		"wallet_connected": connected,
	})
}
