package handler

import (
	"context"
	"net/http"
	"time"

	"auctions/utils"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// LiveHandler handles GET /health
func (h *HealthHandler) LiveHandler(c *gin.Context) {
	utils.JSONResponse(c, http.StatusOK, gin.H{"status": "ok"}, "alive")
}

// ReadyHandler handles GET /health/ready
func (h *HealthHandler) ReadyHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, err, "store unavailable")
		utils.Error("ReadyHandler: store ping failed", map[string]any{"error": err.Error()})
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"status": "ready"}, "ready")
}
