package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/guanago/guanago/internal/realtime"
)

// RealtimeHandler exposes the catalog event stream over WebSocket.
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// GET /ws/catalog
func (h *RealtimeHandler) Catalog(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request)
}
