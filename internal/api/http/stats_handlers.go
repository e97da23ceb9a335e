package http

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/coderoom/backend/internal/domain/room"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/coderoom/backend/internal/sandbox"
	"github.com/gin-gonic/gin"
)

// StatsSnapshot aggregates the live state of every component
type StatsSnapshot struct {
	Timestamp    time.Time                   `json:"timestamp"`
	Rooms        room.Stats                  `json:"rooms"`
	Connections  int                         `json:"connections"`
	Sandbox      *sandbox.PoolStats          `json:"sandbox,omitempty"`
	OpenBreakers []string                    `json:"open_breakers"`
	Metrics      *monitoring.MetricsSnapshot `json:"metrics,omitempty"`
}

// Stats reports room, connection, sandbox and breaker state
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot())
}

func (h *Handlers) snapshot() StatsSnapshot {
	snapshot := StatsSnapshot{
		Timestamp:    time.Now(),
		Rooms:        h.registry.Stats(),
		OpenBreakers: []string{},
	}

	if h.hub != nil {
		snapshot.Connections = h.hub.Connections()
		if open := h.hub.Breakers().Open(); len(open) > 0 {
			snapshot.OpenBreakers = open
		}
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		snapshot.Sandbox = &stats
	}
	if h.metrics != nil {
		metrics := h.metrics.Snapshot()
		snapshot.Metrics = &metrics
	}

	return snapshot
}
