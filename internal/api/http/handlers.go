package http

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/coderoom/backend/internal/api/ws"
	"github.com/GriffinCanCode/coderoom/backend/internal/domain/room"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/coderoom/backend/internal/sandbox"
	"github.com/gin-gonic/gin"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	registry *room.Registry
	hub      *ws.Hub
	pool     *sandbox.Pool
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandlers creates a new handler set. metrics and pool may be nil.
func NewHandlers(
	registry *room.Registry,
	hub *ws.Hub,
	pool *sandbox.Pool,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		registry: registry,
		hub:      hub,
		pool:     pool,
		metrics:  metrics,
		logger:   logger.Named("http"),
	}
}

// Root answers the plain liveness check the editor front end polls
func (h *Handlers) Root(c *gin.Context) {
	c.String(http.StatusOK, "Server is running")
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	status := "healthy"
	if h.pool != nil && h.pool.Stats().Closed {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
