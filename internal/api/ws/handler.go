package ws

import (
	"net/http"
	"strings"

	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/coderoom/backend/internal/shared/id"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HandlerConfig configures connection upgrades
type HandlerConfig struct {
	AllowedOrigin     string // "*" accepts any origin
	MaxMessageBytes   int64
	MessagesPerSecond int
	MessageBurst      int
}

// Handler upgrades HTTP requests to event channel connections
type Handler struct {
	hub      *Hub
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, cfg HandlerConfig, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 1 << 20
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = 50
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = cfg.MessagesPerSecond * 2
	}

	h := &Handler{
		hub:    hub,
		cfg:    cfg,
		logger: logger.Named("ws"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin admits the configured origin and non-browser clients
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.cfg.AllowedOrigin == "*" {
		return true
	}
	return strings.EqualFold(strings.TrimSuffix(origin, "/"), strings.TrimSuffix(h.cfg.AllowedOrigin, "/"))
}

// HandleConnection handles WebSocket upgrade and starts the client pumps
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.String("origin", c.GetHeader("Origin")),
			zap.Error(err),
		)
		return
	}

	client := &Client{
		id:              id.NewConnID().String(),
		hub:             h.hub,
		conn:            conn,
		send:            make(chan []byte, sendBuffer),
		limiter:         rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), h.cfg.MessageBurst),
		logger:          h.logger,
		maxMessageBytes: h.cfg.MaxMessageBytes,
	}

	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
