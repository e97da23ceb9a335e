package ws

import (
	"time"

	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256

	// Rate limit violations tolerated before the connection is closed
	maxRateViolations = 1000
)

// MsgRateLimited is the error event text for throttled frames.
const MsgRateLimited = "rate limit exceeded"

// Client is one event channel connection
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	logger  *logging.Logger

	maxMessageBytes int64
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.id
}

// readPump forwards frames to the hub until the connection fails
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	violations := 0

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", logging.ConnID(c.id), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			violations++
			if violations%100 == 1 {
				c.logger.Warn("Rate limit exceeded",
					logging.ConnID(c.id),
					zap.Int("violations", violations),
				)
				c.hub.Notify(c, MsgRateLimited)
			}
			if violations > maxRateViolations {
				c.logger.Warn("Disconnecting client for excessive rate limit violations", logging.ConnID(c.id))
				return
			}
			continue
		}

		if !c.hub.Submit(c, message) {
			return
		}
	}
}

// writePump drains the send channel and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
