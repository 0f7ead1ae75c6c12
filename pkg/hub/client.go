package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds what a dashboard may send us
	maxMessageSize = 4 * 1024
)

// registerWait bounds how long NewClient waits for a hub whose Run loop
// is not serving.
var registerWait = 5 * time.Second

// Client represents a single dashboard websocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	registered bool
}

// NewClient creates a new client and registers it with the hub. The hub's
// Run loop must be serving; if it has stopped or does not pick the client
// up within registerWait, the client comes back closed.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 64), // Buffered channel for backpressure
	}

	timer := time.NewTimer(registerWait)
	defer timer.Stop()

	select {
	case hub.register <- client:
		client.registered = true
	case <-hub.done:
		close(client.send)
	case <-timer.C:
		hub.logger.Warn("client rejected, hub not running")
		close(client.send)
	}
	return client
}

// Run starts the client's pumps and blocks until the connection closes.
// Call it from the websocket handler. A client the hub never registered
// is closed at once.
func (c *Client) Run() {
	if !c.registered {
		if c.conn != nil {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			c.conn.Close()
		}
		return
	}
	go c.writePump()
	c.readPump() // Blocks until connection closes
}

// readPump keeps the read side alive until the peer goes away.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Dashboards only listen; reading detects disconnects and pongs
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump is the only writer on the connection.
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
				// Hub closed the channel - send close frame
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("client write failed", "error", err)
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
