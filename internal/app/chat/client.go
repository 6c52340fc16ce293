/*
Package chat contains the core logic of two-party chat.

This file defines the Client struct, representing an active WebSocket connection.
It manages the connection's read and write loops and hands every inbound frame to
the Manager.
*/
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pairchat/internal/app/event"
	"pairchat/internal/pkg/logx"
	"pairchat/internal/pkg/metrics"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 16 << 10
)

// Client struct represents an active WebSocket connection.
type Client struct {
	id string

	manager *Manager

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// mu guards closed so that Send never writes to a closed channel.
	mu     sync.Mutex
	closed bool

	// disconnectOnce makes the Manager teardown run once however the loops exit.
	disconnectOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection. The client is not
// registered until Run is called.
func NewClient(id string, manager *Manager, wsConn *websocket.Conn) *Client {
	return &Client{
		id:      id,
		manager: manager,
		conn:    wsConn,
		send:    make(chan []byte, manager.config.SendQueueSize),
		logger:  logx.Logger().With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Send queues ev for writing without blocking. It reports false when the queue
// is full or the client has already closed.
func (c *Client) Send(ev event.Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Error marshaling event for client")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		metrics.IncSendDropped()
		c.logger.Warn().
			Int("queue_len", len(c.send)).
			Str("event", string(ev.Type)).
			Msg("Client send channel full, dropping event")
		return false
	}
}

// Run registers the client and serves it until the connection ends. It blocks.
func (c *Client) Run() {
	if !c.manager.Register(c) {
		c.Kick("server shutting down")
		return
	}

	go c.WritePump()
	c.ReadPump()
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), dispatches frames, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.manager.Dispatch(c, frame)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.disconnectOnce.Do(func() {
		c.logger.Debug().Msg("Client connection cleanup starting.")

		c.manager.Disconnect(c)
		c.closeSend()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
	})
}

// closeSend closes the send queue once, which tells WritePump to finish.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WritePump handles writing frames from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles frames pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// Kick closes the connection from the server side with a going-away close frame.
// The read loop then fails and runs the normal disconnect teardown.
func (c *Client) Kick(reason string) {
	c.logger.Info().
		Int("close_code", websocket.CloseGoingAway).
		Str("reason", reason).
		Msg("Sending WS close message.")

	closeMessage := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)

	// WriteControl may run concurrently with WritePump.
	if err := c.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send WS close message.")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error in Kick")
	}
}
