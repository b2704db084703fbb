package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	"github.com/fixhub/realtime-backend/internal/core/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var (
	// ErrSendBufferFull is returned by Send when the outbound buffer is at
	// capacity. The publisher treats it as a dropped delivery.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrSendClosed is returned by Send once the connection is shutting
	// down. Like a full buffer, it is a dropped delivery, never a panic: a
	// publish can race a disconnect because the publisher resolves its
	// targets before the registry entry is removed.
	ErrSendClosed = errors.New("connection closed")
)

// Client owns one websocket connection. It implements realtime.Sink: the
// publisher hands it events, the write pump drains them to the wire. Inbound
// frames are processed in arrival order on the read pump's goroutine.
type Client struct {
	gateway *realtime.Gateway

	// The websocket connection.
	conn *websocket.Conn

	// ConnID identifies this connection in the registry.
	ConnID string

	// Buffered channel of outbound events. Guarded by mu together with
	// closed: Send and CloseSend run on different goroutines, so the close
	// must be observable before any later send attempt.
	send   chan domain.Event
	mu     sync.Mutex
	closed bool

	logger *slog.Logger
}

var _ realtime.Sink = (*Client)(nil)

// NewClient creates a websocket client for an upgraded connection.
func NewClient(gateway *realtime.Gateway, conn *websocket.Conn, connID string, logger *slog.Logger) *Client {
	return &Client{
		gateway: gateway,
		conn:    conn,
		ConnID:  connID,
		send:    make(chan domain.Event, 256),
		logger:  logger.With("conn_id", connID),
	}
}

// Send queues an event for delivery. It never blocks and never panics: a
// full buffer or a connection mid-shutdown means the event is dropped for
// this connection only.
func (c *Client) Send(event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrSendClosed
	}
	select {
	case c.send <- event:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// CloseSend closes the send channel exactly once. After it returns, Send
// fails with ErrSendClosed instead of touching the closed channel.
func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump pumps messages from the websocket connection to the gateway.
// This method runs in its own goroutine. The request context does not
// survive the upgrade, so message handling runs off a fresh background
// context; the gateway applies its own per-operation timeouts.
func (c *Client) ReadPump() {
	ctx := context.Background()
	defer func() {
		c.gateway.Disconnect(c.ConnID)
		c.CloseSend()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.gateway.HandleMessage(ctx, c.ConnID, message)
	}
}

// WritePump pumps events from the send channel to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The channel was closed. Send close message.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON event to the websocket connection
func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}
