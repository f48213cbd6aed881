package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one live socket. UserID stays empty until the client
// sends a join event; the transport itself is unauthenticated at handshake.
//
// Send is never closed: WriteLoop exits with the connection context, so a
// route racing a teardown queues to a dead channel at worst.
type Client struct {
	ID     string          // Unique connection handle
	UserID string          // Set on join
	Conn   *websocket.Conn // WebSocket connection
	Send   chan []byte     // Outbound event frames, drained by WriteLoop
	mu     sync.Mutex      // Protects conn writes and close
	closed bool
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, 256),
	}
}

// WriteLoop is the single writer for the connection; events queued on Send
// reach the wire in queue order.
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case msg := <-c.Send:
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
		case <-ticker.C:
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.PingMessage, []byte("ping"))
			c.mu.Unlock()
		}
	}
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
	c.mu.Unlock()
}

// TrySend queues an event frame without blocking. A full buffer means the
// peer cannot keep up; the caller treats the connection as dead. Frames
// offered after Close are dropped.
func (c *Client) TrySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}
