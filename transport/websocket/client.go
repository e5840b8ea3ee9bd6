package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait - deadline for a single outbound frame.
	writeWait = 10 * time.Second

	// pongWait - how long a silent connection survives; refreshed by pongs.
	pongWait = 120 * time.Second

	// pingPeriod - interval between keepalive pings.
	pingPeriod = 30 * time.Second

	maxMessageSize = 8 << 10

	sendQueueSize = 32
)

// client - one authenticated websocket connection. All writes go through
// the send channel so the write pump is the only goroutine touching the
// connection for output.
type client struct {
	userID   string
	username string

	conn *websocket.Conn
	send chan []byte
}

func newClient(userID, username string, conn *websocket.Conn) *client {
	return &client{
		userID:   userID,
		username: username,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
	}
}

// enqueue - queues a frame without blocking; a client that cannot keep up
// loses messages rather than stalling the broadcaster.
func (that *client) enqueue(msg []byte) {
	select {
	case that.send <- msg:
	default:
	}
}

// writePump - drains the send queue and keeps the connection alive with
// pings. Runs in its own goroutine per connection.
func (that *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-that.send:
			if !ok {
				_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
