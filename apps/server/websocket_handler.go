package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mahaj/chat-relay/pkg/relay"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer.
	maxFrameSize = 16 << 10

	sendBuffer = 256
)

var (
	errClientClosed = errors.New("client closed")
	errSendBuffer   = errors.New("send buffer full")
)

// Client is a middleman between the websocket connection and the relay.
type Client struct {
	core   *relay.Core
	conn   *websocket.Conn
	logger *slog.Logger

	// Buffered channel of outbound frames.
	send chan []byte

	// Connection id, fresh for every websocket session.
	ID string

	mu     sync.Mutex
	closed bool
}

// Deliver queues payload for the write pump. It never blocks: a full
// buffer drops the frame.
func (c *Client) Deliver(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errSendBuffer
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump pumps frames from the websocket connection to the relay.
func (c *Client) readPump(ctx context.Context, done func()) {
	defer func() {
		c.core.Disconnect(ctx, c.ID)
		c.close()
		c.conn.Close()
		done()
	}()
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", "conn_id", c.ID, "err", err)
			}
			break
		}
		c.core.HandleFrame(ctx, c.ID, bytes.TrimSpace(frame))
	}
}

// writePump pumps frames from the relay to the websocket connection, one
// event per websocket message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The relay dropped the connection.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// serveWs upgrades the request and registers a new connection. Users
// identify themselves later with a join event.
func (s *server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := &Client{
		core:   s.core,
		conn:   conn,
		logger: s.logger,
		send:   make(chan []byte, sendBuffer),
		ID:     uuid.NewString(),
	}
	if err := s.core.Connect(client.ID, client); err != nil {
		conn.Close()
		return
	}
	s.track(client)

	// The request context ends when this handler returns.
	ctx := context.WithoutCancel(r.Context())
	go client.writePump()
	go client.readPump(ctx, func() { s.untrack(client) })
}
