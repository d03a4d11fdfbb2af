// Package ws implements the WSHub connection set and message dispatch
// of spec.md §4.8, grounded on the read/write pump and send-channel
// shape of
// other_examples/cefbbdaa_OpenSrcerer-navidrome__server-listentogether-hub.go.go,
// adapted from Navidrome's listen-together session protocol to this
// game's join/submit/admin message vocabulary.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 32
)

// conn wraps one client's WebSocket, matching Participant's
// ReadPump/WritePump split from the grounding example.
type conn struct {
	ws      *websocket.Conn
	send    chan []byte
	name    string // player name once joined, "" before
	isAdmin bool
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
}

func newConn(wsConn *websocket.Conn, log *zap.Logger) *conn {
	return &conn{ws: wsConn, send: make(chan []byte, sendBufferSize), log: log}
}

// enqueue non-blockingly drops the message if the send buffer is full
// rather than stalling the broadcast loop (spec.md §5 "a send failure
// on one socket never stops delivery to others"), reporting whether
// the message was actually queued.
func (c *conn) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		c.log.Warn("dropping message, send buffer full", zap.String("name", c.name))
		return false
	}
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump decodes inbound frames and forwards them to handle.
// Grounded on Participant.ReadPump.
func (c *conn) readPump(handle func(*conn, json.RawMessage)) {
	defer func() {
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		handle(c, raw)
	}
}

// writePump drains the send channel to the socket with periodic
// keepalive pings. Grounded on Participant.WritePump.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
