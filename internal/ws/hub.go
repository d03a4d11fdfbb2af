package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"beatify/internal/apierr"
	"beatify/internal/game"
	"beatify/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inbound is the envelope every client message shares (spec.md §4.8
// "Message framing: JSON objects with a type discriminator").
type inbound struct {
	Type string `json:"type"`

	// join
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`

	// submit
	Year int  `json:"year"`
	Bet  bool `json:"bet"`

	// submit_artist
	Artist string `json:"artist"`

	// admin
	Action    string `json:"action"`
	Direction string `json:"direction"`

	// lang, used to localize REVEAL fun_fact; optional on join/get_state
	Lang string `json:"lang"`
}

// Hub owns the connection set for one Game and implements
// game.Broadcaster (spec.md §4.8), grounded on the session-scoped Hub
// of the Navidrome listen-together example generalized from one
// playback session to one multiplayer game.
type Hub struct {
	loop *game.EventLoop
	log  *zap.Logger
	met  *metrics.Metrics

	mu    sync.RWMutex
	byName map[string]*conn
}

// NewHub binds a Hub to loop's Game.
func NewHub(loop *game.EventLoop, log *zap.Logger) *Hub {
	return &Hub{loop: loop, log: log, byName: make(map[string]*conn)}
}

// SetMetrics wires a metrics sink after construction; Bootstrap calls
// this once. A Hub with no metrics set works fine (nil-checked below).
func (h *Hub) SetMetrics(m *metrics.Metrics) { h.met = m }

// ServeHTTP upgrades the request and runs the connection's pumps
// until it closes (spec.md §6.2 `GET /ws`).
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	if h.met != nil {
		h.met.ConnectionOpened()
		defer h.met.ConnectionClosed()
	}

	c := newConn(wsConn, h.log)
	go c.writePump()
	c.readPump(h.handle)

	h.onDisconnect(c)
}

// reportFailure increments the broadcast-failure counter when ok is
// false, returned by a non-blocking conn.enqueue.
func (h *Hub) reportFailure(ok bool) {
	if !ok && h.met != nil {
		h.met.BroadcastFailed()
	}
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byName[lowerKey(c.name)] = c
}

func (h *Hub) onDisconnect(c *conn) {
	if c.name == "" {
		return
	}
	h.mu.Lock()
	if h.byName[lowerKey(c.name)] == c {
		delete(h.byName, lowerKey(c.name))
	}
	h.mu.Unlock()

	name := c.name
	h.loop.Do(func() {
		h.loop.Game().DisconnectPlayer(name)
	})
}

func (h *Hub) handle(c *conn, raw json.RawMessage) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.log.Info("dropping malformed ws frame", zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic in ws handler, connection kept open", zap.Any("recover", r), zap.Stack("stack"))
		}
	}()

	switch msg.Type {
	case "join":
		h.handleJoin(c, msg)
	case "submit":
		h.handleSubmit(c, msg)
	case "submit_artist":
		h.handleSubmitArtist(c, msg)
	case "admin":
		h.handleAdmin(c, msg)
	case "get_state":
		h.handleGetState(c, msg)
	default:
		h.log.Info("unknown ws message type, ignoring", zap.String("type", msg.Type))
	}
}

func (h *Hub) handleJoin(c *conn, msg inbound) {
	h.loop.Do(func() {
		g := h.loop.Game()

		if msg.IsAdmin {
			if g.ReconnectAdmin(msg.Name) {
				c.name, c.isAdmin = msg.Name, true
				h.register(c)
				h.sendState(c, g, msg.Lang)
				return
			}
		}

		apiErr, name := g.Join(msg.Name, msg.IsAdmin)
		if apiErr != nil {
			h.sendError(c, apiErr.Code, apiErr.Message)
			return
		}

		c.name, c.isAdmin = name, msg.IsAdmin
		h.register(c)
		h.sendState(c, g, msg.Lang)
	})
}

func (h *Hub) handleSubmit(c *conn, msg inbound) {
	if c.name == "" {
		h.sendError(c, apierr.NotInGame, "join before submitting")
		return
	}
	h.loop.Do(func() {
		if err := h.loop.Game().Submit(c.name, msg.Year, msg.Bet); err != nil {
			h.sendError(c, err.Code, err.Message)
		}
	})
}

func (h *Hub) handleSubmitArtist(c *conn, msg inbound) {
	if c.name == "" {
		h.sendError(c, apierr.NotInGame, "join before submitting")
		return
	}
	h.loop.Do(func() {
		if err := h.loop.Game().SubmitArtist(c.name, msg.Artist); err != nil {
			h.sendError(c, err.Code, err.Message)
		}
	})
}

func (h *Hub) handleAdmin(c *conn, msg inbound) {
	if c.name == "" {
		h.sendError(c, apierr.NotAdmin, "join before issuing admin commands")
		return
	}
	h.loop.Do(func() {
		if err := h.loop.Game().AdminAction(c.name, msg.Action, msg.Direction); err != nil {
			h.sendError(c, err.Code, err.Message)
			return
		}
		if msg.Action == "stop_song" {
			h.sendTo(c.name, map[string]any{"type": "song_stopped"})
		}
		if msg.Action == "end_game" {
			h.broadcastAll(map[string]any{"type": "game_ended"})
		}
	})
}

func (h *Hub) handleGetState(c *conn, msg inbound) {
	h.loop.Do(func() {
		h.sendState(c, h.loop.Game(), msg.Lang)
	})
}

// --- game.Broadcaster implementation. All calls arrive on the event
// loop goroutine via Do, so no extra locking is needed here beyond
// the connection-map mutex for iteration (spec.md §5 "iterating for
// broadcast takes a snapshot").

func (h *Hub) BroadcastState(snapshot game.Snapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		h.log.Error("failed to marshal state snapshot", zap.Error(err))
		return
	}
	for _, c := range h.snapshotConns() {
		h.reportFailure(c.enqueue(payload))
	}
}

func (h *Hub) SendState(sessionID string, snapshot game.Snapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	h.mu.RLock()
	c, ok := h.byName[lowerKey(sessionID)]
	h.mu.RUnlock()
	if ok {
		h.reportFailure(c.enqueue(payload))
	}
}

func (h *Hub) SendAck(sessionID, messageType string, payload map[string]any) {
	body := map[string]any{"type": messageType}
	for k, v := range payload {
		body[k] = v
	}
	h.sendTo(sessionID, body)
}

func (h *Hub) SendError(sessionID string, code apierr.Code, message string) {
	h.sendTo(sessionID, map[string]any{"type": "error", "code": code, "message": message})
}

func (h *Hub) sendState(c *conn, g *game.Game, lang string) {
	payload, err := json.Marshal(g.Snapshot(lang))
	if err != nil {
		return
	}
	h.reportFailure(c.enqueue(payload))
}

func (h *Hub) sendError(c *conn, code apierr.Code, message string) {
	body, _ := json.Marshal(map[string]any{"type": "error", "code": code, "message": message})
	h.reportFailure(c.enqueue(body))
}

func (h *Hub) sendTo(name string, body map[string]any) {
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	h.mu.RLock()
	c, ok := h.byName[lowerKey(name)]
	h.mu.RUnlock()
	if ok {
		h.reportFailure(c.enqueue(payload))
	}
}

func (h *Hub) broadcastAll(body map[string]any) {
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	for _, c := range h.snapshotConns() {
		h.reportFailure(c.enqueue(payload))
	}
}

func (h *Hub) snapshotConns() []*conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*conn, 0, len(h.byName))
	for _, c := range h.byName {
		out = append(out, c)
	}
	return out
}

func lowerKey(name string) string {
	b := []byte(name)
	for i, r := range b {
		if r >= 'A' && r <= 'Z' {
			b[i] = r + ('a' - 'A')
		}
	}
	return string(b)
}
