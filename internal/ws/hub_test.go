package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beatify/internal/clock"
	"beatify/internal/game"
	"beatify/internal/mediaplayer"
	"beatify/internal/playlist"
)

type noopBackend struct{}

func (noopBackend) CallPlayMedia(ctx context.Context, entityID, content, contentType string) error {
	return nil
}
func (noopBackend) CallStop(ctx context.Context, entityID string) error             { return nil }
func (noopBackend) CallSetVolume(ctx context.Context, entityID string, l float64) error { return nil }
func (noopBackend) State(ctx context.Context, entityID string) (bool, error)         { return true, nil }

func startTestServer(t *testing.T) (*httptest.Server, *game.EventLoop, func()) {
	t.Helper()

	songs := []playlist.Song{
		{Year: 1999, URI: "u1", Title: "A", Artist: "Artist A"},
		{Year: 2005, URI: "u2", Title: "B", Artist: "Artist B"},
	}
	mgr := playlist.NewManager(songs, rand.New(rand.NewSource(1)))
	media := mediaplayer.New("media_player.test", mediaplayer.PlatformSonos, noopBackend{}, zap.NewNop())

	cfg := game.Config{
		MinPlayers: 1, MaxPlayers: 20, MinNameLength: 1, MaxNameLength: 20,
		YearMin: 1900, YearMax: 2030,
		RoundDuration: 30 * time.Second, DisconnectGrace: 60 * time.Second,
		Difficulty: "normal",
	}

	var hub *Hub
	g := game.New(cfg, clock.Real{}, zap.NewNop(), nil, mgr, media)
	loop := game.NewEventLoop(g)

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	hub = NewHub(loop, zap.NewNop())
	// Broadcaster is wired post-construction since Hub needs the loop
	// and Game needs the Hub as its Broadcaster.
	loop.Do(func() { replaceBroadcaster(g, hub) })

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	return srv, loop, func() { cancel(); srv.Close() }
}

// replaceBroadcaster is a test-only seam: production wiring
// constructs Hub and Game together in cmd/beatify-server so this
// indirection isn't needed there.
func replaceBroadcaster(g *game.Game, h *Hub) {
	g.SetBroadcaster(h)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return c
}

func readJSON(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := c.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestJoinReceivesStateFrame(t *testing.T) {
	srv, _, stop := startTestServer(t)
	defer stop()

	c := dial(t, srv)
	defer c.Close()

	require.NoError(t, c.WriteJSON(map[string]any{"type": "join", "name": "Alice"}))
	msg := readJSON(t, c)
	assert.Equal(t, "state", msg["type"])
	assert.Equal(t, "LOBBY", msg["phase"])
}

func TestJoinNameTaken(t *testing.T) {
	srv, _, stop := startTestServer(t)
	defer stop()

	a := dial(t, srv)
	defer a.Close()
	require.NoError(t, a.WriteJSON(map[string]any{"type": "join", "name": "Alice"}))
	readJSON(t, a)

	b := dial(t, srv)
	defer b.Close()
	require.NoError(t, b.WriteJSON(map[string]any{"type": "join", "name": "alice"}))
	msg := readJSON(t, b)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "NAME_TAKEN", msg["code"])
}

func TestSubmitAckAfterJoinAndStart(t *testing.T) {
	srv, loop, stop := startTestServer(t)
	defer stop()

	admin := dial(t, srv)
	defer admin.Close()
	require.NoError(t, admin.WriteJSON(map[string]any{"type": "join", "name": "Admin", "is_admin": true}))
	readJSON(t, admin) // state after join

	require.NoError(t, admin.WriteJSON(map[string]any{"type": "admin", "action": "start_game"}))
	stateMsg := readJSON(t, admin) // state after start_game
	assert.Equal(t, "PLAYING", stateMsg["phase"])

	var year int
	loop.Do(func() { year = loop.Game().CurrentSong.Year })

	require.NoError(t, admin.WriteJSON(map[string]any{"type": "submit", "year": year}))
	ackMsg := readJSON(t, admin)
	assert.Equal(t, "submit_ack", ackMsg["type"])
}
