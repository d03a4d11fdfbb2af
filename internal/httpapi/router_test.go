package httpapi

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beatify/internal/clock"
	"beatify/internal/game"
	"beatify/internal/mediaplayer"
	"beatify/internal/metrics"
	"beatify/internal/playlist"
	"beatify/internal/ws"
)

type noopBackend struct{}

func (noopBackend) CallPlayMedia(ctx context.Context, entityID, content, contentType string) error {
	return nil
}
func (noopBackend) CallStop(ctx context.Context, entityID string) error                { return nil }
func (noopBackend) CallSetVolume(ctx context.Context, entityID string, l float64) error { return nil }
func (noopBackend) State(ctx context.Context, entityID string) (bool, error)           { return true, nil }

func newTestServer(t *testing.T) (*httptest.Server, *game.EventLoop, func()) {
	t.Helper()

	dir := t.TempDir()
	playlistPath := filepath.Join(dir, "hits.json")
	require.NoError(t, os.WriteFile(playlistPath, []byte(`{"name":"Hits","songs":[{"year":1999,"uri":"u1","title":"A","artist":"Artist A"}]}`), 0o644))

	mgr := playlist.NewManager([]playlist.Song{{Year: 1999, URI: "u1", Title: "A", Artist: "Artist A"}}, rand.New(rand.NewSource(1)))
	media := mediaplayer.New("media_player.test", mediaplayer.PlatformSonos, noopBackend{}, zap.NewNop())

	cfg := game.Config{
		MinPlayers: 1, MaxPlayers: 20, MinNameLength: 1, MaxNameLength: 20,
		YearMin: 1900, YearMax: 2030,
		RoundDuration: 30 * time.Second, DisconnectGrace: 60 * time.Second,
		Difficulty: "normal",
	}

	g := game.New(cfg, clock.Real{}, zap.NewNop(), nil, mgr, media)
	loop := game.NewEventLoop(g)

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	hub := ws.NewHub(loop, zap.NewNop())
	loop.Do(func() { g.SetBroadcaster(hub) })

	met := metrics.New()
	loader := playlist.NewLoader(dir)
	players := mediaplayer.NewRegistry()
	players.Register("media_player.test", media)
	engine := New(loop, hub, loader, media, players, met, zap.NewNop(), dir, "")
	srv := httptest.NewServer(engine)

	return srv, loop, func() { cancel(); srv.Close() }
}

func TestAPIStatusListsDiscoveredPlaylists(t *testing.T) {
	srv, _, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/beatify/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body apiStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"Hits"}, body.Playlists)
}

func TestGameStatusUnknownIDIsNotFound(t *testing.T) {
	srv, _, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/beatify/api/game/status?game=does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body gameStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Status)
}

func TestGameStartThenEndRoundTrip(t *testing.T) {
	srv, loop, cleanup := newTestServer(t)
	defer cleanup()

	loop.Do(func() { loop.Game().Players().Add("Admin", true, game.PhaseLobby) })

	startBody := `{"playlists":["Hits"],"media_player":"media_player.test","difficulty":"normal","round_duration":30}`
	resp, err := http.Post(srv.URL+"/beatify/api/game/start", "application/json", strings.NewReader(startBody))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/beatify/api/game/end", "application/json", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	srv, _, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/beatify/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestPlaceholderPagesServeOK(t *testing.T) {
	srv, _, cleanup := newTestServer(t)
	defer cleanup()

	for _, path := range []string{"/beatify/admin", "/beatify/launcher", "/beatify/dashboard", "/beatify/play?game=x"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
