// Package httpapi wires spec.md §6.2's HTTP route surface onto a gin
// router, grounded on the teacher's flat route-registration style
// (backend/music-service/main.go's `r.GET`/`r.POST` calls directly on
// a single engine) generalized from the teacher's play/pause/seek
// control surface to this game's admin/launcher/status/game endpoints.
// Every route lives under the `/beatify/` prefix (SPEC_FULL.md §4.14),
// matching the original Home Assistant add-on's ingress path.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"beatify/internal/apierr"
	"beatify/internal/game"
	"beatify/internal/mediaplayer"
	"beatify/internal/metrics"
	"beatify/internal/playlist"
	"beatify/internal/ws"
)

// Server bundles every dependency a handler needs. Bootstrap
// constructs one after wiring the game core.
type Server struct {
	loop        *game.EventLoop
	hub         *ws.Hub
	loader      *playlist.Loader
	media       *mediaplayer.Player
	players     *mediaplayer.Registry
	metrics     *metrics.Metrics
	log         *zap.Logger
	playlistDir string
	staticDir   string
}

// New constructs the gin engine with every route mounted. staticDir
// may be empty, in which case /beatify/static/* 404s rather than
// panicking on a missing root (no bundled UI assets ship with this
// service per SPEC_FULL.md §4.14). players lists every configured
// media player entity for /api/status, while media is the single
// entity the running Game actually plays through.
func New(loop *game.EventLoop, hub *ws.Hub, loader *playlist.Loader, media *mediaplayer.Player, players *mediaplayer.Registry, met *metrics.Metrics, log *zap.Logger, playlistDir, staticDir string) *gin.Engine {
	s := &Server{loop: loop, hub: hub, loader: loader, media: media, players: players, metrics: met, log: log, playlistDir: playlistDir, staticDir: staticDir}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginZapLogger(log))

	g := r.Group("/beatify")
	g.GET("/admin", s.handleAdminPage)
	g.GET("/launcher", s.handleLauncherPage)
	g.GET("/play", s.handlePlayPage)
	g.GET("/dashboard", s.handleDashboardPage)

	g.GET("/api/status", s.handleAPIStatus)
	g.GET("/api/game/status", s.handleGameStatus)
	g.POST("/api/game/start", s.handleGameStart)
	g.POST("/api/game/end", s.handleGameEnd)

	if staticDir != "" {
		g.Static("/static", staticDir)
	}

	g.GET("/ws", s.handleWS)
	g.GET("/metrics", s.handleMetrics)

	return r
}

// ginZapLogger replaces gin's default Logger() middleware with a
// structured one, consistent with the rest of the service logging
// through zap instead of stdlib log (SPEC_FULL.md ambient logging
// stack).
func ginZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// placeholder pages: the UI itself is out of scope (SPEC_FULL.md
// §4.14 "static asset and UI routes serve placeholder/passthrough
// handlers... so the route surface is complete and testable
// end-to-end against the JSON/WS contract").
func (s *Server) handleAdminPage(c *gin.Context)      { c.String(http.StatusOK, "beatify admin") }
func (s *Server) handleLauncherPage(c *gin.Context)   { c.String(http.StatusOK, "beatify launcher") }
func (s *Server) handleDashboardPage(c *gin.Context)  { c.String(http.StatusOK, "beatify dashboard") }

func (s *Server) handlePlayPage(c *gin.Context) {
	gameID := c.Query("game")
	c.String(http.StatusOK, "beatify play game=%s", gameID)
}

// apiStatusResponse is spec.md §6.2's `GET /api/status` body.
type apiStatusResponse struct {
	MediaPlayers []string `json:"media_players"`
	Playlists    []string `json:"playlists"`
	PlaylistDir  string   `json:"playlist_dir"`
	MAConfigured bool     `json:"ma_configured"`
	MASetupURL   string   `json:"ma_setup_url"`
}

func (s *Server) handleAPIStatus(c *gin.Context) {
	var names []string
	if s.loader != nil {
		pls, err := s.loader.Discover()
		if err != nil {
			s.log.Warn("playlist discovery failed", zap.Error(err))
		}
		for _, pl := range pls {
			if pl.IsValid {
				names = append(names, pl.Name)
			}
		}
	}

	resp := apiStatusResponse{Playlists: names, PlaylistDir: s.playlistDir}
	if s.players != nil {
		resp.MediaPlayers = s.players.EntityIDs()
	}
	if s.media != nil {
		resp.MAConfigured = s.media.Platform() == mediaplayer.PlatformMusicAssistant
	}
	c.JSON(http.StatusOK, resp)
}

// gameStatusResponse is spec.md §6.2's `GET /api/game/status` body;
// Status is one of VALID, ENDED, NOT_FOUND.
type gameStatusResponse struct {
	Status string `json:"status"`
	GameID string `json:"game_id,omitempty"`
	Phase  string `json:"phase,omitempty"`
}

func (s *Server) handleGameStatus(c *gin.Context) {
	want := c.Query("game")
	var resp gameStatusResponse
	s.loop.Do(func() {
		g := s.loop.Game()
		switch {
		case want != "" && want != g.ID:
			resp = gameStatusResponse{Status: "NOT_FOUND"}
		case g.Phase == game.PhaseEnd:
			resp = gameStatusResponse{Status: "ENDED", GameID: g.ID, Phase: g.Phase}
		default:
			resp = gameStatusResponse{Status: "VALID", GameID: g.ID, Phase: g.Phase}
		}
	})
	c.JSON(http.StatusOK, resp)
}

// gameStartRequest is spec.md §6.2's `POST /api/game/start` payload.
// Playlists/MediaPlayer/RoundDuration describe how the launcher
// configured the room; the running Game's pool and media player are
// already fixed at boot (SPEC_FULL.md's single-room deployment model),
// so this handler's job is strictly to flip LOBBY -> PLAYING and
// report whether that succeeded against the wire error vocabulary.
type gameStartRequest struct {
	Playlists     []string `json:"playlists"`
	MediaPlayer   string   `json:"media_player"`
	Difficulty    string   `json:"difficulty"`
	RoundDuration int      `json:"round_duration"`
	Challenges    []string `json:"challenges"`
}

func (s *Server) handleGameStart(c *gin.Context) {
	var req gameStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody(apierr.InvalidAction, err.Error()))
		return
	}

	var apiErr *apierr.Error
	var gameID string
	s.loop.Do(func() {
		g := s.loop.Game()
		apiErr = g.StartGame()
		gameID = g.ID
	})
	if apiErr != nil {
		c.JSON(http.StatusConflict, errBody(apiErr.Code, apiErr.Message))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "game_id": gameID})
}

func (s *Server) handleGameEnd(c *gin.Context) {
	var apiErr *apierr.Error
	s.loop.Do(func() {
		apiErr = s.loop.Game().EndGame()
	})
	if apiErr != nil {
		c.JSON(http.StatusConflict, errBody(apiErr.Code, apiErr.Message))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleWS(c *gin.Context) {
	s.hub.ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleMetrics(c *gin.Context) {
	if s.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}

func errBody(code apierr.Code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}
