// Command beatify-server boots the Beatify game service: it wires the
// game core (C1-C10) behind the HTTP/WebSocket surface of
// internal/httpapi, replacing the teacher's flat gin-wiring main()
// (backend/music-service/main.go) with this service's config-driven
// construction order.
package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"beatify/internal/analytics"
	"beatify/internal/clock"
	"beatify/internal/config"
	"beatify/internal/game"
	"beatify/internal/httpapi"
	"beatify/internal/mediaplayer"
	"beatify/internal/metrics"
	"beatify/internal/playlist"
	"beatify/internal/stats"
	"beatify/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("beatify-server exited with error", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	clk := clock.Real{}

	loader := playlist.NewLoader(cfg.PlaylistDir)
	discovered, err := loader.Discover()
	if err != nil {
		log.Warn("playlist discovery failed, starting with an empty pool", zap.Error(err))
	}
	names := cfg.PlaylistNames
	if len(names) == 0 {
		for _, pl := range discovered {
			if pl.IsValid {
				names = append(names, pl.Name)
			}
		}
	}
	songs := playlist.MergePool(discovered, names)
	pool := playlist.NewManager(songs, rand.New(rand.NewSource(time.Now().UnixNano())))

	met := metrics.New()

	backend := mediaplayer.NewHomeAssistantBackend(cfg.HomeAssistantURL, cfg.HomeAssistantToken)
	media := mediaplayer.New(cfg.MediaPlayerEntityID, cfg.MediaPlayerPlatform, backend, log)
	media.SetFailureHook(met.MediaPlayerFailed)

	players := mediaplayer.NewRegistry()
	players.Register(cfg.MediaPlayerEntityID, media)

	gameCfg := game.Config{
		MinPlayers: cfg.MinPlayers, MaxPlayers: cfg.MaxPlayers,
		MinNameLength: cfg.MinNameLength, MaxNameLength: cfg.MaxNameLength,
		YearMin: cfg.YearMin, YearMax: cfg.YearMax,
		RoundDuration: cfg.RoundDuration, DisconnectGrace: cfg.DisconnectGrace,
		IntroRoundChance: cfg.IntroRoundChance, Difficulty: cfg.Difficulty,
		ArtistChallengeEnabled: cfg.ArtistChallengeEnabled,
		MovieChallengeEnabled:  cfg.MovieChallengeEnabled,
		PlaylistNames:          names,
	}

	g := game.New(gameCfg, clk, log, nil, pool, media)
	loop := game.NewEventLoop(g)

	hub := ws.NewHub(loop, log)
	hub.SetMetrics(met)

	analyticsStore := analytics.New(cfg.ConfigDir+"/analytics.json", clk, log)
	analyticsStore.SetMetrics(met)
	if err := analyticsStore.Load(); err != nil {
		log.Warn("analytics load failed, starting fresh", zap.Error(err))
	}
	defer analyticsStore.Close()

	statsStore := stats.New(cfg.ConfigDir+"/stats.json", clk, log, analyticsStore)
	statsStore.SetMetrics(met)
	if err := statsStore.Load(); err != nil {
		log.Warn("stats load failed, starting fresh", zap.Error(err))
	}

	loop.Do(func() {
		g.SetBroadcaster(hub)
		g.SetRecorder(statsStore)
		g.SetMetrics(met)
	})

	router := httpapi.New(loop, hub, loader, media, players, met, log, cfg.PlaylistDir, "")
	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// errgroup ties the event loop and HTTP server's lifetimes together:
	// either one exiting (or ctx cancellation) unwinds both, mirroring
	// the teacher's single r.Run(":"+port) call but with a second
	// background goroutine now in the mix (SPEC_FULL.md §9 "bounded
	// background worker... drain on shutdown with a deadline").
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		loop.Run(egCtx)
		return nil
	})

	eg.Go(func() error {
		log.Info("beatify-server listening", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
