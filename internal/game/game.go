// Package game implements the GameState state machine of spec.md §4.7,
// driven by a single-goroutine event loop grounded on the channel-select
// shape of the roulettify example's GameRoom.Run
// (other_examples/80dac446_mardon3-roulettify__internal-game-room.go.go),
// generalized from that example's weighted-track/guess-matching rules to
// this spec's year-guessing, streak, bet, and side-challenge rules.
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"beatify/internal/apierr"
	"beatify/internal/clock"
	"beatify/internal/mediaplayer"
	"beatify/internal/player"
	"beatify/internal/playlist"
	"beatify/internal/scoring"
)

// Phase is one of the five GameState phases (spec.md §4.7).
type Phase = string

const (
	PhaseLobby   Phase = player.PhaseLobby
	PhasePlaying Phase = player.PhasePlaying
	PhaseReveal  Phase = player.PhaseReveal
	PhaseEnd     Phase = player.PhaseEnd
	PhasePaused  Phase = player.PhasePaused
)

// ErrorEvent records a remote or protocol failure for the admin-visible
// error log (spec.md §3 ErrorEvent, §7 taxonomy item c).
type ErrorEvent struct {
	Timestamp time.Time
	Type      string
	Message   string
}

// Error event types (spec.md §3).
const (
	ErrWSDisconnect        = "WS_DISCONNECT"
	ErrMediaPlayerError    = "MEDIA_PLAYER_ERROR"
	ErrPlaybackFailure     = "PLAYBACK_FAILURE"
	ErrStateTransitionError = "STATE_TRANSITION_ERROR"
)

const maxErrorMessageLen = 500

// Config holds the tunables GameState needs from internal/config,
// decoupled to avoid an import cycle back from internal/config.
type Config struct {
	MinPlayers             int
	MaxPlayers             int
	MinNameLength          int
	MaxNameLength          int
	YearMin, YearMax       int
	RoundDuration          time.Duration
	DisconnectGrace        time.Duration
	IntroRoundChance       float64
	Difficulty             string
	ArtistChallengeEnabled bool
	MovieChallengeEnabled  bool
	PlaylistNames          []string
}

// GameSummary captures the fields a persistence layer needs once a
// game transitions to END (spec.md §4.9/§4.10), decoupled from
// internal/analytics and internal/stats to avoid those packages
// importing Game's internals.
type GameSummary struct {
	GameID        string
	StartedAt     time.Time
	EndedAt       time.Time
	PlayerCount   int
	PlaylistNames []string
	RoundsPlayed  int
	TotalPoints   int
	Winner        string
	WinnerScore   int
	Difficulty    string
	ErrorCount    int

	Streak3Count, Streak5Count, Streak7Count int
	TotalBets, BetsWon                       int
}

// Recorder persists a completed game's summary. Bootstrap wires in a
// StatsStore-backed implementation; Game works fine with none set.
type Recorder interface {
	RecordGame(summary GameSummary)
}

// Metrics reports round throughput to internal/metrics without Game
// importing it directly (SPEC_FULL.md §4.13 "rounds started/completed").
type Metrics interface {
	RoundStarted()
	RoundCompleted()
}

// Broadcaster decouples GameState from WSHub's connection set; all
// calls happen on the owning event-loop goroutine (spec.md §5).
type Broadcaster interface {
	BroadcastState(snapshot Snapshot)
	SendState(sessionID string, snapshot Snapshot)
	SendAck(sessionID string, messageType string, payload map[string]any)
	SendError(sessionID string, code apierr.Code, message string)
}

// Game is the live GameState for one playthrough.
type Game struct {
	ID    string
	Phase Phase

	cfg      Config
	clk      clock.Clock
	log      *zap.Logger
	bcast    Broadcaster
	recorder Recorder
	metrics  Metrics
	players  *player.Registry
	pool     *playlist.Manager
	media    *mediaplayer.Player

	Round       int
	TotalRounds int // best-effort estimate = pool size at game start
	CurrentSong *playlist.Song
	DeadlineMS  int64
	RoundStart  float64 // unix seconds
	LastRound   bool
	EarlyReveal bool
	startedAt   time.Time

	artist *ArtistChallenge
	movie  *MovieChallenge
	intro  *IntroState

	Errors []ErrorEvent

	Streak3Count, Streak5Count, Streak7Count int
	TotalBets, BetsWon                       int
	volume                                   float64

	roundTimer *time.Timer
	graceMu    graceTimers

	// post, when set, routes timer/grace callbacks through the owning
	// EventLoop's single goroutine instead of calling Game methods
	// directly from the Go runtime's timer goroutine (spec.md §5
	// "mutated only by WSHub handlers and the round-end timer
	// callback... cooperative scheduling guarantees this").
	post func(func())
}

// New constructs a Game in LOBBY phase.
func New(cfg Config, clk clock.Clock, log *zap.Logger, bcast Broadcaster, pool *playlist.Manager, media *mediaplayer.Player) *Game {
	return &Game{
		ID:      uuid.NewString(),
		Phase:   PhaseLobby,
		cfg:     cfg,
		clk:     clk,
		log:     log,
		bcast:   bcast,
		players: player.NewRegistry(clk, cfg.MinNameLength, cfg.MaxNameLength, cfg.MaxPlayers),
		pool:    pool,
		media:   media,
		graceMu: newGraceTimers(),
		volume:  0.5,
		post:    func(fn func()) { fn() },
	}
}

// SetPoster overrides how timer/grace callbacks reach the owning
// goroutine; EventLoop calls this with a channel-backed poster.
func (g *Game) SetPoster(post func(func())) { g.post = post }

// SetBroadcaster binds the WSHub after construction, needed because
// WSHub itself is built from an EventLoop that wraps this Game.
func (g *Game) SetBroadcaster(bcast Broadcaster) { g.bcast = bcast }

// SetRecorder binds a persistence layer; StartGame/transitionToEnd
// work fine if this is never called.
func (g *Game) SetRecorder(r Recorder) { g.recorder = r }

// SetMetrics binds a round-throughput sink; Game works fine if this is
// never called.
func (g *Game) SetMetrics(m Metrics) { g.metrics = m }

// Players exposes the registry for WSHub admission handling.
func (g *Game) Players() *player.Registry { return g.players }

// recordError appends a truncated ErrorEvent and logs it (spec.md §7 item c).
func (g *Game) recordError(kind, message string) {
	if len(message) > maxErrorMessageLen {
		message = message[:maxErrorMessageLen]
	}
	g.Errors = append(g.Errors, ErrorEvent{Timestamp: g.clk.Now(), Type: kind, Message: message})
	g.log.Warn("game error event", zap.String("game_id", g.ID), zap.String("type", kind), zap.String("message", message))
}

// stopMediaBestEffort stops playback, recording (but not failing on) an error.
func (g *Game) stopMediaBestEffort(ctx context.Context) {
	if g.media == nil {
		return
	}
	if err := g.media.Stop(ctx); err != nil {
		g.recordError(ErrMediaPlayerError, err.Error())
	}
}

// buildRoundContext assembles scoring.RoundContext for the current round.
func (g *Game) buildRoundContext() scoring.RoundContext {
	ctx := scoring.RoundContext{
		RoundStartTime: g.RoundStart,
		RoundDuration:  g.cfg.RoundDuration.Seconds(),
		Difficulty:     g.cfg.Difficulty,
	}
	if g.CurrentSong != nil {
		ctx.CorrectYear = g.CurrentSong.Year
	}
	if g.artist != nil && g.artist.WinnerName != "" {
		ctx.ArtistWinnerName = g.artist.WinnerName
	}
	if g.movie != nil {
		ctx.MovieBonusForPlayer = g.movie.PlayerBonus
	}
	if g.intro != nil {
		ctx.IsIntroRound = true
		ctx.IntroRoundStart = g.intro.StartTime
		ctx.IntroDurationSeconds = scoring.IntroDurationSeconds
	}

	for _, s := range g.players.Connected() {
		ctx.AllSubmissions = append(ctx.AllSubmissions, scoring.Submission{
			Name: s.Name, Submitted: s.Submitted, SubmissionTime: s.SubmissionTime,
		})
	}
	return ctx
}
