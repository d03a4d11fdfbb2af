package game

import (
	"context"
	"time"

	"beatify/internal/apierr"
)

func emptyCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

// Join admits a new session, implementing spec.md §4.8's `join`
// handler semantics (including the admin-reconnect special case,
// checked by the caller via TryReconnectAdmin before calling Join
// when it suspects a returning admin).
func (g *Game) Join(name string, isAdmin bool) (*apierr.Error, string) {
	_, err := g.players.Add(name, isAdmin, g.Phase)
	if err != nil {
		return err, ""
	}
	g.bcast.BroadcastState(g.Snapshot(""))
	return nil, name
}

// Submit implements spec.md §4.8's `submit {year, bet?}`.
func (g *Game) Submit(name string, year int, bet bool) *apierr.Error {
	if g.Phase != PhasePlaying {
		return apierr.New(apierr.GameNotStarted)
	}
	s, ok := g.players.Get(name)
	if !ok {
		return apierr.New(apierr.NotInGame)
	}
	if s.Submitted {
		return apierr.New(apierr.AlreadySubmitted)
	}
	if g.clk.NowMS() > g.DeadlineMS {
		return apierr.New(apierr.RoundExpired)
	}
	if year < g.cfg.YearMin || year > g.cfg.YearMax {
		return apierr.New(apierr.InvalidAction)
	}

	s.Submitted = true
	s.CurrentGuess = year
	s.Bet = bet
	s.SubmissionTime = float64(g.clk.Now().Unix())

	g.bcast.SendAck(name, "submit_ack", map[string]any{"year": year})
	g.bcast.BroadcastState(g.Snapshot(""))

	if g.AllConnectedSubmittersComplete() {
		g.endRoundIfCurrent(g.Round, true)
	}
	return nil
}

// SubmitArtist implements spec.md §4.8's `submit_artist {artist}`.
func (g *Game) SubmitArtist(name, artist string) *apierr.Error {
	if g.Phase != PhasePlaying {
		return apierr.New(apierr.GameNotStarted)
	}
	if g.artist == nil {
		return apierr.New(apierr.InvalidAction)
	}
	s, ok := g.players.Get(name)
	if !ok {
		return apierr.New(apierr.NotInGame)
	}
	if s.HasArtistGuess {
		return apierr.New(apierr.AlreadySubmitted)
	}

	s.HasArtistGuess = true
	g.artist.Submit(name, artist)

	g.bcast.BroadcastState(g.Snapshot(""))

	if g.AllConnectedSubmittersComplete() {
		g.endRoundIfCurrent(g.Round, true)
	}
	return nil
}

// AdminAction dispatches one of the admin command verbs from spec.md
// §4.8's `admin {action, ...}` message. volumeDirection is only
// meaningful for action "set_volume".
func (g *Game) AdminAction(name, action, volumeDirection string) *apierr.Error {
	s, ok := g.players.Get(name)
	if !ok || !s.IsAdmin {
		return apierr.New(apierr.NotAdmin)
	}

	switch action {
	case "start_game":
		if g.Phase == PhaseEnd {
			g.Cleanup()
		}
		return g.StartGame()
	case "next_round":
		return g.NextRound()
	case "stop_song":
		return g.stopSong()
	case "set_volume":
		return g.setVolume(volumeDirection)
	case "end_game":
		return g.EndGame()
	default:
		return apierr.New(apierr.InvalidAction)
	}
}

const volumeStep = 0.1

func (g *Game) stopSong() *apierr.Error {
	if g.media == nil {
		return nil
	}
	ctx, cancel := emptyCtx()
	defer cancel()
	if err := g.media.Stop(ctx); err != nil {
		g.recordError(ErrMediaPlayerError, err.Error())
	}
	g.bcast.BroadcastState(g.Snapshot(""))
	return nil
}

func (g *Game) setVolume(direction string) *apierr.Error {
	if g.media == nil {
		return apierr.New(apierr.MAUnavailable)
	}
	delta := volumeStep
	if direction == "down" {
		delta = -volumeStep
	}
	g.volume += delta
	if g.volume < 0 {
		g.volume = 0
	} else if g.volume > 1 {
		g.volume = 1
	}

	ctx, cancel := emptyCtx()
	defer cancel()
	if err := g.media.SetVolume(ctx, g.volume); err != nil {
		g.recordError(ErrMediaPlayerError, err.Error())
		return apierr.New(apierr.MAUnavailable)
	}
	return nil
}
