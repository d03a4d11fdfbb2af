package game

import (
	"context"
	"math/rand"
	"time"

	"beatify/internal/apierr"
	"beatify/internal/mediaplayer"
	"beatify/internal/player"
	"beatify/internal/scoring"
)

// StartGame transitions LOBBY -> PLAYING for the first round (spec.md
// §4.7 transitions table). Guard: at least one player, pool not
// exhausted.
func (g *Game) StartGame() *apierr.Error {
	if g.Phase != PhaseLobby {
		return apierr.New(apierr.GameAlreadyStarted)
	}
	if g.players.Count() == 0 {
		return apierr.New(apierr.InvalidAction)
	}
	if g.pool.IsExhausted() {
		return apierr.New(apierr.InvalidAction)
	}
	g.TotalRounds = g.pool.Size()
	g.startedAt = g.clk.Now()
	g.startRound()
	return nil
}

// NextRound implements REVEAL -> PLAYING (or -> END at last_round /
// exhaustion) triggered by admin `next_round`.
func (g *Game) NextRound() *apierr.Error {
	if g.Phase != PhaseReveal {
		return apierr.New(apierr.InvalidAction)
	}
	if g.LastRound || g.pool.IsExhausted() {
		g.transitionToEnd()
		return nil
	}
	g.startRound()
	return nil
}

// startRound implements spec.md §4.7's "Round procedure".
func (g *Game) startRound() {
	g.Round++
	for _, p := range g.players.All() {
		p.ResetRound()
	}

	song, ok := g.pool.Next()
	if !ok {
		g.transitionToEnd()
		return
	}
	g.CurrentSong = &song
	g.artist, g.movie, g.intro = nil, nil, nil

	if g.cfg.ArtistChallengeEnabled && len(song.AltArtists) > 0 {
		g.artist = NewArtistChallenge(song.Artist, song.AltArtists)
	}
	if g.cfg.MovieChallengeEnabled && song.Movie != "" && len(song.MovieChoices) > 0 {
		g.movie = NewMovieChallenge(song.Movie, song.MovieChoices, scoring.ArtistBonusPoints)
	}

	g.RoundStart = float64(g.clk.Now().Unix())
	if rand.Float64() < g.cfg.IntroRoundChance {
		g.intro = &IntroState{StartTime: g.RoundStart}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := g.media.PlaySong(ctx, mediaplayer.Song{
		URI: song.URI, URIAppleMusic: song.URIAppleMusic, URIYouTubeMusic: song.URIYouTubeMusic,
		Title: song.Title, Artist: song.Artist, AlbumArt: song.AlbumArt,
	})
	cancel()
	if err != nil {
		g.recordError(ErrPlaybackFailure, err.Error())
	}

	g.DeadlineMS = g.clk.NowMS() + g.cfg.RoundDuration.Milliseconds()
	g.LastRound = g.pool.IsExhausted()
	g.EarlyReveal = false

	g.armRoundTimer()
	g.Phase = PhasePlaying
	if g.metrics != nil {
		g.metrics.RoundStarted()
	}
	g.bcast.BroadcastState(g.Snapshot(""))
}

// armRoundTimer starts the cancellable round-end timer (spec.md §5).
func (g *Game) armRoundTimer() {
	g.stopRoundTimer()
	round := g.Round
	g.roundTimer = time.AfterFunc(g.cfg.RoundDuration, func() {
		g.post(func() { g.endRoundIfCurrent(round, false) })
	})
}

func (g *Game) stopRoundTimer() {
	if g.roundTimer != nil {
		g.roundTimer.Stop()
		g.roundTimer = nil
	}
}

// endRoundIfCurrent is the idempotent timer callback: a no-op if the
// round has already moved on (spec.md §5 "end_round is idempotent").
// It is always invoked on the owning event-loop goroutine by the
// caller routing timer fires through the same channel as client
// messages (see internal/game's EventLoop).
func (g *Game) endRoundIfCurrent(round int, early bool) {
	if g.Phase != PhasePlaying || g.Round != round {
		return
	}
	g.enterReveal(early)
}

// AllConnectedSubmittersComplete implements the early-advance rule
// (spec.md §4.7).
func (g *Game) AllConnectedSubmittersComplete() bool {
	connected := g.players.Connected()
	if len(connected) == 0 {
		return false
	}
	for _, p := range connected {
		if !p.Submitted {
			return false
		}
		if g.artist != nil && !p.HasArtistGuess {
			return false
		}
	}
	return true
}

// enterReveal implements spec.md §4.7's "Reveal procedure".
func (g *Game) enterReveal(early bool) {
	g.stopRoundTimer()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	g.stopMediaBestEffort(ctx)
	cancel()

	roundCtx := g.buildRoundContext()
	var submittedForAnalytics []scoring.SubmittedPlayer
	for _, p := range g.players.All() {
		result := scoring.ScorePlayer(p.ToRoundInput(), roundCtx)
		p.ApplyRoundResult(result)

		switch {
		case result.CrossedStreak3:
			g.Streak3Count++
		case result.CrossedStreak5:
			g.Streak5Count++
		case result.CrossedStreak7:
			g.Streak7Count++
		}
		if result.BetPlaced {
			g.TotalBets++
			if result.BetWon {
				g.BetsWon++
			}
		}

		submittedForAnalytics = append(submittedForAnalytics, scoring.SubmittedPlayer{
			Name: p.Name, Submitted: !result.MissedRound, CurrentGuess: p.CurrentGuess,
			SubmissionTime: p.SubmissionTime, YearsOff: p.YearsOff, RoundScore: p.RoundScore,
		})
	}

	analytics := scoring.CalculateRoundAnalytics(submittedForAnalytics, g.CurrentSong.Year, g.RoundStart)

	g.EarlyReveal = early
	g.Phase = PhaseReveal
	if g.metrics != nil {
		g.metrics.RoundCompleted()
	}

	snapshot := g.Snapshot("")
	snapshot.Analytics = &analytics
	if g.LastRound || g.pool.IsExhausted() {
		candidates := make([]scoring.SuperlativeCandidate, 0, g.players.Count())
		for _, p := range g.players.All() {
			candidates = append(candidates, p.ToSuperlativeCandidate(g.finalThreeScore(p)))
		}
		superlatives := scoring.CalculateSuperlatives(candidates, g.Round, g.cfg.MovieChallengeEnabled, g.cfg.IntroRoundChance > 0)
		snapshot.Superlatives = superlatives
	}

	g.bcast.BroadcastState(snapshot)
}

// finalThreeScore sums a player's last three submitted round scores,
// for the clutch_player superlative (SPEC_FULL.md §3).
func (g *Game) finalThreeScore(p *player.Session) int {
	n := len(p.RoundScores)
	if n == 0 {
		return 0
	}
	start := n - 3
	if start < 0 {
		start = 0
	}
	sum := 0
	for _, s := range p.RoundScores[start:] {
		sum += s
	}
	return sum
}

// transitionToEnd implements REVEAL -> END / PLAYING|REVEAL -> END
// (spec.md §4.7). END clears no state by itself; Cleanup (called when
// the admin starts a new game from END) performs the full reset.
func (g *Game) transitionToEnd() {
	g.stopRoundTimer()
	g.Phase = PhaseEnd
	g.recordSummary()
	g.bcast.BroadcastState(g.Snapshot(""))
}

// recordSummary hands a GameSummary to the configured Recorder, if
// any (spec.md §4.9/§4.10 "StatsStore/AnalyticsStore persist the
// summary").
func (g *Game) recordSummary() {
	if g.recorder == nil {
		return
	}
	players := g.players.All()
	totalPoints := 0
	var winner string
	winnerScore := 0
	for i, p := range players {
		totalPoints += p.Score
		if i == 0 || p.Score > winnerScore {
			winner, winnerScore = p.Name, p.Score
		}
	}
	g.recorder.RecordGame(GameSummary{
		GameID:        g.ID,
		StartedAt:     g.startedAt,
		EndedAt:       g.clk.Now(),
		PlayerCount:   len(players),
		PlaylistNames: g.cfg.PlaylistNames,
		RoundsPlayed:  g.Round,
		TotalPoints:   totalPoints,
		Winner:        winner,
		WinnerScore:   winnerScore,
		Difficulty:    g.cfg.Difficulty,
		ErrorCount:    len(g.Errors),
		Streak3Count:  g.Streak3Count,
		Streak5Count:  g.Streak5Count,
		Streak7Count:  g.Streak7Count,
		TotalBets:     g.TotalBets,
		BetsWon:       g.BetsWon,
	})
}

// EndGame implements the admin `end_game` action from PLAYING or
// REVEAL (spec.md §4.7).
func (g *Game) EndGame() *apierr.Error {
	if g.Phase == PhaseLobby || g.Phase == PhaseEnd {
		return apierr.New(apierr.InvalidAction)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	g.stopMediaBestEffort(ctx)
	cancel()
	g.graceMu.cancelAll()
	g.transitionToEnd()
	return nil
}

// Cleanup implements END -> LOBBY, clearing all per-game state
// (spec.md §4.7). Called once the admin starts a brand new game.
func (g *Game) Cleanup() {
	g.stopRoundTimer()
	g.graceMu.cancelAll()
	g.players.Clear()
	g.Phase = PhaseLobby
	g.Round = 0
	g.CurrentSong = nil
	g.LastRound = false
	g.EarlyReveal = false
	g.artist, g.movie, g.intro = nil, nil, nil
	g.Errors = nil
	g.Streak3Count, g.Streak5Count, g.Streak7Count = 0, 0, 0
	g.TotalBets, g.BetsWon = 0, 0
}
