package game

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beatify/internal/clock"
	"beatify/internal/mediaplayer"
	"beatify/internal/playlist"
)

type noopBackend struct{}

func (noopBackend) CallPlayMedia(ctx context.Context, entityID, content, contentType string) error {
	return nil
}
func (noopBackend) CallStop(ctx context.Context, entityID string) error            { return nil }
func (noopBackend) CallSetVolume(ctx context.Context, entityID string, l float64) error { return nil }
func (noopBackend) State(ctx context.Context, entityID string) (bool, error)        { return true, nil }

type recordingBroadcaster struct {
	states []Snapshot
	errors []string
}

func (b *recordingBroadcaster) BroadcastState(s Snapshot)    { b.states = append(b.states, s) }
func (b *recordingBroadcaster) SendState(string, Snapshot)   {}
func (b *recordingBroadcaster) SendAck(string, string, map[string]any) {}
func (b *recordingBroadcaster) SendError(sessionID string, code, message string) {
	b.errors = append(b.errors, code)
}

func (b *recordingBroadcaster) last() Snapshot { return b.states[len(b.states)-1] }

func newTestGame(songs []playlist.Song) (*Game, *recordingBroadcaster) {
	cfg := Config{
		MinPlayers: 1, MaxPlayers: 20, MinNameLength: 1, MaxNameLength: 20,
		YearMin: 1900, YearMax: 2030,
		RoundDuration: 30 * time.Second, DisconnectGrace: 60 * time.Second,
		Difficulty: "normal",
	}
	bcast := &recordingBroadcaster{}
	mgr := playlist.NewManager(songs, rand.New(rand.NewSource(7)))
	media := mediaplayer.New("media_player.test", mediaplayer.PlatformSonos, noopBackend{}, zap.NewNop())
	g := New(cfg, clock.NewMock(time.Unix(1700000000, 0)), zap.NewNop(), bcast, mgr, media)
	return g, bcast
}

func testSongs() []playlist.Song {
	return []playlist.Song{
		{Year: 1999, URI: "u1", Title: "Song A", Artist: "Artist A"},
		{Year: 2005, URI: "u2", Title: "Song B", Artist: "Artist B"},
	}
}

func TestStartGameRequiresPlayers(t *testing.T) {
	g, _ := newTestGame(testSongs())
	err := g.StartGame()
	require.NotNil(t, err)
}

func TestFullRoundExactGuess(t *testing.T) {
	g, bcast := newTestGame(testSongs())
	_, _ = g.players.Add("Alice", true, PhaseLobby)

	require.Nil(t, g.StartGame())
	assert.Equal(t, PhasePlaying, g.Phase)
	require.NotNil(t, g.CurrentSong)

	err := g.Submit("Alice", g.CurrentSong.Year, false)
	require.Nil(t, err)

	// Sole connected submitter complete -> early reveal.
	assert.Equal(t, PhaseReveal, g.Phase)
	assert.True(t, g.EarlyReveal)

	snap := bcast.last()
	require.Len(t, snap.Players, 1)
	require.NotNil(t, snap.Players[0].RoundScore)
	assert.Equal(t, 20, *snap.Players[0].RoundScore)
}

func TestSubmitRejectsOutOfRangeYear(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Alice", true, PhaseLobby)
	require.Nil(t, g.StartGame())

	err := g.Submit("Alice", 1500, false)
	require.NotNil(t, err)
}

func TestSubmitRejectsPastDeadline(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Alice", true, PhaseLobby)
	require.Nil(t, g.StartGame())

	mockClock := g.clk.(*clock.Mock)
	mockClock.Advance(31 * time.Second)

	err := g.Submit("Alice", g.CurrentSong.Year, false)
	require.NotNil(t, err)
}

func TestSubmitAlreadySubmitted(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Alice", true, PhaseLobby)
	_, _ = g.players.Add("Bob", false, PhaseLobby)
	require.Nil(t, g.StartGame())

	require.Nil(t, g.Submit("Alice", g.CurrentSong.Year, false))
	err := g.Submit("Alice", g.CurrentSong.Year, false)
	require.NotNil(t, err)
}

func TestBetWonDoublesScore(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Alice", true, PhaseLobby)
	require.Nil(t, g.StartGame())

	correctYear := g.CurrentSong.Year
	require.Nil(t, g.Submit("Alice", correctYear, true))

	alice, _ := g.players.Get("Alice")
	assert.Equal(t, 40, alice.RoundScore)
	assert.Equal(t, "won", alice.BetOutcome)
}

func TestMissedRoundResetsStreak(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Alice", true, PhaseLobby)
	_, _ = g.players.Add("Bob", false, PhaseLobby)
	require.Nil(t, g.StartGame())

	alice, _ := g.players.Get("Alice")
	alice.Streak = 2

	// Only Alice submits; Bob connected but never submits, so the
	// round can't early-advance — force it via the timer path.
	require.Nil(t, g.Submit("Alice", g.CurrentSong.Year, false))

	// Bob never submitted, so Alice's submission alone can't complete
	// the round (Bob is still connected and unsubmitted).
	assert.Equal(t, PhasePlaying, g.Phase)

	g.endRoundIfCurrent(g.Round, false)
	assert.Equal(t, PhaseReveal, g.Phase)

	bob, _ := g.players.Get("Bob")
	assert.True(t, bob.MissedRound)
	assert.Equal(t, 0, bob.Streak)
	assert.Equal(t, 0, bob.RoundScore)
}

func TestAdminActionRequiresAdmin(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Alice", false, PhaseLobby)

	err := g.AdminAction("Alice", "start_game", "")
	require.NotNil(t, err)
}

func TestAdminEndGameTransitionsToEnd(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Admin", true, PhaseLobby)
	require.Nil(t, g.StartGame())

	err := g.AdminAction("Admin", "end_game", "")
	require.Nil(t, err)
	assert.Equal(t, PhaseEnd, g.Phase)
}

func TestNextRoundAdvancesAndEventuallyEnds(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Admin", true, PhaseLobby)
	require.Nil(t, g.StartGame())

	require.Nil(t, g.Submit("Admin", g.CurrentSong.Year, false))
	assert.Equal(t, PhaseReveal, g.Phase)
	firstLastRound := g.LastRound

	if !firstLastRound {
		require.Nil(t, g.NextRound())
		assert.Equal(t, PhasePlaying, g.Phase)
		require.Nil(t, g.Submit("Admin", g.CurrentSong.Year, false))
	}

	require.Nil(t, g.NextRound())
	assert.Equal(t, PhaseEnd, g.Phase)
}

func TestAdminDisconnectPausesAfterGrace(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Admin", true, PhaseLobby)
	require.Nil(t, g.StartGame())

	g.DisconnectPlayer("Admin")
	// Simulate the grace timer firing directly (avoids a real sleep).
	g.pauseIfAdminStillGone("Admin")
	assert.Equal(t, PhasePaused, g.Phase)

	ok := g.ReconnectAdmin("Admin")
	assert.True(t, ok)
	assert.Equal(t, PhasePlaying, g.Phase)
}

func TestAdminReconnectBeforeGraceCancelsPause(t *testing.T) {
	g, _ := newTestGame(testSongs())
	_, _ = g.players.Add("Admin", true, PhaseLobby)
	require.Nil(t, g.StartGame())

	g.DisconnectPlayer("Admin")
	ok := g.ReconnectAdmin("Admin")
	require.True(t, ok)

	g.pauseIfAdminStillGone("Admin")
	assert.Equal(t, PhasePlaying, g.Phase)
}
