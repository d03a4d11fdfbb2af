package game

import (
	"context"
	"strings"
	"sync"
	"time"
)

// graceTimers tracks the cancellable disconnect-grace tasks keyed by
// player name, plus the admin pause task (spec.md §5 "Disconnect
// grace tasks: keyed by player name; cancelled on reconnect or on
// end_game").
type graceTimers struct {
	mu       sync.Mutex
	players  map[string]*time.Timer
	adminPause *time.Timer
}

func newGraceTimers() graceTimers {
	return graceTimers{players: make(map[string]*time.Timer)}
}

func (t *graceTimers) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, timer := range t.players {
		timer.Stop()
		delete(t.players, name)
	}
	if t.adminPause != nil {
		t.adminPause.Stop()
		t.adminPause = nil
	}
}

func (t *graceTimers) cancelPlayer(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := strings.ToLower(name)
	if timer, ok := t.players[key]; ok {
		timer.Stop()
		delete(t.players, key)
	}
}

func (t *graceTimers) armPlayer(name string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := strings.ToLower(name)
	if existing, ok := t.players[key]; ok {
		existing.Stop()
	}
	t.players[key] = time.AfterFunc(d, fn)
}

func (t *graceTimers) cancelAdminPause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.adminPause != nil {
		t.adminPause.Stop()
		t.adminPause = nil
	}
}

func (t *graceTimers) armAdminPause(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.adminPause != nil {
		t.adminPause.Stop()
	}
	t.adminPause = time.AfterFunc(d, fn)
}

// DisconnectPlayer marks name disconnected and, for a regular player,
// arms a grace-period task that re-broadcasts state if the player is
// still disconnected when it fires; the session is not removed from
// the registry. For the admin it arms the PLAYING -> PAUSED transition
// instead (spec.md §4.8 "Grace-period disconnect").
func (g *Game) DisconnectPlayer(name string) {
	g.players.Disconnect(name)
	g.recordError(ErrWSDisconnect, name+" disconnected")

	s, ok := g.players.Get(name)
	if !ok {
		return
	}

	if s.IsAdmin {
		g.graceMu.armAdminPause(g.cfg.DisconnectGrace, func() {
			g.post(func() { g.pauseIfAdminStillGone(name) })
		})
		return
	}

	g.graceMu.armPlayer(name, g.cfg.DisconnectGrace, func() {
		g.post(func() { g.removeIfStillDisconnected(name) })
	})
}

// pauseIfAdminStillGone fires on the owning event-loop goroutine (see
// EventLoop.Run); it is the "fn" armed by DisconnectPlayer.
func (g *Game) pauseIfAdminStillGone(name string) {
	if _, connected := g.players.Admin(); connected {
		return // reconnected before the grace period elapsed
	}
	if g.Phase != PhasePlaying {
		return
	}
	g.stopRoundTimer()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	g.stopMediaBestEffort(ctx)
	cancel()
	g.Phase = PhasePaused
	g.bcast.BroadcastState(g.Snapshot(""))
}

func (g *Game) removeIfStillDisconnected(name string) {
	s, ok := g.players.Get(name)
	if !ok || s.Connected {
		return
	}
	g.graceMu.cancelPlayer(name)
	g.bcast.BroadcastState(g.Snapshot(""))
}

// ReconnectAdmin implements PAUSED -> PLAYING on admin reconnect
// (spec.md §4.7), cancelling the pending pause task.
func (g *Game) ReconnectAdmin(name string) bool {
	s, ok := g.players.TryReconnectAdmin(name)
	if !ok {
		return false
	}
	g.graceMu.cancelAdminPause()
	if g.Phase == PhasePaused {
		g.Phase = PhasePlaying
		g.armRoundTimer()
	}
	_ = s
	g.bcast.BroadcastState(g.Snapshot(""))
	return true
}

// ReconnectPlayer cancels a regular player's pending removal task.
func (g *Game) ReconnectPlayer(name string) {
	g.graceMu.cancelPlayer(name)
}
