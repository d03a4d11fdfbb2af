package player

import (
	"strings"
	"sync"
	"time"

	"beatify/internal/apierr"
	"beatify/internal/clock"
)

// Phase names the registry needs to enforce admission rules without
// importing internal/game (which will import internal/player).
type Phase = string

const (
	PhaseLobby   Phase = "LOBBY"
	PhasePlaying Phase = "PLAYING"
	PhaseReveal  Phase = "REVEAL"
	PhaseEnd     Phase = "END"
	PhasePaused  Phase = "PAUSED"
)

// Registry tracks every session in one game, grounded on
// original_source/custom_components/beatify/game/player.py's
// PlayerRegistry and spec.md §4.6.
type Registry struct {
	mu    sync.RWMutex
	clock clock.Clock

	minNameLen, maxNameLen int
	maxPlayers             int

	byName map[string]*Session // keyed by lower-cased name
	order  []*Session          // insertion order, for deterministic iteration

	adminName string

	// disconnectedAdmin remembers a disconnected admin's name during
	// the reconnect grace window (spec.md §4.6).
	disconnectedAdminName string
	disconnectedAdminAt   time.Time
}

// NewRegistry constructs an empty Registry.
func NewRegistry(c clock.Clock, minNameLen, maxNameLen, maxPlayers int) *Registry {
	return &Registry{
		clock:      c,
		minNameLen: minNameLen,
		maxNameLen: maxNameLen,
		maxPlayers: maxPlayers,
		byName:     make(map[string]*Session),
	}
}

// Add admits a new session under the name-validation and capacity
// rules of spec.md §4.6. isAdmin requests admin status; phase is the
// game's current phase, used both for the GAME_ENDED guard and to set
// JoinedLate.
func (r *Registry) Add(name string, isAdmin bool, phase Phase) (*Session, *apierr.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trimmed := strings.TrimSpace(name)
	if len(trimmed) < r.minNameLen || len(trimmed) > r.maxNameLen {
		return nil, apierr.New(apierr.NameInvalid)
	}

	if phase == PhaseEnd {
		return nil, apierr.New(apierr.GameEnded)
	}

	if len(r.order) >= r.maxPlayers {
		return nil, apierr.New(apierr.GameFull)
	}

	key := strings.ToLower(trimmed)
	if _, exists := r.byName[key]; exists {
		return nil, apierr.New(apierr.NameTaken)
	}

	if isAdmin {
		if ok := r.tryClaimAdmin(key); !ok {
			return nil, apierr.New(apierr.AdminExists)
		}
	}

	joinedLate := phase != PhaseLobby
	s := New(trimmed, isAdmin, joinedLate)
	r.byName[key] = s
	r.order = append(r.order, s)
	return s, nil
}

// tryClaimAdmin enforces "exactly one player may hold is_admin" and
// the reconnect-window rejection rule. Caller holds r.mu.
func (r *Registry) tryClaimAdmin(key string) bool {
	if r.adminName != "" {
		return false
	}
	if r.disconnectedAdminName != "" && r.disconnectedAdminName != key {
		// A different admin is still within its grace window.
		return false
	}
	r.adminName = key
	r.disconnectedAdminName = ""
	return true
}

// Get looks up a session by name (case-insensitive).
func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// All returns every session in join order. The slice is a fresh copy,
// safe for the caller to iterate without holding the registry lock
// (spec.md §5 "iterating for broadcast takes a snapshot").
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, len(r.order))
	copy(out, r.order)
	return out
}

// Connected returns every currently-connected session.
func (r *Registry) Connected() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, s := range r.order {
		if s.Connected {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the total number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Disconnect marks name disconnected. If it was the admin, it starts
// the grace-period bookkeeping the game timer uses to decide whether
// to pause (spec.md §4.6, §4.7 PLAYING→PAUSED).
func (r *Registry) Disconnect(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(name))
	s, ok := r.byName[key]
	if !ok {
		return
	}
	s.Connected = false

	if r.adminName == key {
		r.adminName = ""
		r.disconnectedAdminName = key
		r.disconnectedAdminAt = r.clock.Now()
	}
}

// TryReconnectAdmin matches a rejoining admin against the remembered
// disconnected-admin name (case-insensitive). On success it clears the
// grace bookkeeping so GameState can resume a PAUSED game.
func (r *Registry) TryReconnectAdmin(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(name))
	if r.disconnectedAdminName != key {
		return nil, false
	}
	s, ok := r.byName[key]
	if !ok {
		return nil, false
	}
	s.Connected = true
	r.adminName = key
	r.disconnectedAdminName = ""
	return s, true
}

// AdminDisconnectedSince reports when the remembered admin
// disconnected, and whether a disconnected admin is remembered at all.
func (r *Registry) AdminDisconnectedSince() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.disconnectedAdminName == "" {
		return time.Time{}, false
	}
	return r.disconnectedAdminAt, true
}

// Admin returns the currently-connected admin session, if any.
func (r *Registry) Admin() (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.adminName == "" {
		return nil, false
	}
	s, ok := r.byName[r.adminName]
	return s, ok
}

// Clear removes every session and admin bookkeeping (spec.md §4.7
// END → LOBBY "all state cleared").
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]*Session)
	r.order = nil
	r.adminName = ""
	r.disconnectedAdminName = ""
}
