package playlist

import "math/rand"

// Manager draws songs uniformly at random from a fixed pool without
// repetition until exhausted, grounded on
// original_source/custom_components/beatify/game/playlist.py's
// PlaylistManager and generalized from the selection-loop shape in
// the roulettify example (internal/game/room.go's round draw), which
// this implementation replaces with a uniform draw per spec.md §4.3
// rather than a weighted one.
type Manager struct {
	pool      []Song
	remaining []int // indices into pool not yet played; Next draws from the end
	played    map[string]bool
	rng       *rand.Rand
}

// NewManager takes a defensive copy of songs so later mutation by the
// caller can't affect an in-progress game (spec.md §4.3).
func NewManager(songs []Song, rng *rand.Rand) *Manager {
	pool := make([]Song, len(songs))
	copy(pool, songs)

	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	m := &Manager{pool: pool, played: make(map[string]bool), rng: rng}
	m.Reset()
	return m
}

// Reset returns every song in the pool to the unplayed set.
func (m *Manager) Reset() {
	m.remaining = make([]int, len(m.pool))
	for i := range m.pool {
		m.remaining[i] = i
	}
	m.played = make(map[string]bool)
	m.rng.Shuffle(len(m.remaining), func(i, j int) {
		m.remaining[i], m.remaining[j] = m.remaining[j], m.remaining[i]
	})
}

// IsExhausted reports whether every song in the pool has been drawn.
func (m *Manager) IsExhausted() bool {
	return len(m.remaining) == 0
}

// Next draws one song uniformly at random from the unplayed set,
// marking it played and removing it from future draws. Returns false
// if the pool is exhausted.
func (m *Manager) Next() (Song, bool) {
	if m.IsExhausted() {
		return Song{}, false
	}
	idx := m.remaining[len(m.remaining)-1]
	m.remaining = m.remaining[:len(m.remaining)-1]

	song := m.pool[idx]
	m.played[song.PrimaryURI()] = true
	return song, true
}

// Size is the total number of songs in the pool.
func (m *Manager) Size() int { return len(m.pool) }

// Remaining is the number of songs not yet drawn.
func (m *Manager) Remaining() int { return len(m.remaining) }

// Played reports whether the given song (by URI) has already been drawn.
func (m *Manager) Played(uri string) bool { return m.played[uri] }
