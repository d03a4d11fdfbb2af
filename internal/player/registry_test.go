package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beatify/internal/apierr"
	"beatify/internal/clock"
)

func newTestRegistry() *Registry {
	return NewRegistry(clock.NewMock(time.Unix(0, 0)), 1, 20, 3)
}

func TestAddBasicRules(t *testing.T) {
	r := newTestRegistry()

	s, err := r.Add("Alice", false, PhaseLobby)
	require.Nil(t, err)
	assert.Equal(t, "Alice", s.Name)
	assert.False(t, s.JoinedLate)
}

func TestAddNameInvalid(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Add("   ", false, PhaseLobby)
	require.NotNil(t, err)
	assert.Equal(t, apierr.NameInvalid, err.Code)
}

func TestAddNameTakenCaseInsensitive(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Add("Alice", false, PhaseLobby)
	require.Nil(t, err)

	_, err = r.Add("ALICE", false, PhaseLobby)
	require.NotNil(t, err)
	assert.Equal(t, apierr.NameTaken, err.Code)
}

func TestAddGameEnded(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Add("Alice", false, PhaseEnd)
	require.NotNil(t, err)
	assert.Equal(t, apierr.GameEnded, err.Code)
}

func TestAddGameFull(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Add("A", false, PhaseLobby)
	require.Nil(t, err)
	_, err = r.Add("B", false, PhaseLobby)
	require.Nil(t, err)
	_, err = r.Add("C", false, PhaseLobby)
	require.Nil(t, err)

	_, err = r.Add("D", false, PhaseLobby)
	require.NotNil(t, err)
	assert.Equal(t, apierr.GameFull, err.Code)
}

func TestAddJoinedLateWhenNotLobby(t *testing.T) {
	r := newTestRegistry()
	s, err := r.Add("Alice", false, PhasePlaying)
	require.Nil(t, err)
	assert.True(t, s.JoinedLate)
}

func TestAdminExclusivity(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Add("Admin1", true, PhaseLobby)
	require.Nil(t, err)

	_, err = r.Add("Admin2", true, PhaseLobby)
	require.NotNil(t, err)
	assert.Equal(t, apierr.AdminExists, err.Code)
}

func TestAdminDisconnectReconnect(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Add("Admin1", true, PhaseLobby)
	require.Nil(t, err)

	r.Disconnect("Admin1")
	_, stillAdmin := r.Admin()
	assert.False(t, stillAdmin)

	since, pending := r.AdminDisconnectedSince()
	assert.True(t, pending)
	assert.False(t, since.IsZero())

	// Another party cannot claim admin during the grace window.
	_, err = r.Add("Admin2", true, PhaseLobby)
	require.NotNil(t, err)
	assert.Equal(t, apierr.AdminExists, err.Code)

	s, ok := r.TryReconnectAdmin("admin1")
	require.True(t, ok)
	assert.Equal(t, "Admin1", s.Name)

	admin, ok := r.Admin()
	require.True(t, ok)
	assert.Equal(t, "Admin1", admin.Name)
}

func TestClearRemovesEveryone(t *testing.T) {
	r := newTestRegistry()
	_, _ = r.Add("Admin1", true, PhaseLobby)
	_, _ = r.Add("Alice", false, PhaseLobby)

	r.Clear()
	assert.Equal(t, 0, r.Count())
	_, ok := r.Admin()
	assert.False(t, ok)
}

func TestResetRoundClearsRoundLocalFields(t *testing.T) {
	s := New("Alice", false, false)
	s.Submitted = true
	s.CurrentGuess = 1999
	s.YearsOff = 2
	s.BetOutcome = "won"

	s.ResetRound()

	assert.False(t, s.Submitted)
	assert.Equal(t, 0, s.CurrentGuess)
	assert.Equal(t, 0, s.YearsOff)
	assert.Equal(t, "", s.BetOutcome)
}
