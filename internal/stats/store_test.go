package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beatify/internal/analytics"
	"beatify/internal/clock"
	"beatify/internal/game"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.json")
	s := New(path, clock.NewMock(time.Now()), zap.NewNop(), nil)
	require.NoError(t, s.Load())
	return s
}

func TestRecordGameSkipsZeroPlayers(t *testing.T) {
	s := newTestStore(t)
	s.RecordGame(game.GameSummary{GameID: "g1", PlayerCount: 0})
	assert.Empty(t, s.data.Games)
}

func TestRecordGameUpdatesAllTimeAndPlaylist(t *testing.T) {
	s := newTestStore(t)
	s.RecordGame(game.GameSummary{
		GameID: "g1", PlayerCount: 2, RoundsPlayed: 10, TotalPoints: 100,
		PlaylistNames: []string{"90s Hits"}, Winner: "Alice", WinnerScore: 60,
		StartedAt: time.Now().Add(-time.Minute), EndedAt: time.Now(),
	})

	assert.Equal(t, 1, s.data.AllTime.GamesPlayed)
	assert.Equal(t, "g1", s.data.AllTime.HighestAvgGameID)
	ps, ok := s.data.Playlists["90s Hits"]
	require.True(t, ok)
	assert.Equal(t, 1, ps.TimesPlayed)
	assert.Equal(t, 10, ps.TotalRounds)
}

func TestRecordGameForwardsToAnalytics(t *testing.T) {
	anPath := filepath.Join(t.TempDir(), "analytics.json")
	an := analytics.New(anPath, clock.NewMock(time.Now()), zap.NewNop())
	t.Cleanup(an.Close)
	require.NoError(t, an.Load())

	s := New(filepath.Join(t.TempDir(), "stats.json"), clock.NewMock(time.Now()), zap.NewNop(), an)
	require.NoError(t, s.Load())

	s.RecordGame(game.GameSummary{
		GameID: "g1", PlayerCount: 3, RoundsPlayed: 5, TotalPoints: 60,
		PlaylistNames: []string{"2000s"}, StartedAt: time.Now().Add(-time.Minute), EndedAt: time.Now(),
	})

	require.Len(t, an.Games(), 1)
	assert.Equal(t, "g1", an.Games()[0].GameID)
}

func TestGetGameComparisonFirstGame(t *testing.T) {
	s := newTestStore(t)
	c := s.GetGameComparison(10)
	assert.True(t, c.IsFirstGame)
	assert.Equal(t, 0.0, c.AllTimeAvg)
}

func TestGetGameComparisonAboveAverage(t *testing.T) {
	s := newTestStore(t)
	s.RecordGame(game.GameSummary{GameID: "g1", PlayerCount: 2, RoundsPlayed: 10, TotalPoints: 100, StartedAt: time.Now(), EndedAt: time.Now()})

	c := s.GetGameComparison(8)
	assert.False(t, c.IsFirstGame)
	assert.True(t, c.IsAboveAvg)
}

func TestRecordSongResultAccumulates(t *testing.T) {
	s := newTestStore(t)
	meta := SongMetadata{Title: "Song A", Artist: "Artist A", Year: 1999}
	s.RecordSongResult("spotify:track:abc", []PlayerResult{
		{Name: "Alice", YearsOff: 0},
		{Name: "Bob", YearsOff: 2},
		{Name: "Carl", YearsOff: 20},
	}, meta, "90s Hits", "normal")

	song, ok := s.songs.Get(uriToKey("spotify:track:abc"))
	require.True(t, ok)
	assert.Equal(t, 1, song.TimesPlayed)
	assert.Equal(t, 3, song.TotalGuesses)
	assert.Equal(t, 1, song.ExactMatches)
	assert.Equal(t, 1, song.CloseMatches) // within normal close_range=3
	assert.Equal(t, 2, song.CorrectGuesses)
	assert.True(t, song.Playlists["90s Hits"])
}

func TestGetSongDifficultyRequiresMinPlays(t *testing.T) {
	s := newTestStore(t)
	meta := SongMetadata{Title: "Song A", Year: 2000}
	s.RecordSongResult("uri1", []PlayerResult{{YearsOff: 0}}, meta, "", "normal")

	_, ok := s.GetSongDifficulty("uri1")
	assert.False(t, ok)

	for i := 0; i < 2; i++ {
		s.RecordSongResult("uri1", []PlayerResult{{YearsOff: 0}}, meta, "", "normal")
	}
	diff, ok := s.GetSongDifficulty("uri1")
	require.True(t, ok)
	assert.Equal(t, 100.0, diff.Accuracy)
	assert.Equal(t, 1, diff.Stars)
	assert.Equal(t, "Easy", diff.Label)
}

func TestComputeSongStatsMostPlayedHardestEasiest(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		s.RecordSongResult("uriEasy", []PlayerResult{{YearsOff: 0}}, SongMetadata{Title: "Easy Song", Year: 2000}, "pl", "normal")
	}
	for i := 0; i < 3; i++ {
		s.RecordSongResult("uriHard", []PlayerResult{{YearsOff: 50}}, SongMetadata{Title: "Hard Song", Year: 1980}, "pl", "normal")
	}

	report := s.ComputeSongStats("")
	require.Len(t, report.Songs, 2)
	require.NotNil(t, report.Easiest)
	require.NotNil(t, report.Hardest)
	assert.Equal(t, "Easy Song", report.Easiest.Title)
	assert.Equal(t, "Hard Song", report.Hardest.Title)
	require.Len(t, report.ByPlaylist, 1)
	assert.Equal(t, "pl", report.ByPlaylist[0].Name)
}

func TestGetMotivationalMessageTiers(t *testing.T) {
	assert.Contains(t, GetMotivationalMessage(Comparison{IsFirstGame: true}), "first game")
	assert.Contains(t, GetMotivationalMessage(Comparison{IsNewRecord: true}), "New personal best")
	assert.Equal(t, "", GetMotivationalMessage(Comparison{Difference: -10}))
}
