package analytics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beatify/internal/clock"
)

func newTestStore(t *testing.T, now time.Time) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.json")
	s := New(path, clock.NewMock(now), zap.NewNop())
	t.Cleanup(s.Close)
	require.NoError(t, s.Load())
	return s, path
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	assert.Empty(t, s.Games())
	assert.Empty(t, s.Errors())
}

func TestLoadCorruptFileRecoversEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(path, clock.NewMock(time.Now()), zap.NewNop())
	t.Cleanup(s.Close)
	require.NoError(t, s.Load())
	assert.Empty(t, s.Games())
}

func TestAddGamePersistsAcrossReload(t *testing.T) {
	now := time.Now()
	s, path := newTestStore(t, now)

	s.AddGame(GameRecord{GameID: "g1", EndedAt: now.Unix(), PlayerCount: 2, RoundsPlayed: 5})

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	reloaded := New(path, clock.NewMock(now), zap.NewNop())
	t.Cleanup(reloaded.Close)
	require.NoError(t, reloaded.Load())
	require.Len(t, reloaded.Games(), 1)
	assert.Equal(t, "g1", reloaded.Games()[0].GameID)
}

func TestRecordErrorTruncatesLongMessage(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	long := make([]byte, 900)
	for i := range long {
		long[i] = 'x'
	}
	s.RecordError("MEDIA_PLAYER_ERROR", string(long))

	errs := s.Errors()
	require.Len(t, errs, 1)
	assert.Len(t, errs[0].Message, maxErrorMessageLen)
}

func TestPruneFoldsOldGamesIntoMonthlySummary(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, now)

	oldTime := now.Add(-100 * 24 * time.Hour)
	origMax := MaxDetailedRecords
	MaxDetailedRecords = 2
	t.Cleanup(func() { MaxDetailedRecords = origMax })
	origInterval := PruneInterval
	PruneInterval = 1
	t.Cleanup(func() { PruneInterval = origInterval })

	s.AddGame(GameRecord{GameID: "old1", EndedAt: oldTime.Unix(), PlayerCount: 4, RoundsPlayed: 10})
	s.AddGame(GameRecord{GameID: "old2", EndedAt: oldTime.Unix(), PlayerCount: 2, RoundsPlayed: 8})
	s.AddGame(GameRecord{GameID: "recent", EndedAt: now.Unix(), PlayerCount: 3, RoundsPlayed: 6})

	games := s.Games()
	require.Len(t, games, 1)
	assert.Equal(t, "recent", games[0].GameID)

	summaries := s.MonthlySummaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, oldTime.Format("2006-01"), summaries[0].Month)
	assert.Equal(t, 2, summaries[0].GamesCount)
	assert.Equal(t, 6, summaries[0].TotalPlayers)
}

func TestPruneIsNoopUnderBudget(t *testing.T) {
	now := time.Now()
	s, _ := newTestStore(t, now)
	s.AddGame(GameRecord{GameID: "g1", EndedAt: now.Add(-200 * 24 * time.Hour).Unix(), PlayerCount: 1, RoundsPlayed: 1})
	assert.Len(t, s.Games(), 1)
	assert.Empty(t, s.MonthlySummaries())
}

func TestCalcTrendZeroPreviousSpecialCase(t *testing.T) {
	assert.Equal(t, 1.0, calcTrend(5, 0).Change)
	assert.Equal(t, 0.0, calcTrend(0, 0).Change)
	assert.InDelta(t, 0.5, calcTrend(15, 10).Change, 0.001)
}

func TestComputeMetricsBasic(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, now)

	s.AddGame(GameRecord{
		GameID: "g1", EndedAt: now.Add(-time.Hour).Unix(), PlayerCount: 4, RoundsPlayed: 10,
		AverageScore: 120, PlaylistNames: []string{"90s Hits"}, Streak3Count: 1, TotalBets: 2, BetsWon: 1,
	})
	s.AddGame(GameRecord{
		GameID: "g2", EndedAt: now.Add(-48 * time.Hour).Unix(), PlayerCount: 2, RoundsPlayed: 5,
		AverageScore: 80, PlaylistNames: []string{"90s Hits", "2000s"},
	})

	m := s.ComputeMetrics(Period7d, now)
	assert.Equal(t, 2, m.GamesPlayed)
	assert.Equal(t, 4, m.PeakPlayers)
	require.Len(t, m.Playlists, 2)
	assert.Equal(t, "90s Hits", m.Playlists[0].Name)
	assert.Equal(t, 2, m.Playlists[0].Count)
	assert.Len(t, m.ChartData, 7)
	assert.Equal(t, 2, m.BetStats.TotalBets)
	assert.Equal(t, 1, m.BetStats.BetsWon)
}

func TestComputeMetricsUnknownPeriodFallsBackTo30d(t *testing.T) {
	now := time.Now()
	s, _ := newTestStore(t, now)
	m := s.ComputeMetrics(Period("bogus"), now)
	assert.Equal(t, Period30d, m.Period)
}

func TestComputeErrorStatsStatusThresholds(t *testing.T) {
	assert.Equal(t, "healthy", computeErrorStats(nil, 0, 100).Status)
	assert.Equal(t, "warning", computeErrorStats(nil, 2, 100).Status)
	assert.Equal(t, "critical", computeErrorStats(nil, 6, 100).Status)
}
