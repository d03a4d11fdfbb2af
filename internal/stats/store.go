// Package stats implements StatsStore (spec.md §4.10), grounded on
// original_source/custom_components/beatify/services/stats.py's
// StatsService: all-time records, per-playlist counters, and
// per-song difficulty tracking, persisted as a single plain JSON file
// (no atomic rename, no pruning — unlike AnalyticsStore).
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"beatify/internal/analytics"
	"beatify/internal/clock"
	"beatify/internal/game"
	"beatify/internal/scoring"
)

// maxSongIndexEntries bounds the in-memory per-song accuracy index
// (comfortably above any single installation's library); large
// deployments evict least-recently-used songs rather than growing the
// process unboundedly.
const maxSongIndexEntries = 5000

// GameEntry is one row of the all-time games list (stats.py's
// game_entry).
type GameEntry struct {
	ID              string   `json:"id"`
	GameID          string   `json:"game_id"`
	EndedAt         int64    `json:"ended_at"`
	PlayerCount     int      `json:"player_count"`
	RoundsPlayed    int      `json:"rounds_played"`
	TotalPoints     int      `json:"total_points"`
	AvgScorePerRound float64 `json:"avg_score_per_round"`
	Winner          string   `json:"winner"`
	WinnerScore     int      `json:"winner_score"`
	Difficulty      string   `json:"difficulty"`
}

// PlaylistStats is the per-playlist running counter bucket.
type PlaylistStats struct {
	TimesPlayed int `json:"times_played"`
	TotalRounds int `json:"total_rounds"`
}

// AllTime holds the running all-time-best record (stats.py's
// all_time dict).
type AllTime struct {
	GamesPlayed       int     `json:"games_played"`
	HighestAvgScore   float64 `json:"highest_avg_score"`
	HighestAvgGameID  string  `json:"highest_avg_game_id"`
}

// SongStats is the per-song running record (stats.py's songs[uri]
// dict).
type SongStats struct {
	Title         string          `json:"title"`
	Artist        string          `json:"artist"`
	Year          int             `json:"year"`
	TimesPlayed   int             `json:"times_played"`
	LastPlayed    int64           `json:"last_played"`
	Playlists     map[string]bool `json:"playlists"`
	TotalGuesses  int             `json:"total_guesses"`
	TotalYearsOff int             `json:"total_years_off"`
	ExactMatches  int             `json:"exact_matches"`
	CloseMatches  int             `json:"close_matches"`
	CorrectGuesses int            `json:"correct_guesses"`
}

// fileData is the JSON-persisted shape; Songs is flattened out of the
// in-memory LRU index at save time and replayed back into it on load.
type fileData struct {
	Version   int                       `json:"version"`
	Games     []GameEntry               `json:"games"`
	Playlists map[string]*PlaylistStats `json:"playlists"`
	AllTime   AllTime                   `json:"all_time"`
	Songs     map[string]*SongStats     `json:"songs"`
}

func emptyData() fileData {
	return fileData{Version: 1, Playlists: make(map[string]*PlaylistStats), Songs: make(map[string]*SongStats)}
}

// Store is StatsStore. It optionally forwards every recorded game to
// an AnalyticsStore, mirroring stats.py's self._analytics.add_game call.
type Store struct {
	path string
	clk  clock.Clock
	log  *zap.Logger
	an   *analytics.Store
	met  analytics.LatencyObserver

	mu    sync.Mutex
	data  fileData
	songs *lru.Cache[string, *SongStats]
}

// New constructs a Store writing to path. An nil analytics store
// disables the add_game forwarding (StatsStore works standalone).
func New(path string, clk clock.Clock, log *zap.Logger, an *analytics.Store) *Store {
	songs, _ := lru.New[string, *SongStats](maxSongIndexEntries)
	return &Store{path: path, clk: clk, log: log, an: an, data: emptyData(), songs: songs}
}

// SetMetrics wires a latency observer; Store works fine without one.
func (s *Store) SetMetrics(m analytics.LatencyObserver) { s.met = m }

// Load reads path, starting empty on a missing or corrupt file.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		s.log.Warn("failed to read stats file, starting fresh", zap.Error(err))
		return nil
	}

	var d fileData
	if err := json.Unmarshal(raw, &d); err != nil {
		s.log.Warn("stats file corrupted, recreating", zap.Error(err))
		return nil
	}
	if d.Playlists == nil {
		d.Playlists = make(map[string]*PlaylistStats)
	}

	s.mu.Lock()
	for uri, song := range d.Songs {
		s.songs.Add(uri, song)
	}
	d.Songs = nil
	s.data = d
	s.mu.Unlock()
	return nil
}

// save writes the current data directly (stats.py's save(): a plain
// write_text, no temp file, no pruning). Songs is flattened out of
// the LRU index so persistence survives a process restart even
// though the in-memory structure is bounded.
func (s *Store) save() {
	start := s.clk.Now()
	if s.met != nil {
		defer func() { s.met.ObserveSaveLatency("stats", s.clk.Now().Sub(start).Seconds()) }()
	}

	s.mu.Lock()
	s.data.Songs = make(map[string]*SongStats, s.songs.Len())
	for _, uri := range s.songs.Keys() {
		if song, ok := s.songs.Peek(uri); ok {
			s.data.Songs[uri] = song
		}
	}
	payload, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		s.log.Error("failed to marshal stats", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Error("failed to create stats directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		s.log.Error("failed to write stats file", zap.Error(err))
	}
}

// Comparison is stats.py's get_game_comparison return value.
type Comparison struct {
	AvgScore     float64 `json:"avg_score"`
	AllTimeAvg   float64 `json:"all_time_avg"`
	Difference   float64 `json:"difference"`
	IsNewRecord  bool    `json:"is_new_record"`
	IsFirstGame  bool    `json:"is_first_game"`
	IsAboveAvg   bool    `json:"is_above_average"`
}

// RecordGame implements game.Recorder, matching stats.py's
// record_game: it skips player-less games, forwards an analytics
// GameRecord, and updates the all-time / per-playlist counters.
func (s *Store) RecordGame(summary game.GameSummary) {
	if summary.PlayerCount == 0 {
		return
	}

	avgPerRound := 0.0
	if summary.RoundsPlayed > 0 {
		avgPerRound = float64(summary.TotalPoints) / (float64(summary.RoundsPlayed) * float64(summary.PlayerCount))
	}

	s.mu.Lock()
	s.data.Games = append(s.data.Games, GameEntry{
		ID: uuid.NewString()[:8], GameID: summary.GameID, EndedAt: summary.EndedAt.Unix(),
		PlayerCount: summary.PlayerCount, RoundsPlayed: summary.RoundsPlayed, TotalPoints: summary.TotalPoints,
		AvgScorePerRound: round2(avgPerRound), Winner: summary.Winner, WinnerScore: summary.WinnerScore, Difficulty: summary.Difficulty,
	})

	playlistKey := playlistKeyOf(summary.PlaylistNames)
	ps, ok := s.data.Playlists[playlistKey]
	if !ok {
		ps = &PlaylistStats{}
		s.data.Playlists[playlistKey] = ps
	}
	ps.TimesPlayed++
	ps.TotalRounds += summary.RoundsPlayed

	s.data.AllTime.GamesPlayed++
	isNewRecord := false
	if avgPerRound > s.data.AllTime.HighestAvgScore || s.data.AllTime.HighestAvgGameID == "" {
		s.data.AllTime.HighestAvgScore = round2(avgPerRound)
		s.data.AllTime.HighestAvgGameID = summary.GameID
		isNewRecord = true
	}
	s.mu.Unlock()

	s.save()

	if s.an != nil {
		duration := int64(0)
		if !summary.StartedAt.IsZero() {
			duration = summary.EndedAt.Unix() - summary.StartedAt.Unix()
		}
		s.an.AddGame(analytics.GameRecord{
			GameID: summary.GameID, StartedAt: summary.StartedAt.Unix(), EndedAt: summary.EndedAt.Unix(),
			DurationSeconds: duration, PlayerCount: summary.PlayerCount, PlaylistNames: summary.PlaylistNames,
			RoundsPlayed: summary.RoundsPlayed, AverageScore: round2(avgPerRound), Difficulty: summary.Difficulty,
			ErrorCount: summary.ErrorCount, Streak3Count: summary.Streak3Count, Streak5Count: summary.Streak5Count,
			Streak7Count: summary.Streak7Count, TotalBets: summary.TotalBets, BetsWon: summary.BetsWon,
		})
	}

	s.log.Info("recorded game stats", zap.String("game_id", summary.GameID), zap.Bool("is_new_record", isNewRecord))
}

// GetGameComparison implements stats.py's get_game_comparison, usable
// standalone from RecordGame's return to show the dashboard a
// just-finished game's standing.
func (s *Store) GetGameComparison(avgScore float64) Comparison {
	s.mu.Lock()
	defer s.mu.Unlock()

	allTimeAvg := s.allTimeAvgLocked()
	isFirst := len(s.data.Games) == 0
	diff := round2(avgScore - allTimeAvg)
	return Comparison{
		AvgScore: round2(avgScore), AllTimeAvg: round2(allTimeAvg), Difference: diff,
		IsNewRecord: avgScore >= s.data.AllTime.HighestAvgScore && !isFirst,
		IsFirstGame: isFirst, IsAboveAvg: diff >= 0,
	}
}

// allTimeAvgLocked mirrors stats.py's all_time_avg property: a
// rounds*player_count-weighted average across every recorded game.
// Caller must hold s.mu.
func (s *Store) allTimeAvgLocked() float64 {
	totalWeighted, totalWeight := 0.0, 0
	for _, g := range s.data.Games {
		weight := g.RoundsPlayed * g.PlayerCount
		totalWeighted += g.AvgScorePerRound * float64(weight)
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return totalWeighted / float64(totalWeight)
}

// GetMotivationalMessage mirrors stats.py's tiered messages by score
// difference; returns "" below the -5 cutoff (Python returns None).
func GetMotivationalMessage(c Comparison) string {
	switch {
	case c.IsFirstGame:
		return "Welcome to your first game! Every score from here is a new record."
	case c.IsNewRecord:
		return "New personal best! That's the highest average yet."
	case c.Difference >= 2:
		return "Great round, well above your usual average."
	case c.Difference >= 0:
		return "Solid game, right around your average."
	case c.Difference >= -5:
		return "A bit below average this time, next game's the comeback."
	default:
		return ""
	}
}

func playlistKeyOf(names []string) string {
	if len(names) == 0 {
		return "unknown"
	}
	return strings.Join(names, ",")
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

var _ game.Recorder = (*Store)(nil)

// uriToKey mirrors stats.py's _uri_to_key: replace path separators so
// a URI is safe as a JSON map key.
func uriToKey(uri string) string {
	r := strings.NewReplacer(":", "_", "/", "_")
	return r.Replace(uri)
}

// PlayerResult is one player's submission on a song, fed into
// RecordSongResult (stats.py's record_song_result player_results).
type PlayerResult struct {
	Name     string
	YearsOff int
}

// SongMetadata carries the display fields SongStats needs the first
// time a song is seen.
type SongMetadata struct {
	Title  string
	Artist string
	Year   int
}

// RecordSongResult updates the per-song accuracy index for one round
// (stats.py's record_song_result).
func (s *Store) RecordSongResult(songURI string, results []PlayerResult, meta SongMetadata, playlistName, difficulty string) {
	key := uriToKey(songURI)
	closeRange := scoring.CloseRange(difficulty)

	s.mu.Lock()
	defer s.mu.Unlock()

	song, ok := s.songs.Get(key)
	if !ok {
		song = &SongStats{Playlists: make(map[string]bool)}
		s.songs.Add(key, song)
	}
	if song.Playlists == nil {
		song.Playlists = make(map[string]bool)
	}

	song.Title, song.Artist, song.Year = meta.Title, meta.Artist, meta.Year
	song.TimesPlayed++
	song.LastPlayed = s.clk.Now().Unix()
	if playlistName != "" {
		song.Playlists[playlistName] = true
	}

	for _, r := range results {
		song.TotalGuesses++
		song.TotalYearsOff += abs(r.YearsOff)
		switch {
		case r.YearsOff == 0:
			song.ExactMatches++
			song.CorrectGuesses++
		case abs(r.YearsOff) <= closeRange:
			song.CloseMatches++
			song.CorrectGuesses++
		case abs(r.YearsOff) <= scoring.CorrectGuessThreshold:
			song.CorrectGuesses++
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// difficultyThresholds and difficultyLabels were not recovered from
// the truncated original const.py; chosen so that higher song
// accuracy (an easier song to date) maps to a lower star rating,
// matching stats.py's get_song_difficulty iteration order (see
// DESIGN.md "Supplemented constants").
var difficultyThresholds = map[int]float64{
	1: 70, // Easy: >=70% accuracy
	2: 50, // Medium
	3: 30, // Hard
	4: 0,  // Extreme: anything below Hard's threshold
}

var difficultyLabels = map[int]string{1: "Easy", 2: "Medium", 3: "Hard", 4: "Extreme"}

// SongDifficulty is the star/label pair get_song_difficulty returns.
type SongDifficulty struct {
	Stars    int     `json:"stars"`
	Label    string  `json:"label"`
	Accuracy float64 `json:"accuracy"`
}

// GetSongDifficulty implements stats.py's get_song_difficulty: a song
// needs MinPlaysForDifficulty plays and at least one guess before it
// earns a rating.
func (s *Store) GetSongDifficulty(songURI string) (SongDifficulty, bool) {
	s.mu.Lock()
	song, ok := s.songs.Get(uriToKey(songURI))
	s.mu.Unlock()
	if !ok || song.TimesPlayed < scoring.MinPlaysForDifficulty || song.TotalGuesses == 0 {
		return SongDifficulty{}, false
	}

	accuracy := float64(song.CorrectGuesses) / float64(song.TotalGuesses) * 100

	stars := make([]int, 0, len(difficultyThresholds))
	for star := range difficultyThresholds {
		stars = append(stars, star)
	}
	sort.Ints(stars)

	chosen := stars[len(stars)-1]
	for _, star := range stars {
		if accuracy >= difficultyThresholds[star] {
			chosen = star
			break
		}
	}
	return SongDifficulty{Stars: chosen, Label: difficultyLabels[chosen], Accuracy: round2(accuracy)}, true
}

// PlaylistSongStats is one entry of ComputeSongStats's by_playlist
// breakdown.
type PlaylistSongStats struct {
	Name        string  `json:"name"`
	TotalPlays  int     `json:"total_plays"`
	AvgAccuracy float64 `json:"avg_accuracy"`
}

// SongStatEntry is one formatted row of ComputeSongStats's song list
// (stats.py's _format_song).
type SongStatEntry struct {
	URI             string  `json:"uri"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	Year            int     `json:"year"`
	TimesPlayed     int     `json:"times_played"`
	Accuracy        float64 `json:"accuracy"`
	AvgYearDiff      float64 `json:"avg_year_diff"`
	PrimaryPlaylist string  `json:"primary_playlist"`
}

// SongStatsReport is ComputeSongStats's return value.
type SongStatsReport struct {
	Songs       []SongStatEntry     `json:"songs"`
	MostPlayed  *SongStatEntry      `json:"most_played"`
	Hardest     *SongStatEntry      `json:"hardest"`
	Easiest     *SongStatEntry      `json:"easiest"`
	ByPlaylist  []PlaylistSongStats `json:"by_playlist"`
}

// ComputeSongStats mirrors stats.py's compute_song_stats: builds the
// formatted song list (skipping songs with no plays, no title, or no
// guesses), finds most-played/hardest/easiest, and aggregates a
// by_playlist breakdown. An empty playlistFilter includes every song.
func (s *Store) ComputeSongStats(playlistFilter string) SongStatsReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []SongStatEntry
	maxPlays := 0
	playlistTotals := make(map[string]int)
	playlistAccSum := make(map[string]float64)
	playlistAccCount := make(map[string]int)

	for _, uri := range s.songs.Keys() {
		song, ok := s.songs.Peek(uri)
		if !ok || song.TimesPlayed == 0 || song.Title == "" || song.TotalGuesses == 0 {
			continue
		}
		if playlistFilter != "" && !song.Playlists[playlistFilter] {
			continue
		}

		accuracy := (float64(song.ExactMatches) + 0.5*float64(song.CloseMatches)) / float64(song.TotalGuesses)
		avgYearDiff := float64(song.TotalYearsOff) / float64(song.TotalGuesses)

		primary := primaryPlaylist(song.Playlists, playlistTotals)
		entries = append(entries, SongStatEntry{
			URI: uri, Title: song.Title, Artist: song.Artist, Year: song.Year,
			TimesPlayed: song.TimesPlayed, Accuracy: round2(accuracy * 100), AvgYearDiff: round2(avgYearDiff),
			PrimaryPlaylist: primary,
		})

		if song.TimesPlayed > maxPlays {
			maxPlays = song.TimesPlayed
		}
		for name := range song.Playlists {
			playlistTotals[name]++
			playlistAccSum[name] += accuracy * 100
			playlistAccCount[name]++
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Title < entries[j].Title })

	report := SongStatsReport{Songs: entries}
	if len(entries) == 0 {
		return report
	}

	report.MostPlayed = maxBy(entries, func(e SongStatEntry) float64 { return float64(e.TimesPlayed) })

	threshold := maxPlays
	if threshold > 3 {
		threshold = 3
	}
	var candidates []SongStatEntry
	for _, e := range entries {
		if e.TimesPlayed >= threshold {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) > 0 {
		report.Hardest = minBy(candidates, func(e SongStatEntry) float64 { return e.Accuracy })
		report.Easiest = maxBy(candidates, func(e SongStatEntry) float64 { return e.Accuracy })
	}

	names := make([]string, 0, len(playlistTotals))
	for n := range playlistTotals {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return playlistTotals[names[i]] > playlistTotals[names[j]] })
	for _, n := range names {
		avg := 0.0
		if playlistAccCount[n] > 0 {
			avg = round2(playlistAccSum[n] / float64(playlistAccCount[n]))
		}
		report.ByPlaylist = append(report.ByPlaylist, PlaylistSongStats{Name: n, TotalPlays: playlistTotals[n], AvgAccuracy: avg})
	}

	return report
}

// primaryPlaylist picks the playlist with the highest running total
// play count among those this song belongs to (stats.py's
// "primary playlist" heuristic in _format_song).
func primaryPlaylist(playlists map[string]bool, totals map[string]int) string {
	best, bestCount := "", -1
	names := make([]string, 0, len(playlists))
	for n := range playlists {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if totals[n] > bestCount {
			best, bestCount = n, totals[n]
		}
	}
	return best
}

func maxBy(entries []SongStatEntry, key func(SongStatEntry) float64) *SongStatEntry {
	best := entries[0]
	for _, e := range entries[1:] {
		if key(e) > key(best) {
			best = e
		}
	}
	return &best
}

func minBy(entries []SongStatEntry, key func(SongStatEntry) float64) *SongStatEntry {
	best := entries[0]
	for _, e := range entries[1:] {
		if key(e) < key(best) {
			best = e
		}
	}
	return &best
}
