// Package analytics implements AnalyticsStore (spec.md §4.9), grounded
// on original_source/custom_components/beatify/analytics.py's
// AnalyticsStorage: a single JSON file with atomic tmp+rename writes,
// a non-blocking schedule_save, and month-bucketed retention pruning.
package analytics

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"beatify/internal/clock"
)

// Retention tuning (original_source/analytics.py); exposed as package
// vars rather than consts so Bootstrap can apply internal/config
// overrides without touching this file.
var (
	MaxDetailedRecords = 1000
	RetentionDays      = 90
	PruneInterval      = 10
)

// GameRecord is one completed game's analytics entry (spec.md §3
// AnalyticsRecord).
type GameRecord struct {
	GameID          string   `json:"game_id"`
	StartedAt       int64    `json:"started_at"`
	EndedAt         int64    `json:"ended_at"`
	DurationSeconds int64    `json:"duration_seconds"`
	PlayerCount     int      `json:"player_count"`
	PlaylistNames   []string `json:"playlist_names"`
	RoundsPlayed    int      `json:"rounds_played"`
	AverageScore    float64  `json:"average_score"`
	Difficulty      string   `json:"difficulty"`
	ErrorCount      int      `json:"error_count"`
	Streak3Count    int      `json:"streak_3_count"`
	Streak5Count    int      `json:"streak_5_count"`
	Streak7Count    int      `json:"streak_7_count"`
	TotalBets       int      `json:"total_bets"`
	BetsWon         int      `json:"bets_won"`
}

// ErrorEvent is spec.md §3's ErrorEvent, persisted for later querying.
type ErrorEvent struct {
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

const maxErrorMessageLen = 500

// MonthlySummary is the rolled-up record retention folds old games
// into (spec.md §4.9 "Retention").
type MonthlySummary struct {
	Month             string  `json:"month"`
	GamesCount        int     `json:"games_count"`
	TotalPlayers      int     `json:"total_players"`
	AvgPlayersPerGame float64 `json:"avg_players_per_game"`
	TotalRounds       int     `json:"total_rounds"`
	AvgRoundsPerGame  float64 `json:"avg_rounds_per_game"`
	ErrorRate         float64 `json:"error_rate"`
}

type fileData struct {
	Version          int              `json:"version"`
	Games            []GameRecord     `json:"games"`
	Errors           []ErrorEvent     `json:"errors"`
	MonthlySummaries []MonthlySummary `json:"monthly_summaries"`
}

func emptyData() fileData { return fileData{Version: 1} }

// Store is AnalyticsStore: one JSON file, one writer goroutine,
// serialized by a mutex around the in-memory copy.
// LatencyObserver reports persistence save latency to internal/metrics
// without this package importing it directly.
type LatencyObserver interface {
	ObserveSaveLatency(store string, seconds float64)
}

type Store struct {
	path string
	clk  clock.Clock
	log  *zap.Logger
	met  LatencyObserver

	mu              sync.Mutex
	data            fileData
	gamesSincePrune int

	saveCh chan struct{}
	done   chan struct{}
}

// New constructs a Store writing to path. Callers must call Load
// before use and Close on shutdown to drain a pending save.
func New(path string, clk clock.Clock, log *zap.Logger) *Store {
	s := &Store{path: path, clk: clk, log: log, data: emptyData(), saveCh: make(chan struct{}, 1), done: make(chan struct{})}
	go s.saveWorker()
	return s
}

// SetMetrics wires a latency observer; Store works fine without one.
func (s *Store) SetMetrics(m LatencyObserver) { s.met = m }

// Load reads path. A missing file leaves the store empty without
// writing anything; an unreadable or corrupt file leaves it empty and
// is overwritten at once by a synchronous save (spec.md §4.9 "Load on
// boot (corrupt file -> empty, save)").
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.log.Warn("failed to read analytics file, starting fresh", zap.Error(err))
		return s.saveNow()
	}

	var d fileData
	if err := json.Unmarshal(raw, &d); err != nil {
		s.log.Warn("analytics file corrupted, recreating", zap.Error(err))
		return s.saveNow()
	}

	s.mu.Lock()
	s.data = d
	s.mu.Unlock()

	s.pruneIfDue()
	return nil
}

// Close stops the background save worker, flushing one pending save.
func (s *Store) Close() {
	close(s.done)
}

func (s *Store) saveWorker() {
	for {
		select {
		case <-s.saveCh:
			if err := s.saveNow(); err != nil {
				s.log.Error("analytics save failed", zap.Error(err))
			}
		case <-s.done:
			select {
			case <-s.saveCh:
				_ = s.saveNow()
			default:
			}
			return
		}
	}
}

// ScheduleSave returns immediately; the save runs on the background
// worker (spec.md §4.9 "schedule_save() ... returns within 5 ms").
func (s *Store) ScheduleSave() {
	select {
	case s.saveCh <- struct{}{}:
	default:
	}
}

func (s *Store) saveNow() error {
	start := s.clk.Now()
	defer func() {
		if s.met != nil {
			s.met.ObserveSaveLatency("analytics", s.clk.Now().Sub(start).Seconds())
		}
	}()

	s.mu.Lock()
	payload, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// AddGame appends a completed game's record, prunes every
// PruneInterval games, and schedules a save.
func (s *Store) AddGame(rec GameRecord) {
	s.mu.Lock()
	s.data.Games = append(s.data.Games, rec)
	s.gamesSincePrune++
	due := s.gamesSincePrune >= PruneInterval
	if due {
		s.gamesSincePrune = 0
	}
	s.mu.Unlock()

	if due {
		s.pruneIfDue()
	}
	s.ScheduleSave()

	s.log.Info("recorded game analytics",
		zap.String("game_id", rec.GameID), zap.Int("player_count", rec.PlayerCount), zap.Int("rounds_played", rec.RoundsPlayed))
}

// RecordError appends a truncated ErrorEvent and schedules a save
// (spec.md §3 ErrorEvent "message (<=500 chars)").
func (s *Store) RecordError(errType, message string) {
	if len(message) > maxErrorMessageLen {
		message = message[:maxErrorMessageLen]
	}
	s.mu.Lock()
	s.data.Errors = append(s.data.Errors, ErrorEvent{Timestamp: s.clk.Now().Unix(), Type: errType, Message: message})
	s.mu.Unlock()
	s.ScheduleSave()
}

// Games returns a defensive copy of every detailed game record.
func (s *Store) Games() []GameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GameRecord, len(s.data.Games))
	copy(out, s.data.Games)
	return out
}

// Errors returns a defensive copy of every recorded error event.
func (s *Store) Errors() []ErrorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ErrorEvent, len(s.data.Errors))
	copy(out, s.data.Errors)
	return out
}

// MonthlySummaries returns a defensive copy of the monthly rollups.
func (s *Store) MonthlySummaries() []MonthlySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MonthlySummary, len(s.data.MonthlySummaries))
	copy(out, s.data.MonthlySummaries)
	return out
}

// pruneIfDue folds games older than RetentionDays into monthly
// summaries (spec.md §4.9 "Retention"). A no-op when the detailed
// record count is within budget.
func (s *Store) pruneIfDue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data.Games) <= MaxDetailedRecords {
		return
	}

	cutoff := s.clk.Now().Add(-time.Duration(RetentionDays) * 24 * time.Hour).Unix()

	var old, recent []GameRecord
	for _, g := range s.data.Games {
		if g.EndedAt < cutoff {
			old = append(old, g)
		} else {
			recent = append(recent, g)
		}
	}
	if len(old) == 0 {
		return
	}

	groups := make(map[string][]GameRecord)
	var order []string
	for _, g := range old {
		month := time.Unix(g.EndedAt, 0).UTC().Format("2006-01")
		if _, seen := groups[month]; !seen {
			order = append(order, month)
		}
		groups[month] = append(groups[month], g)
	}

	for _, month := range order {
		games := groups[month]
		totalPlayers, totalRounds, totalErrors := 0, 0, 0
		for _, g := range games {
			totalPlayers += g.PlayerCount
			totalRounds += g.RoundsPlayed
			totalErrors += g.ErrorCount
		}

		if idx := findMonth(s.data.MonthlySummaries, month); idx >= 0 {
			sum := &s.data.MonthlySummaries[idx]
			sum.GamesCount += len(games)
			sum.TotalPlayers += totalPlayers
			sum.TotalRounds += totalRounds
			if sum.GamesCount > 0 {
				sum.AvgPlayersPerGame = round2(float64(sum.TotalPlayers) / float64(sum.GamesCount))
				sum.AvgRoundsPerGame = round2(float64(sum.TotalRounds) / float64(sum.GamesCount))
			}
			continue
		}

		s.data.MonthlySummaries = append(s.data.MonthlySummaries, MonthlySummary{
			Month:             month,
			GamesCount:        len(games),
			TotalPlayers:      totalPlayers,
			AvgPlayersPerGame: round2(float64(totalPlayers) / float64(len(games))),
			TotalRounds:       totalRounds,
			AvgRoundsPerGame:  round2(float64(totalRounds) / float64(len(games))),
			ErrorRate:         round2(float64(totalErrors) / float64(len(games))),
		})
	}

	s.data.Games = recent

	keptErrors := s.data.Errors[:0]
	for _, e := range s.data.Errors {
		if e.Timestamp >= cutoff {
			keptErrors = append(keptErrors, e)
		}
	}
	s.data.Errors = keptErrors

	s.log.Info("pruned old analytics", zap.Int("old_games", len(old)), zap.Int("months", len(order)))
}

func findMonth(summaries []MonthlySummary, month string) int {
	for i, s := range summaries {
		if s.Month == month {
			return i
		}
	}
	return -1
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
