package analytics

import (
	"sort"
	"time"
)

// Period is one of the four windows compute_metrics in
// original_source/analytics.py accepts.
type Period string

const (
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
	PeriodAll Period = "all"
)

var periodDays = map[Period]int{Period7d: 7, Period30d: 30, Period90d: 90, PeriodAll: 3650}

// Trend reports a metric's direction against the immediately
// preceding period of equal length.
type Trend struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
}

// PlaylistStat is one entry of the top-5 "most played playlists" list.
type PlaylistStat struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ChartPoint is one bucket of the games-over-time chart.
type ChartPoint struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ErrorStats summarizes the error log for the dashboard (spec.md §4.9
// "error rate thresholds").
type ErrorStats struct {
	TotalErrors  int          `json:"total_errors"`
	ErrorRate    float64      `json:"error_rate"`
	Status       string       `json:"status"` // healthy | warning | critical
	RecentErrors []ErrorEvent `json:"recent_errors"`
}

// StreakStats and BetStats are simple period-filtered sums.
type StreakStats struct {
	Streak3Count int `json:"streak_3_count"`
	Streak5Count int `json:"streak_5_count"`
	Streak7Count int `json:"streak_7_count"`
}

type BetStats struct {
	TotalBets int     `json:"total_bets"`
	BetsWon   int     `json:"bets_won"`
	WinRate   float64 `json:"win_rate"`
}

// Metrics is the full dashboard payload (spec.md §4.9 "compute_metrics").
type Metrics struct {
	Period            Period         `json:"period"`
	GamesPlayed       int            `json:"games_played"`
	AvgPlayersPerGame float64        `json:"avg_players_per_game"`
	AvgScore          float64        `json:"avg_score"`
	AvgRounds         float64        `json:"avg_rounds"`
	PeakPlayers       int            `json:"peak_players"`
	ErrorRate         float64        `json:"error_rate"`
	Trends            map[string]Trend `json:"trends"`
	Playlists         []PlaylistStat `json:"playlists"`
	ChartData         []ChartPoint   `json:"chart_data"`
	ErrorStats        ErrorStats     `json:"error_stats"`
	StreakStats       StreakStats    `json:"streak_stats"`
	BetStats          BetStats       `json:"bet_stats"`
}

// ComputeMetrics mirrors original_source/analytics.py's compute_metrics:
// current vs. previous equal-length window comparison plus the chart
// and top-playlist breakdowns.
func (s *Store) ComputeMetrics(period Period, now time.Time) Metrics {
	days, ok := periodDays[period]
	if !ok {
		days = periodDays[Period30d]
		period = Period30d
	}

	s.mu.Lock()
	games := make([]GameRecord, len(s.data.Games))
	copy(games, s.data.Games)
	errs := make([]ErrorEvent, len(s.data.Errors))
	copy(errs, s.data.Errors)
	s.mu.Unlock()

	curStart := now.Add(-time.Duration(days) * 24 * time.Hour).Unix()
	prevStart := now.Add(-time.Duration(days*2) * 24 * time.Hour).Unix()

	var current, previous []GameRecord
	for _, g := range games {
		switch {
		case g.EndedAt >= curStart:
			current = append(current, g)
		case g.EndedAt >= prevStart:
			previous = append(previous, g)
		}
	}

	m := Metrics{
		Period:      period,
		GamesPlayed: len(current),
		Trends:      make(map[string]Trend),
	}

	totalPlayers, totalRounds, weightedScore, weightedRounds := 0, 0, 0.0, 0
	peak := 0
	for _, g := range current {
		totalPlayers += g.PlayerCount
		totalRounds += g.RoundsPlayed
		weightedScore += g.AverageScore * float64(g.PlayerCount)
		weightedRounds += g.PlayerCount
		if g.PlayerCount > peak {
			peak = g.PlayerCount
		}
	}
	if len(current) > 0 {
		m.AvgPlayersPerGame = round2(float64(totalPlayers) / float64(len(current)))
		m.AvgRounds = round2(float64(totalRounds) / float64(len(current)))
	}
	if weightedRounds > 0 {
		m.AvgScore = round2(weightedScore / float64(weightedRounds))
	}
	m.PeakPlayers = peak

	curRoundsForError := totalRounds
	curErrors := countInRange(errs, curStart, now.Unix())
	if curRoundsForError > 0 {
		m.ErrorRate = round2(float64(curErrors) / float64(curRoundsForError) * 100)
	}

	prevTotalPlayers, prevRounds := 0, 0
	for _, g := range previous {
		prevTotalPlayers += g.PlayerCount
		prevRounds += g.RoundsPlayed
	}

	m.Trends["games_played"] = calcTrend(float64(len(current)), float64(len(previous)))
	m.Trends["avg_players_per_game"] = calcTrend(m.AvgPlayersPerGame, avgOrZero(prevTotalPlayers, len(previous)))
	m.Trends["avg_rounds"] = calcTrend(m.AvgRounds, avgOrZero(prevRounds, len(previous)))

	m.Playlists = computePlaylistStats(current)
	m.ChartData = computeChartData(games, period, now)
	m.ErrorStats = computeErrorStats(errs, curErrors, curRoundsForError)
	m.StreakStats = computeStreakStats(current)
	m.BetStats = computeBetStats(current)

	return m
}

func avgOrZero(total, n int) float64 {
	if n == 0 {
		return 0
	}
	return round2(float64(total) / float64(n))
}

// calcTrend mirrors analytics.py's calc_trend, including its
// zero-previous special case.
func calcTrend(current, previous float64) Trend {
	var change float64
	if previous == 0 {
		if current > 0 {
			change = 1.0
		} else {
			change = 0.0
		}
	} else {
		change = (current - previous) / previous
	}
	return Trend{Current: current, Previous: previous, Change: round2(change)}
}

func countInRange(errs []ErrorEvent, start, end int64) int {
	n := 0
	for _, e := range errs {
		if e.Timestamp >= start && e.Timestamp <= end {
			n++
		}
	}
	return n
}

// computePlaylistStats returns the top-5 playlists by play count,
// ties broken alphabetically (analytics.py: sort by (-count, name)).
func computePlaylistStats(games []GameRecord) []PlaylistStat {
	counts := make(map[string]int)
	total := 0
	for _, g := range games {
		for _, name := range g.PlaylistNames {
			counts[name]++
			total++
		}
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > 5 {
		names = names[:5]
	}

	out := make([]PlaylistStat, 0, len(names))
	for _, n := range names {
		pct := 0.0
		if total > 0 {
			pct = round2(float64(counts[n]) / float64(total) * 100)
		}
		out = append(out, PlaylistStat{Name: n, Count: counts[n], Percentage: pct})
	}
	return out
}

// computeChartData mirrors analytics.py's compute_games_over_time:
// 7 daily buckets for "7d", 4 (30d) / 13 (90d) Monday-aligned weekly
// buckets, or 12 monthly buckets for "all".
func computeChartData(games []GameRecord, period Period, now time.Time) []ChartPoint {
	switch period {
	case Period7d:
		return dailyBuckets(games, now, 7)
	case Period30d:
		return weeklyBuckets(games, now, 4)
	case Period90d:
		return weeklyBuckets(games, now, 13)
	default:
		return monthlyBuckets(games, now, 12)
	}
}

func dailyBuckets(games []GameRecord, now time.Time, n int) []ChartPoint {
	today := now.UTC().Truncate(24 * time.Hour)
	points := make([]ChartPoint, n)
	dayStart := make([]time.Time, n)
	for i := 0; i < n; i++ {
		d := today.AddDate(0, 0, -(n - 1 - i))
		dayStart[i] = d
		points[i] = ChartPoint{Label: d.Format("Mon"), Count: 0}
	}
	for _, g := range games {
		t := time.Unix(g.EndedAt, 0).UTC().Truncate(24 * time.Hour)
		for i, d := range dayStart {
			if t.Equal(d) {
				points[i].Count++
				break
			}
		}
	}
	return points
}

// mondayOf returns the Monday-aligned start of t's week, matching
// Python's datetime.weekday() (Monday=0) convention used by
// analytics.py's compute_games_over_time.
func mondayOf(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func weeklyBuckets(games []GameRecord, now time.Time, n int) []ChartPoint {
	thisWeek := mondayOf(now)
	weekStart := make([]time.Time, n)
	points := make([]ChartPoint, n)
	for i := 0; i < n; i++ {
		w := thisWeek.AddDate(0, 0, -7*(n-1-i))
		weekStart[i] = w
		points[i] = ChartPoint{Label: w.Format("Jan 2"), Count: 0}
	}
	for _, g := range games {
		w := mondayOf(time.Unix(g.EndedAt, 0))
		for i, ws := range weekStart {
			if w.Equal(ws) {
				points[i].Count++
				break
			}
		}
	}
	return points
}

func monthlyBuckets(games []GameRecord, now time.Time, n int) []ChartPoint {
	thisMonth := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	monthStart := make([]time.Time, n)
	points := make([]ChartPoint, n)
	for i := 0; i < n; i++ {
		m := thisMonth.AddDate(0, -(n - 1 - i), 0)
		monthStart[i] = m
		points[i] = ChartPoint{Label: m.Format("Jan 2006"), Count: 0}
	}
	for _, g := range games {
		t := time.Unix(g.EndedAt, 0).UTC()
		m := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		for i, ms := range monthStart {
			if m.Equal(ms) {
				points[i].Count++
				break
			}
		}
	}
	return points
}

// computeErrorStats mirrors analytics.py's compute_error_stats status
// thresholds: healthy<1%, warning<5%, critical>=5%.
func computeErrorStats(errs []ErrorEvent, curErrors, curRounds int) ErrorStats {
	rate := 0.0
	if curRounds > 0 {
		rate = round2(float64(curErrors) / float64(curRounds) * 100)
	}
	status := "healthy"
	switch {
	case rate >= 5:
		status = "critical"
	case rate >= 1:
		status = "warning"
	}

	recent := make([]ErrorEvent, len(errs))
	copy(recent, errs)
	sort.Slice(recent, func(i, j int) bool { return recent[i].Timestamp > recent[j].Timestamp })
	if len(recent) > 10 {
		recent = recent[:10]
	}

	return ErrorStats{TotalErrors: len(errs), ErrorRate: rate, Status: status, RecentErrors: recent}
}

func computeStreakStats(games []GameRecord) StreakStats {
	var s StreakStats
	for _, g := range games {
		s.Streak3Count += g.Streak3Count
		s.Streak5Count += g.Streak5Count
		s.Streak7Count += g.Streak7Count
	}
	return s
}

func computeBetStats(games []GameRecord) BetStats {
	var b BetStats
	for _, g := range games {
		b.TotalBets += g.TotalBets
		b.BetsWon += g.BetsWon
	}
	if b.TotalBets > 0 {
		b.WinRate = round2(float64(b.BetsWon) / float64(b.TotalBets) * 100)
	}
	return b
}
