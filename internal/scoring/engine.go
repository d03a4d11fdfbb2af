// Package scoring implements the pure, I/O-free scoring rules of
// spec.md §4.5, grounded line-for-line on
// original_source/custom_components/beatify/game/scoring.py.
package scoring

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// CalculateAccuracyScore returns the accuracy points for a guess against
// the actual year at the given difficulty (spec.md §4.5 table).
func CalculateAccuracyScore(guess, actual int, difficulty string) int {
	diff := abs(guess - actual)
	if diff == 0 {
		return PointsExact
	}

	d, ok := difficultyTable[difficulty]
	if !ok {
		d = difficultyTable[DifficultyDefault]
	}

	if d.Close.Range > 0 && diff <= d.Close.Range {
		return d.Close.Points
	}
	if d.Near.Range > 0 && diff <= d.Near.Range {
		return d.Near.Points
	}
	return PointsWrong
}

// CalculateSpeedMultiplier implements "2.0 − (elapsed / round_duration)",
// clamped to [1.0, 2.0].
func CalculateSpeedMultiplier(elapsed, roundDuration float64) float64 {
	if roundDuration <= 0 {
		return 1.0
	}
	ratio := elapsed / roundDuration
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return 2.0 - ratio
}

// CalculateRoundScore returns (final, base, speedMultiplier). The final
// score truncates toward zero — spec.md §9 Open Question: "preserve
// truncation", matching the original's `int(base_score * speed)` cast.
func CalculateRoundScore(guess, actual int, elapsed, roundDuration float64, difficulty string) (int, int, float64) {
	base := CalculateAccuracyScore(guess, actual, difficulty)
	speed := CalculateSpeedMultiplier(elapsed, roundDuration)
	final := int(math.Trunc(float64(base) * speed))
	return final, base, speed
}

// BetOutcome values.
const (
	BetWon  = "won"
	BetLost = "lost"
	BetNone = ""
)

// ApplyBetMultiplier implements the double-or-nothing bet rule.
func ApplyBetMultiplier(roundScore int, bet bool) (int, string) {
	if !bet {
		return roundScore, BetNone
	}
	if roundScore > 0 {
		return roundScore * 2, BetWon
	}
	return 0, BetLost
}

// CalculateStreakBonus returns the one-time milestone bonus for an
// exact streak length (0 if not at a milestone).
func CalculateStreakBonus(streak int) int {
	return StreakMilestones[streak]
}

// YearsOffText renders a human-readable difference label.
func YearsOffText(diff int) string {
	switch diff {
	case 0:
		return "Exact!"
	case 1:
		return "1 year off"
	default:
		return strconv.Itoa(diff) + " years off"
	}
}

// ArtistMatch values.
const (
	ArtistMatchExact   = "exact"
	ArtistMatchPartial = "partial"
	ArtistMatchNone    = ""
)

// CalculateArtistScore matches spec.md's artist challenge scoring:
// case-insensitive exact match scores PointsArtistExact, a substring
// match either direction scores PointsArtistPartial, else 0.
func CalculateArtistScore(guess, actual string) (int, string) {
	g := strings.TrimSpace(strings.ToLower(guess))
	if g == "" {
		return 0, ArtistMatchNone
	}
	a := strings.TrimSpace(strings.ToLower(actual))

	if g == a {
		return PointsArtistExact, ArtistMatchExact
	}
	if strings.Contains(a, g) || strings.Contains(g, a) {
		return PointsArtistPartial, ArtistMatchPartial
	}
	return 0, ArtistMatchNone
}

// Submission describes one player's timing input to RoundContext, used
// for intro-round rank bonuses (spec.md §4.5 "Intro round bonus").
type Submission struct {
	Name           string
	Submitted      bool
	SubmissionTime float64 // unix seconds
}

// RoundContext carries everything ScorePlayer needs beyond the single
// player's own fields: the correct answer, timing, difficulty, and the
// independently-resolved side-challenge winners for this round.
type RoundContext struct {
	CorrectYear          int
	RoundStartTime       float64 // unix seconds, 0 if unknown
	RoundDuration        float64
	Difficulty           string
	ArtistWinnerName     string          // "" if no artist challenge or no winner yet
	MovieBonusForPlayer  func(name string) int // nil if no movie challenge
	IsIntroRound         bool
	IntroRoundStart      float64 // unix seconds
	IntroDurationSeconds float64
	AllSubmissions       []Submission // every connected player, for rank computation
}

// PlayerRoundInput is the subset of PlayerSession fields the scoring
// engine needs; internal/game maps PlayerSession <-> this struct so
// this package never imports internal/player.
type PlayerRoundInput struct {
	Name           string
	Submitted      bool
	CurrentGuess   int
	SubmissionTime float64 // unix seconds, valid only if Submitted
	Bet            bool
	Streak         int
}

// PlayerRoundResult is everything internal/game writes back onto the
// PlayerSession after a round, plus the ScoreDelta to add to the
// player's cumulative score.
type PlayerRoundResult struct {
	RoundScore       int
	BaseScore        int
	SpeedMultiplier  float64
	YearsOff         int
	HasYearsOff      bool
	MissedRound      bool
	BetOutcome       string
	StreakBonus      int
	NewStreak        int
	PreviousStreak   int
	CrossedStreak3   bool
	CrossedStreak5   bool
	CrossedStreak7   bool
	ArtistBonus      int
	MovieBonus       int
	IntroBonus       int
	ScoreDelta       int
	BetPlaced        bool
	BetWon           bool
	CloseCall        bool // years_off == 1
}

// ScorePlayer scores a single player for the current round, mirroring
// original/game/scoring.py::ScoringService.score_player_round.
func ScorePlayer(in PlayerRoundInput, ctx RoundContext) PlayerRoundResult {
	var res PlayerRoundResult

	artistBonus := 0
	if ctx.ArtistWinnerName != "" && ctx.ArtistWinnerName == in.Name {
		artistBonus = ArtistBonusPoints
	}

	movieBonus := 0
	if ctx.MovieBonusForPlayer != nil {
		movieBonus = ctx.MovieBonusForPlayer(in.Name)
	}

	if !in.Submitted {
		res.PreviousStreak = in.Streak
		res.MissedRound = true
		res.NewStreak = 0
		res.BetOutcome = BetNone
		res.SpeedMultiplier = 1.0
		res.ArtistBonus = artistBonus
		res.MovieBonus = movieBonus
		res.ScoreDelta = artistBonus + movieBonus
		return res
	}

	elapsed := ctx.RoundDuration
	if ctx.RoundStartTime > 0 {
		elapsed = in.SubmissionTime - ctx.RoundStartTime
	}

	speedScore, base, speed := CalculateRoundScore(in.CurrentGuess, ctx.CorrectYear, elapsed, ctx.RoundDuration, ctx.Difficulty)
	yearsOff := abs(in.CurrentGuess - ctx.CorrectYear)

	roundScore, betOutcome := ApplyBetMultiplier(speedScore, in.Bet)

	res.BaseScore = base
	res.SpeedMultiplier = speed
	res.YearsOff = yearsOff
	res.HasYearsOff = true
	res.RoundScore = roundScore
	res.BetOutcome = betOutcome
	res.BetPlaced = in.Bet
	res.BetWon = betOutcome == BetWon
	res.CloseCall = yearsOff == 1

	if speedScore > 0 {
		res.PreviousStreak = 0
		res.NewStreak = in.Streak + 1
		res.StreakBonus = CalculateStreakBonus(res.NewStreak)
		switch res.NewStreak {
		case 3:
			res.CrossedStreak3 = true
		case 5:
			res.CrossedStreak5 = true
		case 7:
			res.CrossedStreak7 = true
		}
	} else {
		res.PreviousStreak = in.Streak
		res.NewStreak = 0
	}

	res.ArtistBonus = artistBonus
	res.MovieBonus = movieBonus

	if ctx.IsIntroRound && ctx.IntroRoundStart > 0 {
		cutoff := ctx.IntroRoundStart + ctx.IntroDurationSeconds
		if in.SubmissionTime > 0 && in.SubmissionTime < cutoff {
			rank := 0
			for _, s := range ctx.AllSubmissions {
				if s.Name == in.Name {
					continue
				}
				if s.Submitted && s.SubmissionTime > 0 && s.SubmissionTime < cutoff && s.SubmissionTime < in.SubmissionTime {
					rank++
				}
			}
			if rank < len(IntroBonusTiers) {
				res.IntroBonus = IntroBonusTiers[rank]
			}
		}
	}

	res.ScoreDelta = res.RoundScore + res.StreakBonus + res.ArtistBonus + res.MovieBonus + res.IntroBonus
	return res
}

// DecadeLabel renders e.g. 1985 -> "1980s".
func DecadeLabel(year int) string {
	decade := (year / 10) * 10
	return strconv.Itoa(decade) + "s"
}

// GuessSummary is one player's contribution to RoundAnalytics.
type GuessSummary struct {
	Name     string
	Guess    int
	YearsOff int
}

// SpeedChampion names the fastest submitter(s) in a round.
type SpeedChampion struct {
	Names []string
	Time  float64
}

// RoundAnalytics is the computed `analytics` wire field (spec.md §4.7
// step 4 / §6.3), grounded on
// original/game/scoring.py::ScoringService.calculate_round_analytics.
type RoundAnalytics struct {
	AllGuesses         []GuessSummary
	AverageGuess       float64
	MedianGuess        int
	ClosestPlayers     []string
	FurthestPlayers    []string
	ExactMatchPlayers  []string
	ExactMatchCount    int
	ScoredCount        int
	TotalSubmitted     int
	AccuracyPercentage int
	SpeedChampion      *SpeedChampion
	DecadeDistribution map[string]int
	CorrectDecade      string
}

// SubmittedPlayer is the input RoundAnalytics needs per player.
type SubmittedPlayer struct {
	Name           string
	Submitted      bool
	CurrentGuess   int
	SubmissionTime float64
	YearsOff       int
	RoundScore     int
}

// CalculateRoundAnalytics computes the full round breakdown.
func CalculateRoundAnalytics(players []SubmittedPlayer, correctYear int, roundStartTime float64) RoundAnalytics {
	analytics := RoundAnalytics{CorrectDecade: DecadeLabel(correctYear)}

	var submitted []SubmittedPlayer
	for _, p := range players {
		if p.Submitted {
			submitted = append(submitted, p)
		}
	}
	if len(submitted) == 0 {
		return analytics
	}

	all := make([]GuessSummary, 0, len(submitted))
	for _, p := range submitted {
		all = append(all, GuessSummary{Name: p.Name, Guess: p.CurrentGuess, YearsOff: p.YearsOff})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].YearsOff < all[j].YearsOff })
	analytics.AllGuesses = all

	var sum int
	guesses := make([]int, 0, len(submitted))
	for _, p := range submitted {
		sum += p.CurrentGuess
		guesses = append(guesses, p.CurrentGuess)
	}
	analytics.AverageGuess = float64(sum) / float64(len(submitted))
	analytics.MedianGuess = median(guesses)

	minOff, maxOff := submitted[0].YearsOff, submitted[0].YearsOff
	for _, p := range submitted {
		if p.YearsOff < minOff {
			minOff = p.YearsOff
		}
		if p.YearsOff > maxOff {
			maxOff = p.YearsOff
		}
	}
	for _, p := range submitted {
		if p.YearsOff == minOff {
			analytics.ClosestPlayers = append(analytics.ClosestPlayers, p.Name)
		}
		if p.YearsOff == maxOff {
			analytics.FurthestPlayers = append(analytics.FurthestPlayers, p.Name)
		}
		if p.YearsOff == 0 {
			analytics.ExactMatchPlayers = append(analytics.ExactMatchPlayers, p.Name)
		}
		if p.RoundScore > 0 {
			analytics.ScoredCount++
		}
	}
	analytics.ExactMatchCount = len(analytics.ExactMatchPlayers)
	analytics.TotalSubmitted = len(submitted)
	analytics.AccuracyPercentage = int((float64(analytics.ScoredCount) / float64(len(submitted))) * 100)

	if roundStartTime > 0 {
		var fastest float64 = -1
		for _, p := range submitted {
			if p.SubmissionTime <= 0 {
				continue
			}
			elapsed := p.SubmissionTime - roundStartTime
			if fastest < 0 || elapsed < fastest {
				fastest = elapsed
			}
		}
		if fastest >= 0 {
			champ := &SpeedChampion{Time: roundTo1(fastest)}
			for _, p := range submitted {
				if p.SubmissionTime <= 0 {
					continue
				}
				if p.SubmissionTime-roundStartTime == fastest {
					champ.Names = append(champ.Names, p.Name)
				}
			}
			analytics.SpeedChampion = champ
		}
	}

	decadeDist := make(map[string]int)
	for _, g := range guesses {
		decadeDist[DecadeLabel(g)]++
	}
	analytics.DecadeDistribution = decadeDist

	return analytics
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func median(nums []int) int {
	if len(nums) == 0 {
		return 0
	}
	sorted := append([]int(nil), nums...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func roundTo1(f float64) float64 {
	return math.Round(f*10) / 10
}
