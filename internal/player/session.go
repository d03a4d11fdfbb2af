// Package player models a connected game participant and the
// registry that admits, tracks, and reconnects them, grounded on
// original_source/custom_components/beatify/game/player.py.
package player

import (
	"time"

	"github.com/google/uuid"

	"beatify/internal/scoring"
)

// BetOutcome mirrors scoring.BetWon/BetLost/BetNone (spec.md §3).
type BetOutcome = string

// Session is one connected (or gracefully-disconnected) participant,
// matching spec.md §3's PlayerSession field set.
type Session struct {
	// Identity
	Name       string
	SessionID  string
	IsAdmin    bool
	Connected  bool
	JoinedAt   time.Time
	JoinedLate bool

	// Totals — never reset mid-game (spec.md §3 invariant).
	Score             int
	Streak            int
	BestStreak        int
	RoundsPlayed      int
	BetsPlaced        int
	BetsWon           int
	CloseCalls        int
	MovieBonusTotal   int
	IntroSpeedBonuses int
	RoundScores       []int
	SubmissionTimes   []float64

	// Round-local, reset every round.
	Submitted       bool
	CurrentGuess    int
	SubmissionTime  float64
	Bet             bool
	HasArtistGuess  bool
	RoundScore      int
	BaseScore       int
	SpeedMultiplier float64
	YearsOff        int
	HasYearsOff     bool
	StreakBonus     int
	ArtistBonus     int
	MovieBonus      int
	IntroBonus      int
	MissedRound     bool
	BetOutcome      BetOutcome
	PreviousStreak  int
}

// New constructs a freshly-joined Session.
func New(name string, isAdmin bool, joinedLate bool) *Session {
	return &Session{
		Name:       name,
		SessionID:  uuid.NewString(),
		IsAdmin:    isAdmin,
		Connected:  true,
		JoinedAt:   time.Now(),
		JoinedLate: joinedLate,
		BetOutcome: scoring.BetNone,
	}
}

// ResetRound clears every round-local field ahead of a new round
// (spec.md §4.7 step 1).
func (s *Session) ResetRound() {
	s.Submitted = false
	s.CurrentGuess = 0
	s.SubmissionTime = 0
	s.Bet = false
	s.HasArtistGuess = false
	s.RoundScore = 0
	s.BaseScore = 0
	s.SpeedMultiplier = 0
	s.YearsOff = 0
	s.HasYearsOff = false
	s.StreakBonus = 0
	s.ArtistBonus = 0
	s.MovieBonus = 0
	s.IntroBonus = 0
	s.MissedRound = false
	s.BetOutcome = scoring.BetNone
	s.PreviousStreak = 0
}

// ToRoundInput maps the session's submission-relevant fields into the
// scoring package's decoupled input shape (internal/scoring has no
// dependency on internal/player to avoid an import cycle).
func (s *Session) ToRoundInput() scoring.PlayerRoundInput {
	return scoring.PlayerRoundInput{
		Name:           s.Name,
		Submitted:      s.Submitted,
		CurrentGuess:   s.CurrentGuess,
		SubmissionTime: s.SubmissionTime,
		Bet:            s.Bet,
		Streak:         s.Streak,
	}
}

// ApplyRoundResult folds a scoring.PlayerRoundResult back into the
// session's round-local and cumulative fields (spec.md §4.5).
func (s *Session) ApplyRoundResult(r scoring.PlayerRoundResult) {
	s.RoundScore = r.RoundScore
	s.BaseScore = r.BaseScore
	s.SpeedMultiplier = r.SpeedMultiplier
	s.YearsOff = r.YearsOff
	s.HasYearsOff = r.HasYearsOff
	s.MissedRound = r.MissedRound
	s.BetOutcome = r.BetOutcome
	s.StreakBonus = r.StreakBonus
	s.ArtistBonus = r.ArtistBonus
	s.MovieBonus = r.MovieBonus
	s.IntroBonus = r.IntroBonus
	s.PreviousStreak = r.PreviousStreak

	s.Streak = r.NewStreak
	if s.Streak > s.BestStreak {
		s.BestStreak = s.Streak
	}

	s.Score += r.ScoreDelta
	s.RoundsPlayed++

	if !r.MissedRound {
		s.RoundScores = append(s.RoundScores, r.RoundScore)
		s.SubmissionTimes = append(s.SubmissionTimes, s.SubmissionTime)
	}
	if r.BetPlaced {
		s.BetsPlaced++
		if r.BetWon {
			s.BetsWon++
		}
	}
	if r.CloseCall {
		s.CloseCalls++
	}
	if r.MovieBonus > 0 {
		s.MovieBonusTotal += r.MovieBonus
	}
	if r.IntroBonus > 0 {
		s.IntroSpeedBonuses++
	}
}

// AvgSubmissionTime returns the mean of SubmissionTimes and whether
// any submissions exist, for scoring.SuperlativeCandidate.
func (s *Session) AvgSubmissionTime() (float64, bool) {
	if len(s.SubmissionTimes) == 0 {
		return 0, false
	}
	var sum float64
	for _, t := range s.SubmissionTimes {
		sum += t
	}
	return sum / float64(len(s.SubmissionTimes)), true
}

// ToSuperlativeCandidate maps cumulative fields into the scoring
// package's award-computation input.
func (s *Session) ToSuperlativeCandidate(finalThreeScore int) scoring.SuperlativeCandidate {
	avg, has := s.AvgSubmissionTime()
	return scoring.SuperlativeCandidate{
		Name:              s.Name,
		AvgSubmissionTime: avg,
		HasAvgSubmission:  has,
		BestStreak:        s.BestStreak,
		BetsPlaced:        s.BetsPlaced,
		CloseCalls:        s.CloseCalls,
		MovieBonusTotal:   s.MovieBonusTotal,
		IntroSpeedBonuses: s.IntroSpeedBonuses,
		RoundScores:       s.RoundScores,
		FinalThreeScore:   finalThreeScore,
	}
}
