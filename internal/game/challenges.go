package game

import (
	"math/rand"
	"strings"
)

// ArtistChallenge tracks the per-round artist-guessing side-game
// (spec.md §3 ArtistChallenge): first correct answer wins.
type ArtistChallenge struct {
	CorrectArtist string
	Decoys        []string
	Guesses       map[string]string // name -> guess
	WinnerName    string
}

// NewArtistChallenge seeds decoys from the song's alt_artists.
func NewArtistChallenge(correctArtist string, decoys []string) *ArtistChallenge {
	return &ArtistChallenge{CorrectArtist: correctArtist, Decoys: decoys, Guesses: make(map[string]string)}
}

// Options returns the correct artist shuffled in among its decoys.
func (c *ArtistChallenge) Options(rng *rand.Rand) []string {
	opts := append([]string{c.CorrectArtist}, c.Decoys...)
	rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	return opts
}

// Submit records name's guess. If it is correct and no winner is set
// yet, name becomes the winner (spec.md §4.8 submit_artist "first
// correct answer wins").
func (c *ArtistChallenge) Submit(name, guess string) bool {
	c.Guesses[name] = guess
	correct := strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(c.CorrectArtist))
	if correct && c.WinnerName == "" {
		c.WinnerName = name
	}
	return correct
}

// MovieChallenge tracks the per-round movie-guessing side-game
// (spec.md §3 MovieChallenge / §4.5 "delegated to the challenge
// object's player_bonus(name)").
type MovieChallenge struct {
	CorrectMovie string
	Choices      []string
	Guesses      map[string]string
	WinnerName   string
	BonusPoints  int
}

// NewMovieChallenge constructs a challenge awarding BonusPoints to the
// first correct guesser.
func NewMovieChallenge(correctMovie string, choices []string, bonusPoints int) *MovieChallenge {
	return &MovieChallenge{CorrectMovie: correctMovie, Choices: choices, Guesses: make(map[string]string), BonusPoints: bonusPoints}
}

// Submit records name's guess, resolving the winner on first correct answer.
func (c *MovieChallenge) Submit(name, guess string) bool {
	c.Guesses[name] = guess
	correct := strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(c.CorrectMovie))
	if correct && c.WinnerName == "" {
		c.WinnerName = name
	}
	return correct
}

// PlayerBonus implements scoring.RoundContext.MovieBonusForPlayer.
func (c *MovieChallenge) PlayerBonus(name string) int {
	if c.WinnerName == name {
		return c.BonusPoints
	}
	return 0
}

// IntroState marks the current round as an intro round: submissions
// within IntroDurationSeconds of StartTime earn a rank-tiered bonus
// (spec.md §4.5 "Intro round bonus").
type IntroState struct {
	StartTime float64 // unix seconds
}
