package scoring

// Superlative is a single end-of-game fun award (SPEC_FULL.md §3),
// grounded on
// original/game/scoring.py::ScoringService.calculate_superlatives.
type Superlative struct {
	ID         string  `json:"id"`
	Emoji      string  `json:"emoji"`
	Title      string  `json:"title"`
	PlayerName string  `json:"player_name"`
	Value      float64 `json:"value"`
	ValueLabel string  `json:"value_label"`
}

// SuperlativeCandidate is the subset of cumulative PlayerSession fields
// needed to compute awards; internal/game maps PlayerSession -> this.
type SuperlativeCandidate struct {
	Name               string
	AvgSubmissionTime  float64
	HasAvgSubmission   bool
	BestStreak         int
	BetsPlaced         int
	CloseCalls         int
	MovieBonusTotal    int
	IntroSpeedBonuses  int
	RoundScores        []int // submitted-round scores only, in order
	FinalThreeScore    int
}

// CalculateSuperlatives computes up to MaxSuperlatives fun awards.
func CalculateSuperlatives(players []SuperlativeCandidate, roundsPlayed int, movieEnabled, introEnabled bool) []Superlative {
	var awards []Superlative
	if len(players) == 0 {
		return awards
	}

	if best, ok := minBy(players, func(p SuperlativeCandidate) (float64, bool) {
		return p.AvgSubmissionTime, p.HasAvgSubmission
	}); ok {
		awards = append(awards, Superlative{
			ID: "speed_demon", Emoji: "⚡", Title: "speed_demon",
			PlayerName: best.Name, Value: roundTo1(best.AvgSubmissionTime), ValueLabel: "avg_time",
		})
	}

	if best, ok := maxByGate(players, func(p SuperlativeCandidate) float64 { return float64(p.BestStreak) }, float64(MinStreakForAward)); ok {
		awards = append(awards, Superlative{
			ID: "lucky_streak", Emoji: "🔥", Title: "lucky_streak",
			PlayerName: best.Name, Value: float64(best.BestStreak), ValueLabel: "streak",
		})
	}

	if best, ok := maxByGate(players, func(p SuperlativeCandidate) float64 { return float64(p.BetsPlaced) }, float64(MinBetsForAward)); ok {
		awards = append(awards, Superlative{
			ID: "risk_taker", Emoji: "🎲", Title: "risk_taker",
			PlayerName: best.Name, Value: float64(best.BetsPlaced), ValueLabel: "bets",
		})
	}

	if roundsPlayed >= MinRoundsForClutch {
		type clutchCandidate struct {
			name  string
			score int
		}
		var candidates []clutchCandidate
		for _, p := range players {
			if len(p.RoundScores) >= MinRoundsForClutch {
				candidates = append(candidates, clutchCandidate{p.Name, p.FinalThreeScore})
			}
		}
		if len(candidates) > 0 {
			best := candidates[0]
			for _, c := range candidates[1:] {
				if c.score > best.score {
					best = c
				}
			}
			if best.score > 0 {
				awards = append(awards, Superlative{
					ID: "clutch_player", Emoji: "🌟", Title: "clutch_player",
					PlayerName: best.name, Value: float64(best.score), ValueLabel: "points",
				})
			}
		}
	}

	if best, ok := maxByGate(players, func(p SuperlativeCandidate) float64 { return float64(p.CloseCalls) }, float64(MinCloseCallsForAward)); ok {
		awards = append(awards, Superlative{
			ID: "close_calls", Emoji: "🎯", Title: "close_calls",
			PlayerName: best.Name, Value: float64(best.CloseCalls), ValueLabel: "close_guesses",
		})
	}

	if movieEnabled {
		if best, ok := maxByGate(players, func(p SuperlativeCandidate) float64 { return float64(p.MovieBonusTotal) }, float64(MinMovieWinsForAward)); ok {
			awards = append(awards, Superlative{
				ID: "film_buff", Emoji: "🎬", Title: "film_buff",
				PlayerName: best.Name, Value: float64(best.MovieBonusTotal), ValueLabel: "movie_bonus",
			})
		}
	}

	if introEnabled {
		if best, ok := maxByGate(players, func(p SuperlativeCandidate) float64 { return float64(p.IntroSpeedBonuses) }, float64(MinIntroBonusesForAward)); ok {
			awards = append(awards, Superlative{
				ID: "intro_master", Emoji: "🎧", Title: "intro_master",
				PlayerName: best.Name, Value: float64(best.IntroSpeedBonuses), ValueLabel: "intro_bonuses",
			})
		}
	}

	// round_scores only contains rounds the player submitted (missed
	// rounds excluded), so the "halves" split is by submission index,
	// not game round number — mirrors the original's comment.
	if roundsPlayed >= MinRoundsForComeback {
		type comebackCandidate struct {
			name        string
			improvement float64
		}
		var candidates []comebackCandidate
		for _, p := range players {
			if len(p.RoundScores) < MinRoundsForComeback {
				continue
			}
			mid := len(p.RoundScores) / 2
			firstHalf := averageInts(p.RoundScores[:mid])
			secondHalf := averageInts(p.RoundScores[mid:])
			improvement := secondHalf - firstHalf
			if improvement > MinComebackImprovement {
				candidates = append(candidates, comebackCandidate{p.Name, roundTo1(improvement)})
			}
		}
		if len(candidates) > 0 {
			best := candidates[0]
			for _, c := range candidates[1:] {
				if c.improvement > best.improvement {
					best = c
				}
			}
			awards = append(awards, Superlative{
				ID: "comeback_king", Emoji: "👑", Title: "comeback_king",
				PlayerName: best.name, Value: best.improvement, ValueLabel: "improvement",
			})
		}
	}

	if len(awards) > MaxSuperlatives {
		awards = awards[:MaxSuperlatives]
	}
	return awards
}

func minBy(players []SuperlativeCandidate, f func(SuperlativeCandidate) (float64, bool)) (SuperlativeCandidate, bool) {
	var best SuperlativeCandidate
	var bestVal float64
	found := false
	for _, p := range players {
		v, ok := f(p)
		if !ok {
			continue
		}
		if !found || v < bestVal {
			best = p
			bestVal = v
			found = true
		}
	}
	return best, found
}

func maxByGate(players []SuperlativeCandidate, f func(SuperlativeCandidate) float64, minValue float64) (SuperlativeCandidate, bool) {
	var best SuperlativeCandidate
	found := false
	for _, p := range players {
		v := f(p)
		if v < minValue {
			continue
		}
		if !found || v > f(best) {
			best = p
			found = true
		}
	}
	return best, found
}

func averageInts(nums []int) float64 {
	if len(nums) == 0 {
		return 0
	}
	sum := 0
	for _, n := range nums {
		sum += n
	}
	return float64(sum) / float64(len(nums))
}
