package balance

import "math"

// Match resolution weights and bounds.
const (
	RatingWeight   = 0.55
	CivWeight      = 0.30
	SkillWeight    = 0.15
	OutcomeNoise   = 0.012
	MinWinChance   = 0.02
	MaxWinChance   = 0.98
	EloScale       = 400.0
	DefaultKFactor = 24.0
)

// ExpectedScore is the classic logistic Elo expectation of a rated ratingA
// against ratingB.
func ExpectedScore(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/EloScale))
}

// WinChance returns the probability that a (playing civA) beats b (playing civB).
// noise is added before clamping; pass 0 for the expectation itself.
func WinChance(a, b *Player, civA, civB Civilization, mode Mode, noise float64) float64 {
	civExpectation := PairwiseExpectation(civA.Strength, civB.Strength)
	if mode == ModeRandom {
		return clamp(civExpectation, MinWinChance, MaxWinChance)
	}
	ratingExpectation := ExpectedScore(a.Rating, b.Rating)
	skillExpectation := a.Skill / (a.Skill + b.Skill)
	chance := ratingExpectation*RatingWeight +
		civExpectation*CivWeight +
		skillExpectation*SkillWeight +
		noise
	return clamp(chance, MinWinChance, MaxWinChance)
}

// Resolve samples the outcome of one match and reports whether a won. It does
// not touch ratings, skills or statistics.
func Resolve(rng *Rand, a, b *Player, civA, civB Civilization, mode Mode) bool {
	var noise float64
	if mode != ModeRandom {
		noise = rng.Normal(0, OutcomeNoise)
	}
	return rng.Float64() < WinChance(a, b, civA, civB, mode, noise)
}
