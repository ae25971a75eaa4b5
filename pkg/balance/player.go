package balance

import "math"

// Skill and population sampling constants.
const (
	InitialRating     = 1000.0
	InitialRatingSD   = 90.0
	InitialSkill      = 0.5
	InitialSkillSD    = 0.12
	InitialSkillFloor = 0.2
	InitialSkillCeil  = 0.88
	SkillFloor        = 0.12
	SkillCeil         = 0.95
	SkillTrendSD      = 0.01
	MaxSkillTrend     = 0.02
	VolatilityMean    = 0.004
	VolatilitySD      = 0.002
	MinVolatility     = 0.001
	MaxVolatility     = 0.012
)

// Player is one synthetic ladder participant.
type Player struct {
	ID         int     `json:"id"`
	Rating     float64 `json:"rating"`
	Skill      float64 `json:"skill"`
	SkillTrend float64 `json:"skill_trend"`
	Volatility float64 `json:"volatility"`
}

// GeneratePopulation samples count independent players. A non-positive count yields none.
func GeneratePopulation(rng *Rand, count int) []Player {
	if count <= 0 {
		return nil
	}
	players := make([]Player, count)
	for i := range players {
		players[i] = Player{
			ID:         i,
			Rating:     InitialRating + rng.Normal(0, InitialRatingSD),
			Skill:      clamp(rng.Normal(InitialSkill, InitialSkillSD), InitialSkillFloor, InitialSkillCeil),
			SkillTrend: clamp(rng.Normal(0, SkillTrendSD), -MaxSkillTrend, MaxSkillTrend),
			Volatility: clamp(math.Abs(rng.Normal(VolatilityMean, VolatilitySD)), MinVolatility, MaxVolatility),
		}
	}
	return players
}

// MeanRating returns the population-wide average rating.
func MeanRating(players []Player) float64 {
	if len(players) == 0 {
		return 0
	}
	var sum float64
	for _, p := range players {
		sum += p.Rating
	}
	return sum / float64(len(players))
}
