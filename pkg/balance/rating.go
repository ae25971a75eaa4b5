package balance

// ApplyElo moves both ratings by the same amount in opposite directions and
// returns a's change. expectedB is 1-expectedA, so the update is zero-sum.
func ApplyElo(a, b *Player, aWon bool, kFactor float64) float64 {
	var actual float64
	if aWon {
		actual = 1
	}
	delta := kFactor * (actual - ExpectedScore(a.Rating, b.Rating))
	a.Rating += delta
	b.Rating -= delta
	return delta
}

// DriftSkill nudges p's skill by its trend plus Gaussian noise scaled by its
// volatility, independent of any match result.
func DriftSkill(rng *Rand, p *Player) {
	drift := p.SkillTrend + rng.Normal(0, p.Volatility)
	p.Skill = clamp(p.Skill+drift, SkillFloor, SkillCeil)
}
