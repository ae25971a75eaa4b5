package balance

import (
	"math"
	"strings"
)

// Mode selects how opponents are paired and how matches are decided.
type Mode string

const (
	// ModeElo pairs players inside a rating window and resolves matches from
	// rating, civilization and skill.
	ModeElo Mode = "elo"
	// ModeRandom pairs uniformly and resolves from civilization strength alone.
	ModeRandom Mode = "random"
)

// DefaultRatingWindow is the widest rating gap preferred by skill-based matchmaking.
const DefaultRatingWindow = 100.0

// ParseMode maps a user-supplied mode onto a Mode, falling back to ModeElo.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeRandom {
		return ModeRandom
	}
	return ModeElo
}

// SelectOpponent picks an opponent index for players[anchor]. Populations of
// one (or an out-of-range anchor) return the anchor itself.
func SelectOpponent(rng *Rand, players []Player, anchor int, mode Mode, window float64) int {
	if len(players) <= 1 || anchor < 0 || anchor >= len(players) {
		return anchor
	}
	if mode == ModeRandom {
		return randomOpponent(rng, len(players), anchor)
	}
	return windowedOpponent(rng, players, anchor, window)
}

func randomOpponent(rng *Rand, n, anchor int) int {
	opp := anchor
	for opp == anchor {
		opp = rng.Intn(n)
	}
	return opp
}

// windowedOpponent draws uniformly from everyone within window rating points,
// or returns the closest-rated player (first on ties) when nobody is.
func windowedOpponent(rng *Rand, players []Player, anchor int, window float64) int {
	rating := players[anchor].Rating
	inWindow := make([]int, 0, 32)
	fallback, fallbackDiff := -1, math.Inf(1)

	for i := range players {
		if i == anchor {
			continue
		}
		diff := math.Abs(players[i].Rating - rating)
		if diff <= window {
			inWindow = append(inWindow, i)
		}
		if diff < fallbackDiff {
			fallback, fallbackDiff = i, diff
		}
	}

	if len(inWindow) > 0 {
		return inWindow[rng.Intn(len(inWindow))]
	}
	if fallback >= 0 {
		return fallback
	}
	// Only reachable when every rating is NaN.
	if anchor == 0 {
		return 1
	}
	return 0
}
