package balance

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"elo", ModeElo},
		{"random", ModeRandom},
		{" RANDOM ", ModeRandom},
		{"", ModeElo},
		{"skill", ModeElo},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.in); got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSelectOpponentNeverAnchor(t *testing.T) {
	rng := NewRand(7)
	for _, mode := range []Mode{ModeElo, ModeRandom} {
		for _, n := range []int{2, 3, 50} {
			players := GeneratePopulation(rng, n)
			for i := 0; i < 500; i++ {
				anchor := rng.Intn(n)
				opp := SelectOpponent(rng, players, anchor, mode, DefaultRatingWindow)
				if opp == anchor {
					t.Fatalf("mode %s n=%d: opponent equals anchor %d", mode, n, anchor)
				}
				if opp < 0 || opp >= n {
					t.Fatalf("mode %s n=%d: opponent %d out of range", mode, n, opp)
				}
			}
		}
	}
}

func TestSelectOpponentSinglePlayer(t *testing.T) {
	rng := NewRand(1)
	players := GeneratePopulation(rng, 1)
	for _, mode := range []Mode{ModeElo, ModeRandom} {
		if got := SelectOpponent(rng, players, 0, mode, DefaultRatingWindow); got != 0 {
			t.Errorf("mode %s: got %d, want anchor 0", mode, got)
		}
	}
}

func TestSelectOpponentWithinWindow(t *testing.T) {
	rng := NewRand(3)
	players := []Player{
		{ID: 0, Rating: 1000},
		{ID: 1, Rating: 1050},
		{ID: 2, Rating: 1100},
		{ID: 3, Rating: 1101},
		{ID: 4, Rating: 2000},
	}
	seen := map[int]int{}
	for i := 0; i < 2000; i++ {
		seen[SelectOpponent(rng, players, 0, ModeElo, 100)]++
	}
	if seen[3] != 0 || seen[4] != 0 {
		t.Errorf("picked players outside the window: %v", seen)
	}
	if seen[1] == 0 || seen[2] == 0 {
		t.Errorf("expected both in-window players to be picked: %v", seen)
	}
}

func TestSelectOpponentFallsBackToClosest(t *testing.T) {
	rng := NewRand(3)
	players := []Player{
		{ID: 0, Rating: 1000},
		{ID: 1, Rating: 1500},
		{ID: 2, Rating: 700},
		{ID: 3, Rating: 1300},
		{ID: 4, Rating: 700},
	}
	// 2 and 4 tie at 300 with 3; the first encountered wins.
	if got := SelectOpponent(rng, players, 0, ModeElo, 100); got != 2 {
		t.Errorf("expected closest player 2, got %d", got)
	}
	if got := SelectOpponent(rng, players, 1, ModeElo, 100); got != 3 {
		t.Errorf("expected closest player 3, got %d", got)
	}
}

func TestSelectOpponentRandomIsUniform(t *testing.T) {
	rng := NewRand(11)
	players := make([]Player, 5)
	counts := make([]int, len(players))
	const draws = 40000
	for i := 0; i < draws; i++ {
		counts[SelectOpponent(rng, players, 2, ModeRandom, DefaultRatingWindow)]++
	}
	if counts[2] != 0 {
		t.Fatalf("anchor selected %d times", counts[2])
	}
	for i, c := range counts {
		if i == 2 {
			continue
		}
		if share := float64(c) / draws; !approxEqual(share, 0.25, 0.02) {
			t.Errorf("player %d share %.3f, want ~0.25", i, share)
		}
	}
}
