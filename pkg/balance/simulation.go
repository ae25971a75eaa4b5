// Package balance simulates a ladder of players picking asymmetric
// civilizations and measures how Elo matchmaking pulls observed civilization
// win rates back toward their strength baselines.
package balance

import (
	"context"
	"fmt"
)

// DefaultProgressEvery is how many matches run between progress callbacks when
// the caller does not choose.
const DefaultProgressEvery = 18

// Config parameterises one simulation run.
type Config struct {
	PlayerCount   int     `json:"player_count"`
	MatchCount    int     `json:"match_count"`
	KFactor       float64 `json:"k_factor"`
	Mode          Mode    `json:"mode"`
	ProgressEvery int     `json:"progress_every"`
	RatingWindow  float64 `json:"rating_window"`
	Seed          int64   `json:"seed"` // 0 = random
}

// Normalize substitutes d's values (or package defaults) for anything missing
// or invalid. It never fails.
func (c Config) Normalize(d Defaults) Config {
	if c.PlayerCount <= 0 {
		c.PlayerCount = d.Players
	}
	if c.MatchCount <= 0 {
		c.MatchCount = d.Matches
	}
	if !isFinite(c.KFactor) || c.KFactor <= 0 {
		c.KFactor = d.KFactor
		if c.KFactor <= 0 {
			c.KFactor = DefaultKFactor
		}
	}
	if c.Mode != ModeRandom {
		c.Mode = ModeElo
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
	if !isFinite(c.RatingWindow) || c.RatingWindow <= 0 {
		c.RatingWindow = DefaultRatingWindow
	}
	return c
}

// MatchResult describes one resolved match.
type MatchResult struct {
	PlayerA int
	PlayerB int
	CivA    string
	CivB    string
	AWon    bool
}

// CivProgress is the live view of one civilization.
type CivProgress struct {
	Name                  string   `json:"name"`
	Strength              float64  `json:"strength"`
	ExpectedRandomWinRate float64  `json:"expected_random_win_rate"`
	ObservedWinRate       *float64 `json:"observed_win_rate"` // nil = no data
	SampleDiff            *float64 `json:"sample_diff"`
	Games                 int      `json:"games"`
	Wins                  int      `json:"wins"`
}

// Progress is a snapshot of a simulation between batches.
type Progress struct {
	MatchesCompleted int           `json:"matches_completed"`
	TotalMatches     int           `json:"total_matches"`
	Players          int           `json:"players"`
	Mode             Mode          `json:"mode"`
	AverageStrength  float64       `json:"average_strength"`
	MeanRating       float64       `json:"mean_rating"`
	Done             bool          `json:"done"`
	Civilizations    []CivProgress `json:"civilizations"`
}

// Ratio returns the completed fraction in [0,1].
func (p Progress) Ratio() float64 {
	if p.TotalMatches == 0 {
		return 0
	}
	return min(float64(p.MatchesCompleted)/float64(p.TotalMatches), 1)
}

// ProgressFunc receives a snapshot every batch. Returning an error aborts the run.
type ProgressFunc func(Progress) error

// Simulation owns all state of a single run: its civilization snapshot,
// population, statistics and random source. It is used from one goroutine.
type Simulation struct {
	cfg      Config
	rng      *Rand
	registry *Registry
	players  []Player
	stats    *StatsTable
	matches  int
}

// New prepares a run over a private copy of reg. cfg is normalised against the
// registry's profile defaults and a fresh population is generated.
func New(reg *Registry, cfg Config) *Simulation {
	cfg = cfg.Normalize(reg.Defaults())
	rng := NewRand(cfg.Seed)
	snapshot := reg.Clone()
	return &Simulation{
		cfg:      cfg,
		rng:      rng,
		registry: snapshot,
		players:  GeneratePopulation(rng, cfg.PlayerCount),
		stats:    NewStatsTable(snapshot),
	}
}

// Config returns the normalised configuration.
func (s *Simulation) Config() Config { return s.cfg }

// Registry returns the civilization snapshot the run uses.
func (s *Simulation) Registry() *Registry { return s.registry }

// Stats returns the live statistics table.
func (s *Simulation) Stats() *StatsTable { return s.stats }

// Matches returns the number of matches resolved so far.
func (s *Simulation) Matches() int { return s.matches }

// Done reports whether every scheduled match has been played.
func (s *Simulation) Done() bool { return s.matches >= s.cfg.MatchCount }

// Players returns a copy of the population.
func (s *Simulation) Players() []Player {
	out := make([]Player, len(s.players))
	copy(out, s.players)
	return out
}

// Step plays one match: draw an anchor, find an opponent, assign both civs
// uniformly, resolve, then update ratings, skills and statistics.
func (s *Simulation) Step() MatchResult {
	ai := s.rng.Intn(len(s.players))
	bi := SelectOpponent(s.rng, s.players, ai, s.cfg.Mode, s.cfg.RatingWindow)
	a, b := &s.players[ai], &s.players[bi]
	civA := s.registry.At(s.rng.Intn(s.registry.Len()))
	civB := s.registry.At(s.rng.Intn(s.registry.Len()))

	aWon := Resolve(s.rng, a, b, civA, civB, s.cfg.Mode)

	s.stats.Record(civA.Name, aWon)
	s.stats.Record(civB.Name, !aWon)

	// Random mode isolates civilization imbalance, so players never change.
	if s.cfg.Mode != ModeRandom {
		ApplyElo(a, b, aWon, s.cfg.KFactor)
		DriftSkill(s.rng, a)
		DriftSkill(s.rng, b)
	}

	s.matches++
	return MatchResult{PlayerA: ai, PlayerB: bi, CivA: civA.Name, CivB: civB.Name, AWon: aWon}
}

// Run plays the remaining matches. Every ProgressEvery matches, and once at the
// end, it hands a snapshot to hook (which may be nil) and checks ctx; a
// cancelled ctx stops the run at that batch boundary with ctx.Err().
func (s *Simulation) Run(ctx context.Context, hook ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for !s.Done() {
		s.Step()
		if s.matches%s.cfg.ProgressEvery != 0 || s.Done() {
			continue
		}
		if hook != nil {
			if err := hook(s.Progress()); err != nil {
				return fmt.Errorf("progress hook at match %d: %w", s.matches, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if hook != nil {
		if err := hook(s.Progress()); err != nil {
			return fmt.Errorf("progress hook at match %d: %w", s.matches, err)
		}
	}
	return nil
}

// Progress snapshots the run.
func (s *Simulation) Progress() Progress {
	p := Progress{
		MatchesCompleted: s.matches,
		TotalMatches:     s.cfg.MatchCount,
		Players:          len(s.players),
		Mode:             s.cfg.Mode,
		AverageStrength:  s.registry.AverageStrength(),
		MeanRating:       MeanRating(s.players),
		Done:             s.Done(),
		Civilizations:    make([]CivProgress, s.registry.Len()),
	}
	for i := range p.Civilizations {
		p.Civilizations[i] = CivRow(s.registry, s.stats, i)
	}
	return p
}

// Insights analyses the run's statistics.
func (s *Simulation) Insights() InsightReport {
	return Analyze(s.registry, s.stats, s.cfg.MatchCount)
}

// CivRow builds the live view of the i-th civ in reg from t.
func CivRow(reg *Registry, t *StatsTable, i int) CivProgress {
	civ := reg.At(i)
	row := CivProgress{
		Name:                  civ.Name,
		Strength:              civ.Strength,
		ExpectedRandomWinRate: reg.ExpectedRandomWinRate(i),
	}
	st, ok := t.Get(civ.Name)
	if !ok || st.Games == 0 {
		return row
	}
	rate := st.WinRate
	diff := rate - row.ExpectedRandomWinRate
	row.ObservedWinRate = &rate
	row.SampleDiff = &diff
	row.Games = st.Games
	row.Wins = st.Wins
	return row
}
