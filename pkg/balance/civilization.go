package balance

import "fmt"

// Civilization is a playable faction with an asymmetric strength.
type Civilization struct {
	Name string `json:"name"`
	// WinRate is the source ladder win rate; zero for synthetic profiles.
	WinRate      float64 `json:"win_rate,omitempty"`
	BaseStrength float64 `json:"base_strength"`
	Strength     float64 `json:"strength"`
}

// Registry is the civilization set of one profile together with its current
// spread and the expected random-matchmaking win rate of every civ.
//
// A Registry is not safe for concurrent mutation. Simulations take a Clone at
// start so strengths stay fixed for the length of a run.
type Registry struct {
	profile  string
	defaults Defaults
	civs     []Civilization
	index    map[string]int
	spread   float64
	expected []float64
}

// NewRegistry builds a registry from p with spread 1.0, so every strength
// starts equal to its base strength.
func NewRegistry(p *Profile) *Registry {
	bases := p.baseStrengths()
	r := &Registry{
		profile:  p.Name,
		defaults: p.Defaults,
		civs:     make([]Civilization, len(p.Civilizations)),
		index:    make(map[string]int, len(p.Civilizations)),
		spread:   1,
	}
	for i, e := range p.Civilizations {
		r.civs[i] = Civilization{
			Name:         e.Name,
			WinRate:      e.WinRate,
			BaseStrength: bases[i],
			Strength:     SpreadStrength(bases[i], 1),
		}
		r.index[e.Name] = i
	}
	r.expected = ExpectedRandomWinRates(r.civs)
	return r
}

// LoadRegistry builds the registry of the named catalog profile at spread, or
// at the profile's default spread when spread is 0.
func LoadRegistry(profile string, spread float64) (*Registry, error) {
	p, err := LookupProfile(profile)
	if err != nil {
		return nil, err
	}
	r := NewRegistry(p)
	if spread == 0 {
		spread = p.Defaults.Spread
	}
	if !r.ApplySpread(spread) {
		return nil, fmt.Errorf("invalid strength spread %v", spread)
	}
	return r, nil
}

// Profile returns the name of the profile the registry was built from.
func (r *Registry) Profile() string { return r.profile }

// Defaults returns the run defaults of the registry's profile.
func (r *Registry) Defaults() Defaults { return r.defaults }

// Len returns the number of civilizations.
func (r *Registry) Len() int { return len(r.civs) }

// Spread returns the spread last applied.
func (r *Registry) Spread() float64 { return r.spread }

// At returns the i-th civilization in catalog order.
func (r *Registry) At(i int) Civilization { return r.civs[i] }

// Civilizations returns a copy of every civilization in catalog order.
func (r *Registry) Civilizations() []Civilization {
	out := make([]Civilization, len(r.civs))
	copy(out, r.civs)
	return out
}

// Lookup finds a civilization by name.
func (r *Registry) Lookup(name string) (Civilization, bool) {
	i, ok := r.index[name]
	if !ok {
		return Civilization{}, false
	}
	return r.civs[i], true
}

// ExpectedRandomWinRate returns the strength-only expected win rate of the i-th civ.
func (r *Registry) ExpectedRandomWinRate(i int) float64 { return r.expected[i] }

// ExpectedRandomWinRates returns expected win rates keyed by civilization name.
func (r *Registry) ExpectedRandomWinRates() map[string]float64 {
	out := make(map[string]float64, len(r.civs))
	for i, c := range r.civs {
		out[c.Name] = r.expected[i]
	}
	return out
}

// AverageStrength returns the mean current strength.
func (r *Registry) AverageStrength() float64 {
	if len(r.civs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.civs {
		sum += c.Strength
	}
	return sum / float64(len(r.civs))
}

// ApplySpread rescales every strength around 0.5 and recomputes the expected
// random win rates. Non-finite or negative spreads are ignored and reported false.
func (r *Registry) ApplySpread(spread float64) bool {
	if !isFinite(spread) || spread < 0 {
		return false
	}
	r.spread = spread
	for i := range r.civs {
		r.civs[i].Strength = SpreadStrength(r.civs[i].BaseStrength, spread)
	}
	r.expected = ExpectedRandomWinRates(r.civs)
	return true
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	cp := &Registry{
		profile:  r.profile,
		defaults: r.defaults,
		civs:     r.Civilizations(),
		index:    make(map[string]int, len(r.index)),
		spread:   r.spread,
		expected: make([]float64, len(r.expected)),
	}
	for k, v := range r.index {
		cp.index[k] = v
	}
	copy(cp.expected, r.expected)
	return cp
}

// ExpectedRandomWinRates computes, for each civ C, the mean over every civ D
// (C included, as a mirror match worth 0.5) of C's strength-only win chance.
func ExpectedRandomWinRates(civs []Civilization) []float64 {
	out := make([]float64, len(civs))
	n := float64(len(civs))
	for i, c := range civs {
		var sum float64
		for j, d := range civs {
			if i == j {
				sum += 0.5
				continue
			}
			sum += PairwiseExpectation(c.Strength, d.Strength)
		}
		out[i] = sum / n
	}
	return out
}
