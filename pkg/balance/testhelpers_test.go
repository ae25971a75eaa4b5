package balance

import (
	"math"
	"testing"
)

func rankedRegistry(t *testing.T) *Registry {
	t.Helper()
	p, err := LookupProfile(ProfileRanked)
	if err != nil {
		t.Fatalf("lookup ranked profile: %v", err)
	}
	return NewRegistry(p)
}

func testRegistry(t *testing.T, strengths map[string]float64, order ...string) *Registry {
	t.Helper()
	p := &Profile{
		Name:     "test",
		Defaults: Defaults{Players: 10, Matches: 100, KFactor: 24, Spread: 1},
		Mapping:  StrengthMapping{Kind: MappingWinRate, BaseWinRate: 0.5, BaseStrength: 0.5, PeakWinRate: 1, PeakStrength: 1},
	}
	for _, name := range order {
		// winRate w maps to strength w under the identity calibration above.
		p.Civilizations = append(p.Civilizations, CatalogEntry{Name: name, WinRate: strengths[name]})
	}
	return NewRegistry(p)
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
