package balance

import (
	"math"
	"math/rand"
	"time"
)

// Rand is the random source owned by a simulation. Every stochastic engine
// operation draws from it, so a seeded Rand reproduces a run exactly.
type Rand struct {
	r *rand.Rand
}

// NewRand returns a source seeded with seed, or with the wall clock when seed is 0.
func NewRand(seed int64) *Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform draw in [0,1).
func (r *Rand) Float64() float64 {
	return r.r.Float64()
}

// Intn returns a uniform int in [0,n).
func (r *Rand) Intn(n int) int {
	return r.r.Intn(n)
}

// Normal returns a Gaussian draw with the given mean and standard deviation.
func (r *Rand) Normal(mean, stdDev float64) float64 {
	return r.r.NormFloat64()*stdDev + mean
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
