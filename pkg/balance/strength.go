package balance

import "math"

// Defaults for the win-rate calibration: an even 50% win rate is an even 0.5
// strength, and the strongest ladder civ (59.7%) maps to 0.78.
const (
	DefaultBaseWinRate  = 0.5
	DefaultBaseStrength = 0.5
	DefaultPeakWinRate  = 0.597
	DefaultPeakStrength = 0.78

	// minStrength keeps both operands of the pairwise ratio positive when a
	// wide spread would push a weak civ to zero.
	minStrength = 0.001
)

// Calibration linearly maps a raw win rate onto a strength scalar.
type Calibration struct {
	slope     float64
	intercept float64
}

// NewCalibration builds the line through (baseWinRate, baseStrength) and (peakWinRate, peakStrength).
func NewCalibration(baseWinRate, baseStrength, peakWinRate, peakStrength float64) Calibration {
	slope := (peakStrength - baseStrength) / (peakWinRate - baseWinRate)
	return Calibration{
		slope:     slope,
		intercept: baseStrength - slope*baseWinRate,
	}
}

// DefaultCalibration returns the ladder calibration (0.5→0.5, 0.597→0.78).
func DefaultCalibration() Calibration {
	return NewCalibration(DefaultBaseWinRate, DefaultBaseStrength, DefaultPeakWinRate, DefaultPeakStrength)
}

// StrengthOf converts a raw win rate into a strength in [0,1].
func (c Calibration) StrengthOf(rawWinRate float64) float64 {
	return clamp01(c.slope*clamp01(rawWinRate) + c.intercept)
}

// SpreadStrength rescales a base strength around 0.5 by spread.
func SpreadStrength(baseStrength, spread float64) float64 {
	return math.Max(clamp01(0.5+(baseStrength-0.5)*spread), minStrength)
}

// PairwiseExpectation is the probability that a civ of strength a beats one of
// strength b when only civilization strength decides the match.
func PairwiseExpectation(a, b float64) float64 {
	return a / (a + b)
}

// baseStrengths resolves every catalog entry of p to its base strength.
func (p *Profile) baseStrengths() []float64 {
	out := make([]float64, len(p.Civilizations))
	m := p.Mapping
	switch m.Kind {
	case MappingSinusoid:
		n := float64(len(p.Civilizations))
		for i := range p.Civilizations {
			phase := 2 * math.Pi * m.Cycles * float64(i) / n
			out[i] = clamp01(0.5 + m.Amplitude*math.Sin(phase))
		}
	default:
		cal := NewCalibration(m.BaseWinRate, m.BaseStrength, m.PeakWinRate, m.PeakStrength)
		for i, e := range p.Civilizations {
			out[i] = cal.StrengthOf(e.WinRate)
		}
	}
	return out
}
