package model

import (
	"math"
	"time"

	"github.com/freeeve/civ-balance/api/pkg/balance"
)

// Run statuses.
const (
	RunIdle      = "idle"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunCancelled = "cancelled"
	RunFailed    = "failed"
)

// Run is a finished (or aborted) simulation as archived and returned by the API.
type Run struct {
	ID               string                 `json:"id"`
	Profile          string                 `json:"profile"`
	Mode             string                 `json:"mode"`
	Status           string                 `json:"status"`
	Error            string                 `json:"error,omitempty"`
	PlayerCount      int                    `json:"player_count"`
	MatchCount       int                    `json:"match_count"`
	MatchesCompleted int                    `json:"matches_completed"`
	KFactor          float64                `json:"k_factor"`
	Spread           float64                `json:"spread"`
	Seed             int64                  `json:"seed,omitempty"`
	MeanRating       float64                `json:"mean_rating"`
	AverageStrength  float64                `json:"average_strength"`
	Insights         *balance.InsightReport `json:"insights,omitempty"`
	Civilizations    []CivResult            `json:"civilizations,omitempty"`
	StartedAt        time.Time              `json:"started_at"`
	FinishedAt       time.Time              `json:"finished_at"`
}

// CivResult is one civilization's final tally in a run.
type CivResult struct {
	Name                  string   `json:"name"`
	Strength              float64  `json:"strength"`
	ExpectedRandomWinRate float64  `json:"expected_random_win_rate"`
	Wins                  int      `json:"wins"`
	Games                 int      `json:"games"`
	WinRate               *float64 `json:"win_rate"`
}

// Civilization is the catalog view of a civ at the current spread.
type Civilization struct {
	Name                  string  `json:"name"`
	WinRate               float64 `json:"win_rate,omitempty"`
	BaseStrength          float64 `json:"base_strength"`
	Strength              float64 `json:"strength"`
	ExpectedRandomWinRate float64 `json:"expected_random_win_rate"`
}

// CivilizationList is the response body of the civilization endpoint.
type CivilizationList struct {
	Profile         string         `json:"profile"`
	Spread          float64        `json:"spread"`
	AverageStrength float64        `json:"average_strength"`
	Civilizations   []Civilization `json:"civilizations"`
}

// Snapshot is the live state of the simulation driver.
type Snapshot struct {
	RunID     string            `json:"run_id,omitempty"`
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Running   bool              `json:"running"`
	Profile   string            `json:"profile"`
	Spread    float64           `json:"spread"`
	Speed     string            `json:"speed,omitempty"`
	Progress  *balance.Progress `json:"progress,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// RoundProgress returns a copy of p with strengths rounded to 3 places and
// rates to 4, for display.
func RoundProgress(p balance.Progress) balance.Progress {
	out := p
	out.AverageStrength = RoundTo(p.AverageStrength, 3)
	out.MeanRating = RoundTo(p.MeanRating, 2)
	out.Civilizations = make([]balance.CivProgress, len(p.Civilizations))
	for i, c := range p.Civilizations {
		c.Strength = RoundTo(c.Strength, 3)
		c.ExpectedRandomWinRate = RoundTo(c.ExpectedRandomWinRate, 4)
		if c.ObservedWinRate != nil {
			v := RoundTo(*c.ObservedWinRate, 4)
			c.ObservedWinRate = &v
		}
		if c.SampleDiff != nil {
			v := RoundTo(*c.SampleDiff, 4)
			c.SampleDiff = &v
		}
		out.Civilizations[i] = c
	}
	return out
}

// CivilizationsFrom renders reg for the API.
func CivilizationsFrom(reg *balance.Registry) CivilizationList {
	list := CivilizationList{
		Profile:         reg.Profile(),
		Spread:          reg.Spread(),
		AverageStrength: RoundTo(reg.AverageStrength(), 3),
		Civilizations:   make([]Civilization, reg.Len()),
	}
	for i := 0; i < reg.Len(); i++ {
		c := reg.At(i)
		list.Civilizations[i] = Civilization{
			Name:                  c.Name,
			WinRate:               c.WinRate,
			BaseStrength:          RoundTo(c.BaseStrength, 3),
			Strength:              RoundTo(c.Strength, 3),
			ExpectedRandomWinRate: RoundTo(reg.ExpectedRandomWinRate(i), 4),
		}
	}
	return list
}

// CivResultsFrom converts final progress rows into archive rows.
func CivResultsFrom(p balance.Progress) []CivResult {
	out := make([]CivResult, len(p.Civilizations))
	for i, c := range p.Civilizations {
		out[i] = CivResult{
			Name:                  c.Name,
			Strength:              c.Strength,
			ExpectedRandomWinRate: c.ExpectedRandomWinRate,
			Wins:                  c.Wins,
			Games:                 c.Games,
			WinRate:               c.ObservedWinRate,
		}
	}
	return out
}
