package balance

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var countPrinter = message.NewPrinter(language.English)

// Insight thresholds.
const (
	MinInsightGames       = 30
	InsightSampleFraction = 0.003
	DivergenceThreshold   = 0.02
	MaxInsightEntries     = 3
)

// InsightStatus classifies an insight report.
type InsightStatus string

const (
	InsightInsufficientData InsightStatus = "insufficient_data"
	InsightBalanced         InsightStatus = "balanced"
	InsightOutliers         InsightStatus = "outliers"
)

// InsightEntry is one civilization whose observed win rate strayed from its strength.
type InsightEntry struct {
	Name                  string  `json:"name"`
	Strength              float64 `json:"strength"`
	ObservedWinRate       float64 `json:"observed_win_rate"`
	ExpectedRandomWinRate float64 `json:"expected_random_win_rate"`
	Diff                  float64 `json:"diff"`
	Games                 int     `json:"games"`
}

// InsightReport summarises balance outliers after a run.
type InsightReport struct {
	Status          InsightStatus  `json:"status"`
	TotalMatches    int            `json:"total_matches"`
	MinGames        int            `json:"min_games"`
	Reviewed        int            `json:"reviewed"`
	Overperformers  []InsightEntry `json:"overperformers"`
	Underperformers []InsightEntry `json:"underperformers"`
}

// MinGamesFor returns the sample-size gate for a run of totalMatches.
func MinGamesFor(totalMatches int) int {
	return max(MinInsightGames, int(math.Round(float64(totalMatches)*InsightSampleFraction)))
}

// Analyze compares each sufficiently sampled civ's observed win rate with its
// strength and returns the largest divergences in each direction.
func Analyze(r *Registry, t *StatsTable, totalMatches int) InsightReport {
	report := InsightReport{
		TotalMatches: totalMatches,
		MinGames:     MinGamesFor(totalMatches),
	}

	var over, under []InsightEntry
	for i := 0; i < r.Len(); i++ {
		civ := r.At(i)
		s, ok := t.Get(civ.Name)
		if !ok || s.Games == 0 || s.Games < report.MinGames {
			continue
		}
		report.Reviewed++
		e := InsightEntry{
			Name:                  civ.Name,
			Strength:              civ.Strength,
			ObservedWinRate:       s.WinRate,
			ExpectedRandomWinRate: r.ExpectedRandomWinRate(i),
			Diff:                  s.WinRate - civ.Strength,
			Games:                 s.Games,
		}
		switch {
		case e.Diff > DivergenceThreshold:
			over = append(over, e)
		case e.Diff < -DivergenceThreshold:
			under = append(under, e)
		}
	}

	switch {
	case report.Reviewed == 0:
		report.Status = InsightInsufficientData
		return report
	case len(over) == 0 && len(under) == 0:
		report.Status = InsightBalanced
		return report
	}

	report.Status = InsightOutliers
	report.Overperformers = topByMagnitude(over)
	report.Underperformers = topByMagnitude(under)
	return report
}

func topByMagnitude(entries []InsightEntry) []InsightEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return math.Abs(entries[i].Diff) > math.Abs(entries[j].Diff)
	})
	if len(entries) > MaxInsightEntries {
		entries = entries[:MaxInsightEntries]
	}
	return entries
}

// Message returns the one-line verdict for the report.
func (r InsightReport) Message() string {
	switch r.Status {
	case InsightInsufficientData:
		return "Not enough data yet. Try running a longer simulation to surface meaningful outliers."
	case InsightBalanced:
		return "Every civilization tracked closely with its theoretical strength; the Elo system kept the field in check."
	default:
		return fmt.Sprintf("Reviewed %s simulated matches to gauge balance drift.", FormatCount(r.TotalMatches))
	}
}

// Summary renders the entry as a sentence.
func (e InsightEntry) Summary() string {
	return fmt.Sprintf("%s posted a %.1f%% win rate across %s games versus a %.1f%% strength baseline (%+.1f pts) and would expect %.1f%% in equal-skill random matchups.",
		e.Name, e.ObservedWinRate*100, FormatCount(e.Games), e.Strength*100, e.Diff*100, e.ExpectedRandomWinRate*100)
}

// FormatCount renders n with English thousands separators.
func FormatCount(n int) string {
	return countPrinter.Sprintf("%d", n)
}
