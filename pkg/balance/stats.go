package balance

// CivStats counts one civilization's results for a single run.
type CivStats struct {
	Wins    int     `json:"wins"`
	Games   int     `json:"games"`
	WinRate float64 `json:"win_rate"` // 0 when Games is 0
}

// StatsTable tracks CivStats for a fixed civilization set.
type StatsTable struct {
	names []string
	stats map[string]*CivStats
}

// NewStatsTable returns zeroed stats for every civ in r.
func NewStatsTable(r *Registry) *StatsTable {
	t := &StatsTable{
		names: make([]string, r.Len()),
		stats: make(map[string]*CivStats, r.Len()),
	}
	for i := 0; i < r.Len(); i++ {
		name := r.At(i).Name
		t.names[i] = name
		t.stats[name] = &CivStats{}
	}
	return t
}

// Record counts one game for civName. Unknown names are ignored.
func (t *StatsTable) Record(civName string, won bool) {
	s, ok := t.stats[civName]
	if !ok {
		return
	}
	s.Games++
	if won {
		s.Wins++
	}
	s.WinRate = float64(s.Wins) / float64(s.Games)
}

// Get returns the stats for civName.
func (t *StatsTable) Get(civName string) (CivStats, bool) {
	s, ok := t.stats[civName]
	if !ok {
		return CivStats{}, false
	}
	return *s, true
}

// Reset zeroes every counter.
func (t *StatsTable) Reset() {
	for _, s := range t.stats {
		*s = CivStats{}
	}
}

// TotalGames returns the number of civ-games recorded, two per match.
func (t *StatsTable) TotalGames() int {
	var n int
	for _, s := range t.stats {
		n += s.Games
	}
	return n
}
