package balance

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Profile names shipped in the bundled catalog.
const (
	ProfileRanked    = "ranked"
	ProfileSynthetic = "synthetic"
)

// Strength mapping kinds.
const (
	MappingWinRate  = "winrate"
	MappingSinusoid = "sinusoid"
)

var ErrUnknownProfile = errors.New("unknown civilization profile")

//go:embed catalog.yaml
var catalogYAML []byte

// Defaults are the run parameters a profile substitutes for missing or invalid config.
type Defaults struct {
	Players int     `yaml:"players"`
	Matches int     `yaml:"matches"`
	KFactor float64 `yaml:"kFactor"`
	Spread  float64 `yaml:"spread"`
}

// StrengthMapping describes how a profile turns catalog entries into base strengths.
type StrengthMapping struct {
	Kind         string  `yaml:"kind"`
	BaseWinRate  float64 `yaml:"baseWinRate"`
	BaseStrength float64 `yaml:"baseStrength"`
	PeakWinRate  float64 `yaml:"peakWinRate"`
	PeakStrength float64 `yaml:"peakStrength"`
	Amplitude    float64 `yaml:"amplitude"`
	Cycles       float64 `yaml:"cycles"`
}

// CatalogEntry is one civilization as listed in the catalog.
type CatalogEntry struct {
	Name    string  `yaml:"name"`
	WinRate float64 `yaml:"winRate"`
}

// Profile is a civilization list plus the mapping that gives each entry its strength.
type Profile struct {
	Name          string          `yaml:"-"`
	Description   string          `yaml:"description"`
	Defaults      Defaults        `yaml:"defaults"`
	Mapping       StrengthMapping `yaml:"mapping"`
	Civilizations []CatalogEntry  `yaml:"civilizations"`
}

// Catalog holds every bundled profile.
type Catalog struct {
	Profiles map[string]*Profile `yaml:"profiles"`
}

var (
	catalogOnce sync.Once
	catalog     *Catalog
	catalogErr  error
)

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Profiles) == 0 {
		return nil, errors.New("catalog has no profiles")
	}
	for name, p := range c.Profiles {
		p.Name = name
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
	}
	return &c, nil
}

// LoadCatalog returns the bundled catalog, parsing it on first use.
func LoadCatalog() (*Catalog, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = ParseCatalog(catalogYAML)
	})
	return catalog, catalogErr
}

// LookupProfile returns the bundled profile with the given name.
func LookupProfile(name string) (*Profile, error) {
	c, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	return c.Profile(name)
}

// Profile returns the named profile.
func (c *Catalog) Profile(name string) (*Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Names returns the profile names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Profile) validate() error {
	if len(p.Civilizations) == 0 {
		return errors.New("no civilizations")
	}
	seen := make(map[string]bool, len(p.Civilizations))
	for _, e := range p.Civilizations {
		if e.Name == "" {
			return errors.New("civilization with empty name")
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate civilization %q", e.Name)
		}
		seen[e.Name] = true
	}
	switch p.Mapping.Kind {
	case MappingWinRate:
		if p.Mapping.PeakWinRate == p.Mapping.BaseWinRate {
			return errors.New("winrate mapping needs distinct base and peak win rates")
		}
	case MappingSinusoid:
	default:
		return fmt.Errorf("unknown mapping kind %q", p.Mapping.Kind)
	}
	return nil
}
