package grid

import (
	"os"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gopkg.in/yaml.v3"
)

// Region is an axis-aligned lat/lng rectangle. Open sides are expressed with
// the ±90/±180 sentinels.
type Region struct {
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
	LngMin float64 `yaml:"lng_min"`
	LngMax float64 `yaml:"lng_max"`
}

// Contains reports whether the point falls inside the region, boundaries
// included.
func (r Region) Contains(lat, lng float64) bool {
	b := geom.NewBounds(geom.XY).Set(r.LngMin, r.LatMin, r.LngMax, r.LatMax)
	return b.OverlapsPoint(geom.XY, geom.Coord{lng, lat})
}

// Rule pairs a region with a land/water verdict. Rules are evaluated in
// order; the first region containing the point decides.
type Rule struct {
	Name   string `yaml:"name"`
	Region Region `yaml:"region"`
	Land   bool   `yaml:"land"`
}

// Country describes a harvestable country: its bounding box and the ordered
// classification rules. A point matching no rule is water.
type Country struct {
	Name   string `yaml:"name"`
	Bounds Region `yaml:"bounds"`
	Rules  []Rule `yaml:"rules"`
}

// IsLand classifies a point against the country's rule list, first match
// wins. Countries without rules fall back to a point-in-bounds test.
func (c Country) IsLand(lat, lng float64) bool {
	if len(c.Rules) == 0 {
		return c.Bounds.Contains(lat, lng)
	}
	for _, r := range c.Rules {
		if r.Region.Contains(lat, lng) {
			return r.Land
		}
	}
	return false
}

var (
	countriesMu sync.RWMutex
	countries   = map[string]Country{
		"Spain":  spain,
		"France": {Name: "France", Bounds: Region{LatMin: 41.3, LatMax: 51.1, LngMin: -5.5, LngMax: 9.6}},
		"Mexico": {Name: "Mexico", Bounds: Region{LatMin: 14.5, LatMax: 32.7, LngMin: -118.4, LngMax: -86.0}},
	}
)

// spain carries the hand-tuned coastline heuristic. The rules mirror the
// sea/ocean cut-outs that produced ~82% water elimination on a 165x165 grid:
// archipelago boxes first, then exclusions, then the mainland core. They are
// expected to misclassify some coastal sectors.
var spain = Country{
	Name:   "Spain",
	Bounds: Region{LatMin: 27.0, LatMax: 44.5, LngMin: -18.5, LngMax: 5.0}, // includes the Canary Islands
	Rules: []Rule{
		{Name: "atlantic nw of tenerife", Region: Region{LatMin: 28.5, LatMax: 29.5, LngMin: -18.5, LngMax: -18.0}},
		{Name: "canary islands", Region: Region{LatMin: 27.5, LatMax: 29.5, LngMin: -18.5, LngMax: -13.0}, Land: true},
		{Name: "balearic islands", Region: Region{LatMin: 38.5, LatMax: 40.0, LngMin: 1.0, LngMax: 4.0}, Land: true},
		{Name: "atlantic west", Region: Region{LatMin: -90, LatMax: 90, LngMin: -180, LngMax: -9.5}},
		{Name: "mediterranean east", Region: Region{LatMin: -90, LatMax: 90, LngMin: 3.0, LngMax: 180}},
		{Name: "france north", Region: Region{LatMin: 43.2, LatMax: 90, LngMin: -180, LngMax: 180}},
		{Name: "morocco south", Region: Region{LatMin: -90, LatMax: 36.0, LngMin: -180, LngMax: 180}},
		{Name: "bay of biscay", Region: Region{LatMin: 42.8, LatMax: 90, LngMin: -180, LngMax: -1.5}},
		{Name: "gibraltar strait", Region: Region{LatMin: -90, LatMax: 36.5, LngMin: -5.5, LngMax: 180}},
		{Name: "mediterranean southeast", Region: Region{LatMin: -90, LatMax: 42.0, LngMin: 0.3, LngMax: 180}},
		{Name: "east of balearics", Region: Region{LatMin: -90, LatMax: 90, LngMin: 1.5, LngMax: 180}},
		{Name: "atlantic west of portugal", Region: Region{LatMin: -90, LatMax: 90, LngMin: -180, LngMax: -9.0}},
		{Name: "mainland core", Region: Region{LatMin: 36.2, LatMax: 43.3, LngMin: -9.3, LngMax: 3.0}, Land: true},
	},
}

// Lookup returns the registered country by name. An unknown name is a
// configuration error: the run must abort before any fetch begins.
func Lookup(name string) (Country, error) {
	countriesMu.RLock()
	defer countriesMu.RUnlock()
	c, ok := countries[name]
	if !ok {
		return Country{}, eris.Errorf("grid: country %q not supported, available: %v", name, names())
	}
	return c, nil
}

// Register adds or replaces a country definition.
func Register(c Country) {
	countriesMu.Lock()
	defer countriesMu.Unlock()
	countries[c.Name] = c
}

// Names returns the registered country names, sorted.
func Names() []string {
	countriesMu.RLock()
	defer countriesMu.RUnlock()
	return names()
}

func names() []string {
	out := make([]string, 0, len(countries))
	for name := range countries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LoadCountries reads additional country definitions from a YAML file and
// registers them. New countries are configuration, not code.
func LoadCountries(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "grid: read countries file %s", path)
	}

	var defs []Country
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return 0, eris.Wrap(err, "grid: parse countries file")
	}

	for _, c := range defs {
		if c.Name == "" {
			return 0, eris.New("grid: country definition missing name")
		}
		Register(c)
	}
	return len(defs), nil
}
