// Package grid partitions a country's bounding box into fetchable sectors
// and prunes the ones unlikely to hold businesses (open water).
package grid

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Grid generates and filters the sector grid for one country.
type Grid struct {
	Country Country
	Size    int
	Sectors []Sector
}

// New looks up the country and returns an empty grid of the given size.
func New(countryName string, size int) (*Grid, error) {
	if size <= 0 {
		return nil, eris.Errorf("grid: size must be positive, got %d", size)
	}
	c, err := Lookup(countryName)
	if err != nil {
		return nil, err
	}
	return &Grid{Country: c, Size: size}, nil
}

// Generate builds size x size sectors covering the country bounds in
// row-major order. Each sector's center is the midpoint of its cell.
// Generation is deterministic.
func (g *Grid) Generate() []Sector {
	b := g.Country.Bounds
	latStep := (b.LatMax - b.LatMin) / float64(g.Size)
	lngStep := (b.LngMax - b.LngMin) / float64(g.Size)

	sectors := make([]Sector, 0, g.Size*g.Size)
	for i := 0; i < g.Size; i++ {
		for j := 0; j < g.Size; j++ {
			sectors = append(sectors, Sector{
				ID:     fmt.Sprintf("%d_%d", i, j),
				Lat:    b.LatMin + float64(i)*latStep + latStep/2,
				Lng:    b.LngMin + float64(j)*lngStep + lngStep/2,
				LatMin: b.LatMin + float64(i)*latStep,
				LatMax: b.LatMin + float64(i+1)*latStep,
				LngMin: b.LngMin + float64(j)*lngStep,
				LngMax: b.LngMin + float64(j+1)*lngStep,
			})
		}
	}

	g.Sectors = sectors
	return sectors
}

// FilterLand classifies every sector center and keeps the land ones.
// Filtering an already-filtered grid is a no-op.
func (g *Grid) FilterLand() []Sector {
	land := make([]Sector, 0, len(g.Sectors))
	for _, s := range g.Sectors {
		s.IsLand = g.Country.IsLand(s.Lat, s.Lng)
		if s.IsLand {
			land = append(land, s)
		}
	}
	g.Sectors = land
	return land
}

// Stats summarizes the grid after filtering.
type Stats struct {
	Country          string  `json:"country"`
	GridSize         int     `json:"grid_size"`
	TotalSectors     int     `json:"total_sectors"`
	LandSectors      int     `json:"land_sectors"`
	WaterSectors     int     `json:"water_sectors"`
	WaterElimination float64 `json:"water_elimination"`
}

// Stats returns grid statistics relative to the current sector list.
func (g *Grid) Stats() Stats {
	total := g.Size * g.Size
	land := len(g.Sectors)
	return Stats{
		Country:          g.Country.Name,
		GridSize:         g.Size,
		TotalSectors:     total,
		LandSectors:      land,
		WaterSectors:     total - land,
		WaterElimination: float64(total-land) / float64(total),
	}
}

// LogStats emits the grid summary at info level.
func (g *Grid) LogStats() {
	st := g.Stats()
	zap.L().Info("grid built",
		zap.String("country", st.Country),
		zap.Int("total_sectors", st.TotalSectors),
		zap.Int("land_sectors", st.LandSectors),
		zap.Float64("water_elimination", st.WaterElimination),
	)
}
