package grid

// Sector is one cell of the harvesting grid. Sectors are created in bulk by
// Generate and never mutated after classification.
type Sector struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LngMin float64 `json:"lng_min"`
	LngMax float64 `json:"lng_max"`
	IsLand bool    `json:"is_land"`
}
