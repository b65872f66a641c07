package extract

import (
	"encoding/json"
	"strconv"
	"strings"
)

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// FromOverpass parses an Overpass API response into records. Elements with
// an empty name, or repeating a name already seen in the same payload, are
// skipped (first seen wins). Way elements carry no node coordinates; those
// records fall back to the sector center.
func FromOverpass(body []byte, centerLat, centerLng float64) []Record {
	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil
	}

	seen := make(map[string]bool, len(resp.Elements))
	var records []Record
	for _, el := range resp.Elements {
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		lat, lng := el.Lat, el.Lon
		if lat == 0 && lng == 0 {
			lat, lng = centerLat, centerLng
		}

		category := el.Tags["amenity"]
		if category == "" {
			category = el.Tags["shop"]
		}
		if category == "" {
			category = "business"
		}

		records = append(records, Record{
			Name:     name,
			Address:  osmAddress(el.Tags),
			Phone:    el.Tags["phone"],
			Website:  el.Tags["website"],
			Category: category,
			Lat:      lat,
			Lng:      lng,
			Source:   "osm",
			SourceID: "osm_" + strconv.FormatInt(el.ID, 10),
		})
	}
	return dedupeByIdentity(records)
}

// osmAddress joins the addr:* tags: street (with house number), postcode,
// city, comma separated, omitting absent parts.
func osmAddress(tags map[string]string) string {
	var parts []string
	if street := tags["addr:street"]; street != "" {
		if hn := tags["addr:housenumber"]; hn != "" {
			street += " " + hn
		}
		parts = append(parts, street)
	}
	if pc := tags["addr:postcode"]; pc != "" {
		parts = append(parts, pc)
	}
	if city := tags["addr:city"]; city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}
