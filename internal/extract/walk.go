package extract

import (
	"fmt"
	"strconv"
)

// MaxDepth bounds the recursive payload traversal. Upstream documents nest
// place data well inside this limit; anything deeper is noise.
const MaxDepth = 15

// WalkOptions tunes the untyped traversal.
type WalkOptions struct {
	// SkipMatchedChildren stops descending into a node once it matched as a
	// place. The default (false) keeps visiting descendants and removes the
	// resulting duplicates afterward, matching upstream payloads where
	// nested nodes repeat listing data.
	SkipMatchedChildren bool
}

// FromPayload walks an untyped decoded payload and returns every node that
// looks like a business listing, duplicates removed. A node only matches
// when it carries usable coordinates, so records from this path never need
// a location fallback.
func FromPayload(data any, opts WalkOptions) []Record {
	w := walker{opts: opts}
	w.visit(data, 0)
	return dedupeByIdentity(w.records)
}

type walker struct {
	opts    WalkOptions
	records []Record
}

func (w *walker) visit(node any, depth int) {
	if depth > MaxDepth {
		return
	}

	switch v := node.(type) {
	case map[string]any:
		matched := w.tryPlace(v)
		if matched && w.opts.SkipMatchedChildren {
			return
		}
		for _, child := range v {
			w.visit(child, depth+1)
		}
	case []any:
		for _, item := range v {
			w.visit(item, depth+1)
		}
	}
}

// tryPlace tests whether a map node looks like a place: a non-empty string
// under title/name plus non-zero numerics under lat/latitude and
// lng/longitude. Matching nodes are appended as records with per-field
// fallbacks defaulting to zero values.
func (w *walker) tryPlace(obj map[string]any) bool {
	name := firstString(obj, "title", "name")
	if name == "" {
		return false
	}

	lat, okLat := firstNumber(obj, "lat", "latitude")
	lng, okLng := firstNumber(obj, "lng", "longitude")
	if !okLat || !okLng {
		return false
	}

	rec := Record{
		Name:     name,
		Address:  stringValue(obj["address"]),
		Phone:    stringValue(obj["phone"]),
		Website:  stringValue(obj["website"]),
		Category: stringValue(obj["category"]),
		Rating:   numberValue(obj["rating"]),
		Reviews:  int(numberValue(obj["reviews"])),
		Lat:      lat,
		Lng:      lng,
		Source:   "gmaps",
		SourceID: stringValue(obj["placeId"]),
	}
	if rec.SourceID == "" {
		rec.SourceID = fmt.Sprintf("lat%vlng%v", lat, lng)
	}
	if hours, ok := obj["hours"].(map[string]any); ok {
		rec.Hours = hours
	}

	w.records = append(w.records, rec)
	return true
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstNumber returns the first non-zero numeric value under the keys.
// Zero counts as absent: upstream uses 0 for unset coordinates.
func firstNumber(obj map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f := numberValue(obj[k]); f != 0 {
			return f, true
		}
	}
	return 0, false
}

func numberValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
