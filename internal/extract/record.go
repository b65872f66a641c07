// Package extract pulls typed business records out of the semi-structured
// payloads the upstream map sources return.
package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Record is one extracted business listing. Records are immutable once
// constructed; ownership passes to the aggregator.
type Record struct {
	Name     string         `json:"name"`
	Address  string         `json:"address"`
	Phone    string         `json:"phone"`
	Website  string         `json:"website"`
	Category string         `json:"category"`
	Rating   float64        `json:"rating"`
	Reviews  int            `json:"reviews"`
	Lat      float64        `json:"lat"`
	Lng      float64        `json:"lng"`
	SourceID string         `json:"source_id"`
	Source   string         `json:"source"`
	Hours    map[string]any `json:"hours,omitempty"`
}

// identity is the within-payload duplicate key: the source id, or a
// coordinate-derived surrogate when the source provided none.
func (r Record) identity() string {
	if r.SourceID != "" {
		return r.SourceID
	}
	return fmt.Sprintf("lat%vlng%v", r.Lat, r.Lng)
}

// DedupKey is the heuristic cross-source identity surrogate: the first 20
// runes of the normalized name plus the coordinates rounded to 3 decimals
// (~110m). Distinct nearby businesses with similar truncated names can
// collide; the aggregator's richness policy decides such collisions.
func (r Record) DedupKey() string {
	return fmt.Sprintf("%s_%s_%s",
		normalizeName(r.Name),
		strconv.FormatFloat(round3(r.Lat), 'f', -1, 64),
		strconv.FormatFloat(round3(r.Lng), 'f', -1, 64),
	)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// stripMarks removes combining marks so accented and unaccented spellings
// of the same name share a key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeName(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(folded) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
		n++
		if n == 20 {
			break
		}
	}
	return b.String()
}

// dedupeByIdentity drops records whose identity repeats within one payload,
// keeping the first occurrence.
func dedupeByIdentity(records []Record) []Record {
	seen := make(map[string]bool, len(records))
	unique := records[:0:0]
	for _, r := range records {
		id := r.identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, r)
	}
	return unique
}
