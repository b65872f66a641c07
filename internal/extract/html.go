package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Embedded-JSON envelopes observed in map search result pages. Only the
// first match per pattern is decoded; later blocks repeat the same data.
var envelopePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)AF_initDataCallback\s*\([^}]*data\s*:\s*(\[[^\]]+\])`),
	regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*({.+?});`),
}

// FromHTML locates embedded JSON blobs in a result page and runs the place
// walker over each. Malformed or unexpected blobs yield zero records; a
// parse failure never propagates.
func FromHTML(html string, opts WalkOptions) []Record {
	var records []Record
	for _, pattern := range envelopePatterns {
		m := pattern.FindStringSubmatch(html)
		if m == nil {
			continue
		}

		// Upstream blobs mix quote styles.
		blob := strings.ReplaceAll(m[1], "'", `"`)

		var data any
		if err := json.Unmarshal([]byte(blob), &data); err != nil {
			continue
		}
		records = append(records, FromPayload(data, opts)...)
	}
	return dedupeByIdentity(records)
}
