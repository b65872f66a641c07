// Package dedup merges extracted records from all sectors and sources into
// a canonical set keyed by the heuristic dedup key.
package dedup

import (
	"sort"

	"go.uber.org/zap"

	"github.com/jrr00064/mapharvest/internal/extract"
)

// Canonical is the merge result for one dedup key: a single record plus the
// source tags that contributed candidates for the key.
type Canonical struct {
	extract.Record
	Sources []string `json:"sources"`
}

// Merger accumulates records incrementally. It is not safe for concurrent
// use; the orchestrator funnels all batches through a single goroutine.
type Merger struct {
	byKey map[string]*Canonical
	order []string
	total int
}

// NewMerger returns an empty merger.
func NewMerger() *Merger {
	return &Merger{byKey: make(map[string]*Canonical)}
}

// Add merges a batch of records. An unseen key inserts the record as-is. A
// seen key replaces the stored record only when the incoming one is richer:
// a strictly longer address, or a phone where the stored record has none.
// Replacement is wholesale, never a field-level blend, so a losing record's
// phone can be discarded; this mirrors the upstream policy deliberately.
// Ties keep the stored record, so output is deterministic for a fixed
// arrival order.
func (m *Merger) Add(records ...extract.Record) {
	for _, r := range records {
		m.total++
		key := r.DedupKey()
		existing, ok := m.byKey[key]
		if !ok {
			m.byKey[key] = &Canonical{Record: r, Sources: []string{r.Source}}
			m.order = append(m.order, key)
			continue
		}

		existing.Sources = appendSource(existing.Sources, r.Source)
		if richer(r, existing.Record) {
			existing.Record = r
		}
	}
}

func richer(incoming, stored extract.Record) bool {
	if len(incoming.Address) > len(stored.Address) {
		return true
	}
	return incoming.Phone != "" && stored.Phone == ""
}

func appendSource(sources []string, s string) []string {
	for _, have := range sources {
		if have == s {
			return sources
		}
	}
	return append(sources, s)
}

// Records returns the canonical set in first-seen key order.
func (m *Merger) Records() []Canonical {
	out := make([]Canonical, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, *m.byKey[key])
	}
	return out
}

// Lookup returns the current canonical record for a dedup key.
func (m *Merger) Lookup(key string) (Canonical, bool) {
	c, ok := m.byKey[key]
	if !ok {
		return Canonical{}, false
	}
	return *c, true
}

// Len returns the number of canonical records.
func (m *Merger) Len() int {
	return len(m.byKey)
}

// Total returns how many raw records were fed in.
func (m *Merger) Total() int {
	return m.total
}

// BySource counts canonical records per contributing source tag.
func (m *Merger) BySource() map[string]int {
	counts := make(map[string]int)
	for _, c := range m.byKey {
		for _, s := range c.Sources {
			counts[s]++
		}
	}
	return counts
}

// LogSummary emits the merge outcome at info level.
func (m *Merger) LogSummary() {
	bySource := m.BySource()
	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	fields := []zap.Field{
		zap.Int("raw", m.total),
		zap.Int("unique", len(m.byKey)),
	}
	for _, s := range sources {
		fields = append(fields, zap.Int("source_"+s, bySource[s]))
	}
	zap.L().Info("dedup complete", fields...)
}
