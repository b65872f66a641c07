package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrr00064/mapharvest/internal/extract"
)

func TestMerger_DistinctKeys(t *testing.T) {
	m := NewMerger()
	m.Add(
		extract.Record{Name: "Cafe A", Lat: 40.0, Lng: -3.0, Source: "osm"},
		extract.Record{Name: "Cafe B", Lat: 41.0, Lng: -3.0, Source: "osm"},
	)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 2, m.Total())
}

func TestMerger_Lookup(t *testing.T) {
	m := NewMerger()
	rec := extract.Record{Name: "Cafe A", Lat: 40.0, Lng: -3.0, Source: "osm"}
	m.Add(rec)

	got, ok := m.Lookup(rec.DedupKey())
	require.True(t, ok)
	assert.Equal(t, "Cafe A", got.Name)

	_, ok = m.Lookup("nope")
	assert.False(t, ok)
}

func TestMerger_LongerAddressWins(t *testing.T) {
	// Two records rounding to the same key: the one with the longer
	// address must survive regardless of arrival order.
	short := extract.Record{Name: "Cafe Sol", Lat: 40.0001, Lng: -3.0001, Address: "", Source: "gmaps"}
	long := extract.Record{Name: "Cafe Sol", Lat: 40.0002, Lng: -3.0002, Address: "Main St", Source: "osm"}

	m := NewMerger()
	m.Add(short, long)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, "Main St", m.Records()[0].Address)

	m = NewMerger()
	m.Add(long, short)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, "Main St", m.Records()[0].Address)
}

func TestMerger_PhoneBreaksAddressTie(t *testing.T) {
	noPhone := extract.Record{Name: "Bar Dos", Lat: 40.0, Lng: -3.0, Address: "Calle 1"}
	withPhone := extract.Record{Name: "Bar Dos", Lat: 40.0, Lng: -3.0, Address: "Calle 2", Phone: "+34 600 000 000"}

	m := NewMerger()
	m.Add(noPhone, withPhone)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, "+34 600 000 000", m.Records()[0].Phone)
}

func TestMerger_WholesaleReplacement(t *testing.T) {
	// Source-fidelity choice: replacement adopts one record entirely. The
	// losing record's phone is discarded when the winner's address is
	// longer, even though the winner has no phone of its own.
	withPhone := extract.Record{Name: "Tienda Uno", Lat: 40.0, Lng: -3.0, Address: "C1", Phone: "+34 611 111 111"}
	longerNoPhone := extract.Record{Name: "Tienda Uno", Lat: 40.0, Lng: -3.0, Address: "Calle Larga 42"}

	m := NewMerger()
	m.Add(withPhone, longerNoPhone)
	require.Equal(t, 1, m.Len())

	got := m.Records()[0]
	assert.Equal(t, "Calle Larga 42", got.Address)
	assert.Empty(t, got.Phone, "wholesale replacement never blends fields")
}

func TestMerger_TieKeepsFirst(t *testing.T) {
	first := extract.Record{Name: "Kiosko", Lat: 40.0, Lng: -3.0, Address: "AB", Phone: "1"}
	second := extract.Record{Name: "Kiosko", Lat: 40.0, Lng: -3.0, Address: "CD", Phone: "2"}

	m := NewMerger()
	m.Add(first, second)
	assert.Equal(t, "AB", m.Records()[0].Address, "neither richer: stored record stays")
}

func TestMerger_Idempotent(t *testing.T) {
	m := NewMerger()
	m.Add(
		extract.Record{Name: "A", Lat: 1, Lng: 1, Address: "addr", Source: "osm"},
		extract.Record{Name: "B", Lat: 2, Lng: 2, Phone: "p", Source: "gmaps"},
		extract.Record{Name: "A", Lat: 1, Lng: 1, Address: "addr longer", Source: "gmaps"},
	)
	first := m.Records()

	again := NewMerger()
	for _, c := range first {
		again.Add(c.Record)
	}
	second := again.Records()

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Record, second[i].Record, "merging its own output is a no-op")
	}
}

func TestMerger_Provenance(t *testing.T) {
	m := NewMerger()
	m.Add(
		extract.Record{Name: "Mercado", Lat: 40.0, Lng: -3.0, Source: "osm"},
		extract.Record{Name: "Mercado", Lat: 40.0, Lng: -3.0, Source: "gmaps", Address: "longer addr"},
		extract.Record{Name: "Mercado", Lat: 40.0, Lng: -3.0, Source: "osm"},
	)

	recs := m.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"osm", "gmaps"}, recs[0].Sources)
	assert.Equal(t, map[string]int{"osm": 1, "gmaps": 1}, m.BySource())
}
