package store

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/jrr00064/mapharvest/internal/dedup"
)

func exportFixture() []dedup.Canonical {
	return []dedup.Canonical{
		canonical("Cafe Sol", "Calle Mayor 1", "911222333", 40.417, -3.703, "gmaps"),
		canonical("Bar Luna", "Av Diagonal 5", "", 41.39, 2.17, "gmaps", "osm"),
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, exportFixture()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "Cafe Sol", rows[1][0])
	assert.Equal(t, "40.417", rows[1][7])
	assert.Equal(t, "gmaps;osm", rows[2][10])
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, exportFixture()))

	var decoded []dedup.Canonical
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Cafe Sol", decoded[0].Name)
	assert.Equal(t, []string{"gmaps", "osm"}, decoded[1].Sources)
}

func TestExportJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()), "empty export must be an array, not null")
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(&buf, exportFixture()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "Businesses", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "name", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "Bar Luna", sheet.Rows[2].Cells[0].Value)
}
