package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes one CLI invocation with flag state reset, since the
// package-level flag variables would otherwise leak between tests.
func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	dbPath = ""
	gridCountry, gridSize, gridJSON = "", 0, false
	harvestQuery, harvestCountry, harvestMode = "", "", ""
	harvestMaxSectors, harvestGridSize = 0, 0
	harvestProxyFile, harvestSources = "", nil
	exportOut, exportFormat, exportCategory, exportSource, exportLimit = "", "", "", "", 0
	proxiesOut = ""

	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	return rootCmd.Execute()
}

func TestRootCommand_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"harvest", "grid", "proxies", "export", "serve"} {
		assert.Contains(t, names, want)
	}
}

func TestGridCommand_JSON(t *testing.T) {
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	require.NoError(t, runCommand(t, "grid", "--country", "Spain", "--grid-size", "10", "--json"))

	w.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"stats"`)
	assert.Contains(t, buf.String(), `"land_sectors"`)
}

func TestGridCommand_UnknownCountry(t *testing.T) {
	err := runCommand(t, "grid", "--country", "atlantis", "--grid-size", "10")
	require.Error(t, err)
}

func TestHarvestCommand_Flags(t *testing.T) {
	for _, name := range []string{"query", "country", "mode", "max-sectors", "grid-size", "proxy-file", "sources"} {
		assert.NotNil(t, harvestCmd.Flags().Lookup(name), name)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("db"))
	assert.NotNil(t, proxiesCmd.PersistentFlags().Lookup("out"))
}

func TestDBFlag_OverridesStorePath(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "flagged.db")
	out := filepath.Join(dir, "out.json")

	require.NoError(t, runCommand(t, "export", "--db", dbFile, "--out", out, "--format", "json"))

	_, err := os.Stat(dbFile)
	assert.NoError(t, err, "the store must be created at the --db path")
}

func TestExportCommand_CSV(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MAPHARVEST_STORE_PATH", filepath.Join(dir, "export.db"))
	out := filepath.Join(dir, "out.csv")

	require.NoError(t, runCommand(t, "export", "--out", out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "empty store exports just the header")
	assert.Equal(t, "name", rows[0][0])
}

func TestExportCommand_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MAPHARVEST_STORE_PATH", filepath.Join(dir, "export.db"))

	err := runCommand(t, "export", "--format", "parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
