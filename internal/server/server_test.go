package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrr00064/mapharvest/internal/dedup"
	"github.com/jrr00064/mapharvest/internal/extract"
	"github.com/jrr00064/mapharvest/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return New(st, 0), st
}

func seed(t *testing.T, st store.Store) {
	t.Helper()
	_, err := st.UpsertBusinesses(context.Background(), []dedup.Canonical{
		{
			Record: extract.Record{
				Name: "Cafe Sol", Category: "restaurant", Lat: 40.4, Lng: -3.7,
				Source: "gmaps",
			},
			Sources: []string{"gmaps"},
		},
		{
			Record: extract.Record{
				Name: "Bar Luna", Category: "bar", Lat: 41.4, Lng: 2.2,
				Source: "osm",
			},
			Sources: []string{"osm"},
		},
	})
	require.NoError(t, err)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Routes(), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Stats(t *testing.T) {
	s, st := newTestServer(t)
	seed(t, st)
	require.NoError(t, st.CreateRun(context.Background(), &store.Run{
		ID: "run-1", Country: "spain", Query: "negocios", GridSize: 165,
		Profile: "slow", Sources: []string{"gmaps"}, StartedAt: time.Now().UTC(),
	}))

	rec := get(t, s.Routes(), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["businesses"])
	require.Contains(t, resp, "last_run")
}

func TestServer_Businesses_Filtered(t *testing.T) {
	s, st := newTestServer(t)
	seed(t, st)

	rec := get(t, s.Routes(), "/api/businesses?category=bar")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []dedup.Canonical
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Bar Luna", got[0].Name)
}

func TestServer_Businesses_EmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s.Routes(), "/api/businesses")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_Runs(t *testing.T) {
	s, st := newTestServer(t)
	require.NoError(t, st.CreateRun(context.Background(), &store.Run{
		ID: "run-1", Country: "spain", Query: "q", GridSize: 10,
		Profile: "slow", Sources: []string{"gmaps"}, StartedAt: time.Now().UTC(),
	}))

	rec := get(t, s.Routes(), "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}
