package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrr00064/mapharvest/internal/dedup"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS businesses`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertBusinesses(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_businesses"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_businesses"}, businessColumns).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "businesses" .+ ON CONFLICT \("dedup_key"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.UpsertBusinesses(context.Background(), []dedup.Canonical{
		canonical("Cafe Sol", "Calle Mayor 1", "911222333", 40.417, -3.703, "gmaps"),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertEmpty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.UpsertBusinesses(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountBusinesses(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM businesses`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	n, err := s.CountBusinesses(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListBusinesses_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := []string{"source_id", "name", "address", "phone", "website",
		"category", "rating", "reviews", "lat", "lng", "source", "sources", "hours"}
	mock.ExpectQuery(`(?s)SELECT .+ FROM businesses WHERE 1=1 AND category = \$1.+LIMIT \$2`).
		WithArgs("bar", 1000).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			strPtr("gmaps_1"), "Bar Luna", strPtr("Av Diagonal 5"), strPtr(""),
			strPtr(""), strPtr("bar"), 4.5, 10, 41.39, 2.17, strPtr("gmaps"),
			[]byte(`["gmaps","osm"]`), []byte(nil),
		))

	got, err := s.ListBusinesses(context.Background(), ListFilter{Category: "bar"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bar Luna", got[0].Name)
	assert.Equal(t, []string{"gmaps", "osm"}, got[0].Sources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateAndFinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	run := &Run{
		ID:        "run-1",
		Country:   "spain",
		Query:     "negocios",
		GridSize:  165,
		Profile:   "fast",
		Sources:   []string{"gmaps"},
		StartedAt: time.Now().UTC(),
		Sectors:   100,
		Land:      60,
	}

	mock.ExpectExec(`INSERT INTO harvest_runs`).
		WithArgs(run.ID, run.Country, run.Query, run.GridSize, run.Profile,
			`["gmaps"]`, pgxmock.AnyArg(), run.Sectors, run.Land).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.CreateRun(context.Background(), run))

	mock.ExpectExec(`UPDATE harvest_runs SET finished_at`).
		WithArgs(pgxmock.AnyArg(), 55, pgxmock.AnyArg(), run.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	run.Unique = 55
	require.NoError(t, s.FinishRun(context.Background(), run))
	assert.NotNil(t, run.FinishedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE harvest_runs SET finished_at`).
		WithArgs(pgxmock.AnyArg(), 0, pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), &Run{ID: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }
