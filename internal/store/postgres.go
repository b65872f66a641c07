package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jrr00064/mapharvest/internal/db"
	"github.com/jrr00064/mapharvest/internal/dedup"
	"github.com/jrr00064/mapharvest/internal/extract"
	"github.com/jrr00064/mapharvest/internal/spider"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	dedup_key  TEXT PRIMARY KEY,
	source_id  TEXT,
	name       TEXT NOT NULL,
	address    TEXT,
	phone      TEXT,
	website    TEXT,
	category   TEXT,
	rating     DOUBLE PRECISION,
	reviews    INTEGER,
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	source     TEXT,
	sources    JSONB NOT NULL DEFAULT '[]',
	hours      JSONB,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS harvest_runs (
	id           TEXT PRIMARY KEY,
	country      TEXT NOT NULL,
	query        TEXT NOT NULL,
	grid_size    INTEGER NOT NULL,
	profile      TEXT NOT NULL,
	sources      JSONB NOT NULL DEFAULT '[]',
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ,
	sectors      INTEGER NOT NULL DEFAULT 0,
	land         INTEGER NOT NULL DEFAULT 0,
	unique_count INTEGER NOT NULL DEFAULT 0,
	stats        JSONB
);

CREATE INDEX IF NOT EXISTS idx_businesses_name ON businesses(name);
CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category);
CREATE INDEX IF NOT EXISTS idx_businesses_source ON businesses(source);
CREATE INDEX IF NOT EXISTS idx_harvest_runs_started_at ON harvest_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// UpsertBusinesses bulk-loads a batch through a temp table. The dedup key
// is the conflict key; conflicting rows are overwritten.
func (s *PostgresStore) UpsertBusinesses(ctx context.Context, records []dedup.Canonical) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		sources, hours, err := encodeJSONCols(rec)
		if err != nil {
			return 0, err
		}
		var hoursVal any
		if hours != "" {
			hoursVal = hours
		}
		rows = append(rows, []any{
			rec.DedupKey(), rec.SourceID, rec.Name, rec.Address, rec.Phone,
			rec.Website, rec.Category, rec.Rating, rec.Reviews, rec.Lat,
			rec.Lng, rec.Source, sources, hoursVal, now,
		})
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "businesses",
		Columns:      businessColumns,
		ConflictKeys: []string{"dedup_key"},
	}, rows)
}

func (s *PostgresStore) CountBusinesses(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count businesses")
}

func (s *PostgresStore) ListBusinesses(ctx context.Context, filter ListFilter) ([]dedup.Canonical, error) {
	query := `SELECT source_id, name, address, phone, website, category,
		rating, reviews, lat, lng, source, sources, hours
		FROM businesses WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Category != "" {
		query += ` AND category = ` + arg(filter.Category)
	}
	if filter.Source != "" {
		query += ` AND source = ` + arg(filter.Source)
	}
	if filter.Name != "" {
		query += ` AND name ILIKE ` + arg("%"+filter.Name+"%")
	}
	query += ` ORDER BY name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list businesses")
	}
	defer rows.Close()

	var out []dedup.Canonical
	for rows.Next() {
		var (
			rec              extract.Record
			sourcesJSON      []byte
			hoursJSON        []byte
			sourceID, addr   *string
			phone, website   *string
			category, srcNam *string
		)
		if err := rows.Scan(&sourceID, &rec.Name, &addr, &phone, &website,
			&category, &rec.Rating, &rec.Reviews, &rec.Lat, &rec.Lng,
			&srcNam, &sourcesJSON, &hoursJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		rec.SourceID = deref(sourceID)
		rec.Address = deref(addr)
		rec.Phone = deref(phone)
		rec.Website = deref(website)
		rec.Category = deref(category)
		rec.Source = deref(srcNam)

		c := dedup.Canonical{Record: rec}
		if err := json.Unmarshal(sourcesJSON, &c.Sources); err != nil {
			return nil, eris.Wrap(err, "postgres: decode sources")
		}
		if len(hoursJSON) > 0 {
			if err := json.Unmarshal(hoursJSON, &c.Hours); err != nil {
				return nil, eris.Wrap(err, "postgres: decode hours")
			}
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list businesses iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run sources")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO harvest_runs (id, country, query, grid_size, profile,
			sources, started_at, sectors, land)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Country, run.Query, run.GridSize, run.Profile,
		string(sources), run.StartedAt.UTC(), run.Sectors, run.Land,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run stats")
	}
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	tag, err := s.pool.Exec(ctx,
		`UPDATE harvest_runs SET finished_at = $1, unique_count = $2, stats = $3 WHERE id = $4`,
		finished, run.Unique, string(stats), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, country, query, grid_size, profile, sources, started_at,
			finished_at, sectors, land, unique_count, stats
		FROM harvest_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r           Run
			sourcesJSON []byte
			statsJSON   []byte
			finished    *time.Time
		)
		if err := rows.Scan(&r.ID, &r.Country, &r.Query, &r.GridSize,
			&r.Profile, &sourcesJSON, &r.StartedAt, &finished, &r.Sectors,
			&r.Land, &r.Unique, &statsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(sourcesJSON, &r.Sources); err != nil {
			return nil, eris.Wrap(err, "postgres: decode run sources")
		}
		r.FinishedAt = finished
		if len(statsJSON) > 0 && string(statsJSON) != "null" {
			var snap spider.Snapshot
			if err := json.Unmarshal(statsJSON, &snap); err != nil {
				return nil, eris.Wrap(err, "postgres: decode run stats")
			}
			r.Stats = &snap
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
