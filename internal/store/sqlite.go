package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/jrr00064/mapharvest/internal/dedup"
	"github.com/jrr00064/mapharvest/internal/extract"
	"github.com/jrr00064/mapharvest/internal/spider"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	dedup_key  TEXT PRIMARY KEY,
	source_id  TEXT,
	name       TEXT NOT NULL,
	address    TEXT,
	phone      TEXT,
	website    TEXT,
	category   TEXT,
	rating     REAL,
	reviews    INTEGER,
	lat        REAL NOT NULL,
	lng        REAL NOT NULL,
	source     TEXT,
	sources    TEXT NOT NULL DEFAULT '[]',
	hours      TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS harvest_runs (
	id            TEXT PRIMARY KEY,
	country       TEXT NOT NULL,
	query         TEXT NOT NULL,
	grid_size     INTEGER NOT NULL,
	profile       TEXT NOT NULL,
	sources       TEXT NOT NULL DEFAULT '[]',
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME,
	sectors       INTEGER NOT NULL DEFAULT 0,
	land          INTEGER NOT NULL DEFAULT 0,
	unique_count  INTEGER NOT NULL DEFAULT 0,
	stats         TEXT
);

CREATE INDEX IF NOT EXISTS idx_businesses_name ON businesses(name);
CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category);
CREATE INDEX IF NOT EXISTS idx_businesses_source ON businesses(source);
CREATE INDEX IF NOT EXISTS idx_harvest_runs_started_at ON harvest_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsert = `
INSERT INTO businesses (dedup_key, source_id, name, address, phone, website,
	category, rating, reviews, lat, lng, source, sources, hours, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(dedup_key) DO UPDATE SET
	source_id = excluded.source_id,
	name = excluded.name,
	address = excluded.address,
	phone = excluded.phone,
	website = excluded.website,
	category = excluded.category,
	rating = excluded.rating,
	reviews = excluded.reviews,
	lat = excluded.lat,
	lng = excluded.lng,
	source = excluded.source,
	sources = excluded.sources,
	hours = excluded.hours,
	updated_at = excluded.updated_at`

func (s *SQLiteStore) UpsertBusinesses(ctx context.Context, records []dedup.Canonical) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var n int64
	for _, rec := range records {
		sources, hours, err := encodeJSONCols(rec)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx,
			rec.DedupKey(), rec.SourceID, rec.Name, rec.Address, rec.Phone,
			rec.Website, rec.Category, rec.Rating, rec.Reviews, rec.Lat,
			rec.Lng, rec.Source, sources, hours, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert business %s", rec.Name)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return n, nil
}

func (s *SQLiteStore) CountBusinesses(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count businesses")
}

func (s *SQLiteStore) ListBusinesses(ctx context.Context, filter ListFilter) ([]dedup.Canonical, error) {
	query := `SELECT source_id, name, address, phone, website, category,
		rating, reviews, lat, lng, source, sources, hours
		FROM businesses WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.Name != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.Name+"%")
	}
	query += ` ORDER BY name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list businesses")
	}
	defer rows.Close()

	var out []dedup.Canonical
	for rows.Next() {
		var (
			rec             extract.Record
			sourcesJSON     string
			hoursJSON       sql.NullString
			addr, phone     sql.NullString
			website, cat    sql.NullString
			sourceID, srcNm sql.NullString
		)
		if err := rows.Scan(&sourceID, &rec.Name, &addr, &phone, &website,
			&cat, &rec.Rating, &rec.Reviews, &rec.Lat, &rec.Lng, &srcNm,
			&sourcesJSON, &hoursJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan business")
		}
		rec.SourceID = sourceID.String
		rec.Address = addr.String
		rec.Phone = phone.String
		rec.Website = website.String
		rec.Category = cat.String
		rec.Source = srcNm.String

		c := dedup.Canonical{Record: rec}
		if err := json.Unmarshal([]byte(sourcesJSON), &c.Sources); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode sources")
		}
		if hoursJSON.Valid && hoursJSON.String != "" {
			if err := json.Unmarshal([]byte(hoursJSON.String), &c.Hours); err != nil {
				return nil, eris.Wrap(err, "sqlite: decode hours")
			}
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list businesses iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run sources")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO harvest_runs (id, country, query, grid_size, profile,
			sources, started_at, sectors, land)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Country, run.Query, run.GridSize, run.Profile,
		string(sources), run.StartedAt.UTC(), run.Sectors, run.Land,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run stats")
	}
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	res, err := s.db.ExecContext(ctx,
		`UPDATE harvest_runs SET finished_at = ?, unique_count = ?, stats = ? WHERE id = ?`,
		finished, run.Unique, string(stats), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: finish run rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", run.ID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, country, query, grid_size, profile, sources, started_at,
			finished_at, sectors, land, unique_count, stats
		FROM harvest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r           Run
			sourcesJSON string
			statsJSON   sql.NullString
			finished    sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Country, &r.Query, &r.GridSize,
			&r.Profile, &sourcesJSON, &r.StartedAt, &finished, &r.Sectors,
			&r.Land, &r.Unique, &statsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &r.Sources); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode run sources")
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		if statsJSON.Valid && statsJSON.String != "" {
			var snap spider.Snapshot
			if err := json.Unmarshal([]byte(statsJSON.String), &snap); err != nil {
				return nil, eris.Wrap(err, "sqlite: decode run stats")
			}
			r.Stats = &snap
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// encodeJSONCols marshals the slice/map columns shared by both drivers.
func encodeJSONCols(rec dedup.Canonical) (sources, hours string, err error) {
	srcs := rec.Sources
	if srcs == nil {
		srcs = []string{}
	}
	b, err := json.Marshal(srcs)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal sources")
	}
	sources = string(b)

	if len(rec.Hours) > 0 {
		h, err := json.Marshal(rec.Hours)
		if err != nil {
			return "", "", eris.Wrap(err, "store: marshal hours")
		}
		hours = string(h)
	}
	return sources, hours, nil
}
