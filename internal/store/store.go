// Package store persists harvested businesses and run metadata, behind a
// driver-neutral interface with sqlite and postgres implementations.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jrr00064/mapharvest/internal/config"
	"github.com/jrr00064/mapharvest/internal/dedup"
	"github.com/jrr00064/mapharvest/internal/spider"
)

// ListFilter specifies criteria for listing businesses.
type ListFilter struct {
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`
	Name     string `json:"name,omitempty"` // substring match
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Run is one harvest run's metadata row. Stats is filled in when the run
// finishes.
type Run struct {
	ID         string           `json:"id"`
	Country    string           `json:"country"`
	Query      string           `json:"query"`
	GridSize   int              `json:"grid_size"`
	Profile    string           `json:"profile"`
	Sources    []string         `json:"sources"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Sectors    int              `json:"sectors"`
	Land       int              `json:"land"`
	Unique     int              `json:"unique"`
	Stats      *spider.Snapshot `json:"stats,omitempty"`
}

// Store is the persistence interface for the harvester.
type Store interface {
	// UpsertBusinesses writes a merged batch; existing rows with the same
	// dedup key are overwritten wholesale.
	UpsertBusinesses(ctx context.Context, records []dedup.Canonical) (int64, error)
	CountBusinesses(ctx context.Context) (int64, error)
	ListBusinesses(ctx context.Context, filter ListFilter) ([]dedup.Canonical, error)

	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open dispatches on the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q (want sqlite or postgres)", cfg.Driver)
	}
}

// businessColumns is the column order for the businesses table.
var businessColumns = []string{
	"dedup_key", "source_id", "name", "address", "phone", "website",
	"category", "rating", "reviews", "lat", "lng", "source", "sources",
	"hours", "updated_at",
}
