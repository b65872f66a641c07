// Package harvest orchestrates a full run: grid generation, batched
// concurrent fetching, incremental aggregation, and persistence.
package harvest

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jrr00064/mapharvest/internal/config"
	"github.com/jrr00064/mapharvest/internal/dedup"
	"github.com/jrr00064/mapharvest/internal/extract"
	"github.com/jrr00064/mapharvest/internal/grid"
	"github.com/jrr00064/mapharvest/internal/spider"
	"github.com/jrr00064/mapharvest/internal/store"
)

// Runner drives one harvest run end to end.
type Runner struct {
	cfg     config.HarvestConfig
	profile config.Profile
	spider  *spider.Spider
	store   store.Store
	merger  *dedup.Merger
}

// New assembles a runner; the spider and store come pre-configured.
func New(cfg config.HarvestConfig, profile config.Profile, sp *spider.Spider, st store.Store) *Runner {
	return &Runner{
		cfg:     cfg,
		profile: profile,
		spider:  sp,
		store:   st,
		merger:  dedup.NewMerger(),
	}
}

// Results returns the merged canonical set accumulated so far.
func (r *Runner) Results() []dedup.Canonical {
	return r.merger.Records()
}

// Run executes the harvest: land sectors are fetched in batches sized by
// the profile, each batch is merged and persisted before the next starts,
// so an interrupted run keeps everything already fetched. Cancellation
// stops fetching at the next batch boundary; store writes run on a
// detached context so the partial batch and the run row still land.
func (r *Runner) Run(ctx context.Context) (*store.Run, error) {
	g, err := grid.New(r.cfg.Country, r.cfg.GridSize)
	if err != nil {
		return nil, err
	}
	g.Generate()
	land := g.FilterLand()
	g.LogStats()

	if r.cfg.MaxSectors > 0 && len(land) > r.cfg.MaxSectors {
		land = land[:r.cfg.MaxSectors]
	}

	gridStats := g.Stats()
	run := &store.Run{
		ID:        uuid.New().String(),
		Country:   r.cfg.Country,
		Query:     r.cfg.Query,
		GridSize:  r.cfg.GridSize,
		Profile:   r.profile.Name,
		Sources:   r.cfg.Sources,
		StartedAt: time.Now().UTC(),
		Sectors:   gridStats.TotalSectors,
		Land:      len(land),
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "harvest: create run")
	}

	zap.L().Info("harvest started",
		zap.String("run", run.ID),
		zap.String("country", r.cfg.Country),
		zap.String("query", r.cfg.Query),
		zap.String("profile", r.profile.Name),
		zap.Int("sectors", len(land)),
	)

	batchSize := r.profile.BatchSize
	if batchSize <= 0 {
		batchSize = len(land)
	}

	// Store writes survive cancellation: a SIGINT mid-batch must not lose
	// the records already fetched or leave the run row unfinalized.
	persistCtx := context.WithoutCancel(ctx)

	batches := 0
	for start := 0; start < len(land) && ctx.Err() == nil; start += batchSize {
		end := min(start+batchSize, len(land))

		records := r.fetchBatch(ctx, land[start:end])
		touched := r.absorb(records)
		if _, err := r.store.UpsertBusinesses(persistCtx, touched); err != nil {
			return nil, eris.Wrap(err, "harvest: persist batch")
		}

		batches++
		zap.L().Info("batch complete",
			zap.Int("batch", batches),
			zap.Int("sectors_done", end),
			zap.Int("records", len(records)),
			zap.Int("unique", r.merger.Len()),
		)
		if r.profile.CleanupEvery > 0 && batches%r.profile.CleanupEvery == 0 {
			runtime.GC()
		}
	}

	snap := r.spider.Stats().Snapshot()
	run.Unique = r.merger.Len()
	run.Stats = &snap
	if err := r.store.FinishRun(persistCtx, run); err != nil {
		return nil, eris.Wrap(err, "harvest: finish run")
	}

	r.merger.LogSummary()
	r.spider.Stats().Log("harvest finished")
	return run, nil
}

// fetchBatch fans fetches out over the batch; the spider's own semaphore
// enforces the global ceiling, the group limit just bounds goroutines.
func (r *Runner) fetchBatch(ctx context.Context, sectors []grid.Sector) []extract.Record {
	results := make([][]extract.Record, len(sectors))

	gr, gctx := errgroup.WithContext(ctx)
	gr.SetLimit(r.profile.MaxConcurrent)
	for i, sector := range sectors {
		gr.Go(func() error {
			results[i] = r.spider.Fetch(gctx, sector, r.cfg.Query)
			return nil
		})
	}
	_ = gr.Wait() // fetches never return errors

	var flat []extract.Record
	for _, recs := range results {
		flat = append(flat, recs...)
	}
	return flat
}

// absorb merges the batch and returns the canonical rows it touched, each
// at most once, in batch order.
func (r *Runner) absorb(records []extract.Record) []dedup.Canonical {
	r.merger.Add(records...)

	seen := make(map[string]bool, len(records))
	var touched []dedup.Canonical
	for _, rec := range records {
		key := rec.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		if c, ok := r.merger.Lookup(key); ok {
			touched = append(touched, c)
		}
	}
	return touched
}
