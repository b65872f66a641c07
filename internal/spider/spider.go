// Package spider is the rate-limited, proxy-rotating fetch engine. One
// logical fetch per sector: a concurrency slot, a jitter delay, then up to
// three tries per source with exponential backoff. Every failure degrades to
// an empty result; coverage is best-effort by design.
package spider

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jrr00064/mapharvest/internal/config"
	"github.com/jrr00064/mapharvest/internal/extract"
	"github.com/jrr00064/mapharvest/internal/grid"
	"github.com/jrr00064/mapharvest/internal/proxy"
)

const (
	maxAttempts    = 3
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 16 << 20
)

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRateLimited
	outcomeRetryable
)

// Spider fetches sectors from the configured sources.
type Spider struct {
	profile config.Profile
	rotator *proxy.Rotator
	sources []Source
	stats   *Stats
	sem     chan struct{}
	base    *http.Transport
	client  *http.Client

	// proxyClients caches one client per proxy endpoint so proxied
	// attempts share pooled connections instead of opening a fresh
	// transport per try.
	proxyMu      sync.Mutex
	proxyClients map[string]*http.Client

	// backoffUnit scales the 2^attempt backoff; tests shrink it.
	backoffUnit time.Duration
}

// New builds a spider for the given profile, proxy rotator and sources.
func New(profile config.Profile, rotator *proxy.Rotator, sources []Source) *Spider {
	base := &http.Transport{
		MaxIdleConns:        profile.PoolSize,
		MaxConnsPerHost:     50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Spider{
		profile: profile,
		rotator: rotator,
		sources: sources,
		stats:   &Stats{},
		sem:     make(chan struct{}, profile.MaxConcurrent),
		base:    base,
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: base,
		},
		proxyClients: make(map[string]*http.Client),
		backoffUnit:  time.Second,
	}
}

// Stats exposes the run counters.
func (s *Spider) Stats() *Stats {
	return s.stats
}

// Fetch performs the logical fetch for one sector: acquire a slot, pace,
// then query every source. It never returns an error; failed sectors yield
// an empty record set and show up only in the counters.
func (s *Spider) Fetch(ctx context.Context, sector grid.Sector, query string) []extract.Record {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	defer func() { <-s.sem }()

	if !s.sleep(ctx, s.jitterDelay()) {
		return nil
	}

	var records []extract.Record
	for _, src := range s.sources {
		records = append(records, s.fetchSource(ctx, src, sector, query)...)
	}
	return records
}

// fetchSource runs the retry loop for one source. A fresh proxy is drawn
// for every try; a 429 burns the proxy that produced it.
func (s *Spider) fetchSource(ctx context.Context, src Source, sector grid.Sector, query string) []extract.Record {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			s.stats.Retries.Add(1)
			if !s.sleep(ctx, backoffDelay(attempt-1, s.backoffUnit)) {
				return nil
			}
		}

		if err := src.Throttle(ctx); err != nil {
			return nil
		}

		var endpoint string
		if src.UsesProxy() {
			endpoint, _ = s.rotator.Next()
		}

		records, result := s.attempt(ctx, src, sector, query, endpoint)
		switch result {
		case outcomeSuccess:
			return records
		case outcomeRateLimited:
			s.rotator.MarkFailed(endpoint)
		}
	}

	s.stats.Exhausted.Add(1)
	zap.L().Debug("sector exhausted all attempts",
		zap.String("sector", sector.ID),
		zap.String("source", src.Name()),
	)
	return nil
}

func (s *Spider) attempt(ctx context.Context, src Source, sector grid.Sector, query, endpoint string) ([]extract.Record, outcome) {
	req, err := src.NewRequest(ctx, sector, query)
	if err != nil {
		return nil, outcomeRetryable
	}

	s.stats.Requests.Add(1)
	resp, err := s.clientFor(endpoint).Do(req)
	if err != nil {
		zap.L().Debug("fetch attempt failed",
			zap.String("sector", sector.ID),
			zap.String("source", src.Name()),
			zap.Error(err),
		)
		return nil, outcomeRetryable
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, outcomeRetryable
	}

	switch resp.StatusCode {
	case http.StatusOK:
		s.stats.Success.Add(1)
		records := src.Parse(body, sector)
		s.stats.Records.Add(int64(len(records)))
		if len(records) == 0 && len(body) > 0 {
			// Zero records out of a 200 with a non-empty body usually means
			// the payload shape changed; counted separately so breakage is
			// not mistaken for sparse coverage.
			s.stats.Unparsed.Add(1)
		}
		return records, outcomeSuccess
	case http.StatusTooManyRequests:
		s.stats.RateLimited.Add(1)
		return nil, outcomeRateLimited
	default:
		return nil, outcomeRetryable
	}
}

// clientFor returns the shared direct client, or the cached client routed
// through the given proxy endpoint. One client per endpoint keeps proxied
// connections pooled and reused across attempts.
func (s *Spider) clientFor(endpoint string) *http.Client {
	if endpoint == "" {
		return s.client
	}

	s.proxyMu.Lock()
	defer s.proxyMu.Unlock()
	if c, ok := s.proxyClients[endpoint]; ok {
		return c
	}

	u, err := url.Parse(proxy.URL(endpoint))
	if err != nil {
		return s.client
	}
	tr := s.base.Clone()
	tr.Proxy = http.ProxyURL(u)
	c := &http.Client{Timeout: requestTimeout, Transport: tr}
	s.proxyClients[endpoint] = c
	return c
}

// backoffDelay is 2^attempt units: 1, 2, 4 seconds for the real spider.
func backoffDelay(attempt int, unit time.Duration) time.Duration {
	return time.Duration(1<<attempt) * unit
}

func (s *Spider) jitterDelay() time.Duration {
	span := s.profile.DelayMax - s.profile.DelayMin
	if span <= 0 {
		return s.profile.DelayMin
	}
	return s.profile.DelayMin + rand.N(span)
}

// sleep waits d, returning false when the context ends first.
func (s *Spider) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
