package spider

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Stats holds the run-scoped fetch counters. Fetches run on parallel
// goroutines, so every counter is atomic; reads may happen at any time.
type Stats struct {
	Requests    atomic.Int64
	Success     atomic.Int64
	RateLimited atomic.Int64
	Retries     atomic.Int64
	Records     atomic.Int64
	Exhausted   atomic.Int64
	Unparsed    atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests    int64 `json:"requests"`
	Success     int64 `json:"success"`
	RateLimited int64 `json:"rate_limited"`
	Retries     int64 `json:"retries"`
	Records     int64 `json:"records"`
	Exhausted   int64 `json:"exhausted"`
	Unparsed    int64 `json:"unparsed"`
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Requests:    s.Requests.Load(),
		Success:     s.Success.Load(),
		RateLimited: s.RateLimited.Load(),
		Retries:     s.Retries.Load(),
		Records:     s.Records.Load(),
		Exhausted:   s.Exhausted.Load(),
		Unparsed:    s.Unparsed.Load(),
	}
}

// Log emits the counters at info level.
func (s *Stats) Log(msg string) {
	snap := s.Snapshot()
	zap.L().Info(msg,
		zap.Int64("requests", snap.Requests),
		zap.Int64("success", snap.Success),
		zap.Int64("rate_limited", snap.RateLimited),
		zap.Int64("retries", snap.Retries),
		zap.Int64("records", snap.Records),
		zap.Int64("exhausted", snap.Exhausted),
		zap.Int64("unparsed", snap.Unparsed),
	)
}
