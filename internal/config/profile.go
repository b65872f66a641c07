package config

import (
	"time"

	"github.com/rotisserie/eris"
)

// Profile bundles the pacing knobs for a run. The presets trade throughput
// against block risk depending on how many proxies are available.
type Profile struct {
	Name          string
	Description   string
	MaxConcurrent int           // simultaneous sector fetches
	DelayMin      time.Duration // jitter range drawn before each fetch
	DelayMax      time.Duration
	PoolSize      int // connection pool ceiling
	BatchSize     int // sectors dispatched per batch
	CleanupEvery  int // batches between GC hints
}

// Fast requires a healthy proxy pool; a single IP at this pace gets blocked
// within minutes.
var Fast = Profile{
	Name:          "fast",
	Description:   "fast - requires proxies",
	MaxConcurrent: 90,
	DelayMin:      50 * time.Millisecond,
	DelayMax:      150 * time.Millisecond,
	PoolSize:      150,
	BatchSize:     50,
	CleanupEvery:  20,
}

// Medium suits a handful of proxies or limited testing.
var Medium = Profile{
	Name:          "medium",
	Description:   "medium - limited or no proxies",
	MaxConcurrent: 10,
	DelayMin:      1 * time.Second,
	DelayMax:      3 * time.Second,
	PoolSize:      50,
	BatchSize:     20,
	CleanupEvery:  10,
}

// Slow runs proxyless with long delays, safe from blocking.
var Slow = Profile{
	Name:          "slow",
	Description:   "slow - no proxies, safe from blocking",
	MaxConcurrent: 3,
	DelayMin:      2 * time.Second,
	DelayMax:      5 * time.Second,
	PoolSize:      20,
	BatchSize:     10,
	CleanupEvery:  5,
}

// AutoDetect picks a profile from the usable proxy count: 50+ proxies run
// fast, 5+ medium, anything less slow.
func AutoDetect(proxyCount int) Profile {
	switch {
	case proxyCount >= 50:
		return Fast
	case proxyCount >= 5:
		return Medium
	default:
		return Slow
	}
}

// SelectProfile resolves a mode string, using AutoDetect for "auto".
func SelectProfile(mode string, proxyCount int) (Profile, error) {
	switch mode {
	case "auto", "":
		return AutoDetect(proxyCount), nil
	case "fast":
		return Fast, nil
	case "medium":
		return Medium, nil
	case "slow":
		return Slow, nil
	default:
		return Profile{}, eris.Errorf("config: unknown mode %q (want auto, fast, medium or slow)", mode)
	}
}
