// Package proxy manages the outbound relay pool: loading endpoint lists,
// round-robin rotation with sticky failure exclusion, and acquisition of
// free proxy lists for testing.
package proxy

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Rotator hands out proxy endpoints round-robin, skipping endpoints marked
// failed. A failed endpoint stays excluded for the rest of the run. All
// methods are safe for concurrent use.
type Rotator struct {
	mu      sync.Mutex
	proxies []string
	current int
	failed  map[string]bool
}

// NewRotator creates a rotator over the given endpoints. An empty or nil
// list is valid: Next then always reports no proxy available.
func NewRotator(proxies []string) *Rotator {
	return &Rotator{
		proxies: proxies,
		failed:  make(map[string]bool),
	}
}

// Next returns the next usable endpoint. ok is false when the list is empty
// or every endpoint has failed.
func (r *Rotator) Next() (proxy string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return "", false
	}

	for attempts := 0; attempts < len(r.proxies); attempts++ {
		p := r.proxies[r.current%len(r.proxies)]
		r.current++
		if !r.failed[p] {
			return p, true
		}
	}
	return "", false
}

// MarkFailed permanently excludes an endpoint from rotation for this run.
func (r *Rotator) MarkFailed(proxy string) {
	if proxy == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed[proxy] {
		return
	}
	r.failed[proxy] = true
	zap.L().Warn("proxy marked failed", zap.String("proxy", proxy))
}

// Len returns the total number of known endpoints, failed ones included.
func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// Usable returns how many endpoints are still in rotation.
func (r *Rotator) Usable() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.proxies {
		if !r.failed[p] {
			n++
		}
	}
	return n
}

// URL normalizes an endpoint to a proxy URL, defaulting the scheme to
// http:// when the entry is a bare host:port.
func URL(proxy string) string {
	if proxy == "" {
		return ""
	}
	if strings.HasPrefix(proxy, "http://") || strings.HasPrefix(proxy, "https://") || strings.HasPrefix(proxy, "socks5://") {
		return proxy
	}
	return "http://" + proxy
}
