package proxy

import (
	"context"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Free proxy list endpoints. Free proxies are slow and unreliable; they
// exist for smoke-testing the rotation path, not for production runs.
var freeListSources = []string{
	"https://www.proxy-list.download/api/v1/get?type=http&anon=elite",
	"https://www.free-proxy-list.net/",
}

var hostPortRe = regexp.MustCompile(`\d+\.\d+\.\d+\.\d+:\d+`)

// maxPerSource caps how many endpoints one source may contribute.
const maxPerSource = 50

// FetchFree downloads the free proxy lists, extracts host:port entries and
// writes the deduplicated, sorted set to path. Individual source failures
// are logged and skipped; an error is returned only when nothing could be
// written.
func FetchFree(ctx context.Context, path string) (int, error) {
	log := zap.L().With(zap.String("component", "proxy.freelist"))
	client := &http.Client{Timeout: 10 * time.Second}

	seen := make(map[string]bool)
	for _, src := range freeListSources {
		entries, err := fetchSource(ctx, client, src)
		if err != nil {
			log.Warn("free proxy source failed", zap.String("source", src), zap.Error(err))
			continue
		}
		added := 0
		for _, e := range entries {
			if added >= maxPerSource {
				break
			}
			if !seen[e] {
				seen[e] = true
				added++
			}
		}
		log.Info("fetched proxy source", zap.String("source", src), zap.Int("total", len(seen)))
	}

	if len(seen) == 0 {
		return 0, eris.New("proxy: no proxies found from any source")
	}

	proxies := make([]string, 0, len(seen))
	for p := range seen {
		proxies = append(proxies, "http://"+p)
	}
	sort.Strings(proxies)

	if err := os.WriteFile(path, []byte(strings.Join(proxies, "\n")+"\n"), 0o644); err != nil {
		return 0, eris.Wrapf(err, "proxy: write %s", path)
	}
	log.Info("saved proxy list", zap.Int("count", len(proxies)), zap.String("path", path))
	return len(proxies), nil
}

func fetchSource(ctx context.Context, client *http.Client, rawURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	return hostPortRe.FindAllString(string(body), -1), nil
}
