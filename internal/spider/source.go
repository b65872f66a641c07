package spider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/jrr00064/mapharvest/internal/extract"
	"github.com/jrr00064/mapharvest/internal/grid"
)

// Source is one upstream map-data provider: it builds the request for a
// sector and turns the raw payload into records.
type Source interface {
	Name() string
	// UsesProxy reports whether requests should go through the rotator.
	UsesProxy() bool
	// Throttle blocks until the source's own pacing allows a request.
	Throttle(ctx context.Context) error
	NewRequest(ctx context.Context, sector grid.Sector, query string) (*http.Request, error)
	Parse(body []byte, sector grid.Sector) []extract.Record
}

// Small fixed pools for request randomization. Rotating these alongside the
// proxies keeps fingerprints from repeating.
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	}
	acceptLanguages = []string{"es-ES", "en-US", "en-GB"}
)

// GmapsSource harvests the map search endpoint. Two equivalent hosts are
// rotated at random.
type GmapsSource struct {
	Hosts []string
	Walk  extract.WalkOptions
}

// NewGmapsSource returns the source with the default host pair.
func NewGmapsSource() *GmapsSource {
	return &GmapsSource{
		Hosts: []string{"https://www.google.com/search", "https://www.google.es/search"},
	}
}

func (g *GmapsSource) Name() string                   { return "gmaps" }
func (g *GmapsSource) UsesProxy() bool                { return true }
func (g *GmapsSource) Throttle(context.Context) error { return nil }

func (g *GmapsSource) NewRequest(ctx context.Context, sector grid.Sector, query string) (*http.Request, error) {
	host := g.Hosts[rand.IntN(len(g.Hosts))]
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	rawURL := fmt.Sprintf("%s?tbm=map&tch=1&q=%s%%20@%f,%f&hl=es", host, escaped, sector.Lat, sector.Lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gmaps: create request")
	}
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguages[rand.IntN(len(acceptLanguages))])
	return req, nil
}

func (g *GmapsSource) Parse(body []byte, _ grid.Sector) []extract.Record {
	return extract.FromHTML(string(body), g.Walk)
}

// OSMSource harvests the Overpass API. Overpass does not block, so no
// proxies; a fixed limiter keeps the polite-usage pace instead.
type OSMSource struct {
	URL     string
	RadiusM int
	limiter *rate.Limiter
}

// NewOSMSource returns the source with the public Overpass endpoint and a
// 2km search radius, paced at two requests per second.
func NewOSMSource() *OSMSource {
	return &OSMSource{
		URL:     "https://overpass-api.de/api/interpreter",
		RadiusM: 2000,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

func (o *OSMSource) Name() string    { return "osm" }
func (o *OSMSource) UsesProxy() bool { return false }

func (o *OSMSource) Throttle(ctx context.Context) error {
	return o.limiter.Wait(ctx)
}

func (o *OSMSource) NewRequest(ctx context.Context, sector grid.Sector, _ string) (*http.Request, error) {
	q := fmt.Sprintf(`[out:json][timeout:25];
(
  node["name"]["amenity"](around:%d,%f,%f);
  way["name"]["amenity"](around:%d,%f,%f);
  node["name"]["shop"](around:%d,%f,%f);
  way["name"]["shop"](around:%d,%f,%f);
);
out body;`,
		o.RadiusM, sector.Lat, sector.Lng,
		o.RadiusM, sector.Lat, sector.Lng,
		o.RadiusM, sector.Lat, sector.Lng,
		o.RadiusM, sector.Lat, sector.Lng,
	)

	form := url.Values{"data": {q}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "osm: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (o *OSMSource) Parse(body []byte, sector grid.Sector) []extract.Record {
	return extract.FromOverpass(body, sector.Lat, sector.Lng)
}

// BuildSources maps source names to implementations. Unknown names are a
// configuration error.
func BuildSources(names []string) ([]Source, error) {
	var sources []Source
	for _, name := range names {
		switch name {
		case "gmaps":
			sources = append(sources, NewGmapsSource())
		case "osm":
			sources = append(sources, NewOSMSource())
		default:
			return nil, eris.Errorf("spider: unknown source %q (want gmaps or osm)", name)
		}
	}
	if len(sources) == 0 {
		return nil, eris.New("spider: at least one source required")
	}
	return sources, nil
}
