// internal/metrics/metrics.go - Prometheus metrics for tile rendering
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tile_to_png"

// Provider owns a private registry and the renderer's collectors. A nil *Provider is
// valid and records nothing.
type Provider struct {
	reg *prometheus.Registry

	shapes         *prometheus.CounterVec
	dropped        prometheus.Counter
	tiles          *prometheus.CounterVec
	renderDuration prometheus.Histogram
	cache          *prometheus.CounterVec
	requests       *prometheus.CounterVec
}

// NewProvider creates a provider with Go runtime and process collectors registered
func NewProvider(version string) *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build info for this binary (value is always 1).",
	}, []string{"version"})
	if version == "" {
		version = "dev"
	}
	build.WithLabelValues(version).Set(1)

	p := &Provider{
		reg: reg,
		shapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shapes_classified_total",
			Help:      "Shapes produced by the classifier, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_dropped_total",
			Help:      "Features that matched no classification rule.",
		}),
		tiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_total",
			Help:      "Tiles processed, by outcome.",
		}, []string{"status"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time from decoded tile to finished raster.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Rendered tile cache lookups, by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Tile server responses, by status code.",
		}, []string{"code"}),
	}
	reg.MustRegister(build, p.shapes, p.dropped, p.tiles, p.renderDuration, p.cache, p.requests)
	return p
}

// Handler serves the registry in the Prometheus exposition format
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Registry returns the private registry
func (p *Provider) Registry() *prometheus.Registry { return p.reg }

// ObserveTile records the outcome of one successfully processed tile
func (p *Provider) ObserveTile(kinds map[string]int, dropped int, elapsed time.Duration) {
	if p == nil {
		return
	}
	for kind, n := range kinds {
		p.shapes.WithLabelValues(kind).Add(float64(n))
	}
	p.dropped.Add(float64(dropped))
	p.renderDuration.Observe(elapsed.Seconds())
	p.tiles.WithLabelValues("ok").Inc()
}

// TileFailed records a tile that could not be processed
func (p *Provider) TileFailed(code string) {
	if p == nil {
		return
	}
	if code == "" {
		code = "error"
	}
	p.tiles.WithLabelValues(code).Inc()
}

// CacheLookup records a cache hit or miss
func (p *Provider) CacheLookup(hit bool) {
	if p == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

// ObserveRequest records an HTTP response status
func (p *Provider) ObserveRequest(code string) {
	if p == nil {
		return
	}
	p.requests.WithLabelValues(code).Inc()
}
