// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "remixexp"

// Registry collects every metric below and backs Handler.
var Registry = prometheus.NewRegistry()

var (
	// HTTPRequestsTotal counts finished requests by route pattern and status code.
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests served",
	}, []string{"route", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"route"})

	// RangeRequestsTotal counts content reads by kind: full, partial, unsatisfiable.
	RangeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "content",
		Name:      "range_requests_total",
		Help:      "Content requests by range kind",
	}, []string{"kind"})

	BytesServedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "content",
		Name:      "bytes_served_total",
		Help:      "Body bytes written by the content handler",
	})

	// ProxyRequestsTotal counts /audio upstream results by status code or "error".
	ProxyRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "proxy",
		Name:      "requests_total",
		Help:      "Upstream fetches made by the audio proxy",
	}, []string{"result"})

	// PlaylistResolutionsTotal counts playlists served by source: manifest, banks, auto.
	PlaylistResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "playlist",
		Name:      "resolutions_total",
		Help:      "Playlist resolutions by source",
	}, []string{"source"})

	// PairsTotal counts automatically produced pairs by matching phase.
	PairsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "playlist",
		Name:      "pairs_total",
		Help:      "Pairs produced by the pairing engine by phase",
	}, []string{"phase"})

	ManifestCommitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "playlist",
		Name:      "manifest_commits_total",
		Help:      "Manifest generate calls by outcome",
	}, []string{"outcome"}) // outcome: "written", "preview", "error"
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RangeRequestsTotal,
		BytesServedTotal,
		ProxyRequestsTotal,
		PlaylistResolutionsTotal,
		PairsTotal,
		ManifestCommitsTotal,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(route string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
