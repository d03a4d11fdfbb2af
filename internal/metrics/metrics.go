// Package metrics exposes the read-only Prometheus surface SPEC_FULL.md
// §4.13 names: active WebSocket connections, round throughput,
// broadcast-send failures, persistence save latency, and media-player
// call failures by platform. Nothing in this package scrapes or pushes
// anything itself — internal/httpapi mounts the registry's handler at
// `GET /beatify/metrics` and an external scraper does the rest.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the game core reports against. It is
// constructed once in Bootstrap and passed by reference to the
// components that feed it (internal/ws, internal/game, internal/stats,
// internal/analytics, internal/mediaplayer) — each of those only ever
// calls a narrow method here, never touches the registry directly.
type Metrics struct {
	reg *prometheus.Registry

	connections       prometheus.Gauge
	roundsStarted     prometheus.Counter
	roundsCompleted   prometheus.Counter
	broadcastFailures prometheus.Counter
	saveLatency       *prometheus.HistogramVec
	mediaFailures     *prometheus.CounterVec
}

// New registers every collector against a fresh registry. A fresh
// registry (rather than prometheus.DefaultRegisterer) keeps repeated
// test construction from panicking on duplicate registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		connections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "beatify",
			Name:      "ws_connections",
			Help:      "Number of currently connected WebSocket clients.",
		}),
		roundsStarted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "beatify",
			Name:      "rounds_started_total",
			Help:      "Total rounds started across all games.",
		}),
		roundsCompleted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "beatify",
			Name:      "rounds_completed_total",
			Help:      "Total rounds that reached reveal.",
		}),
		broadcastFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "beatify",
			Name:      "ws_broadcast_failures_total",
			Help:      "Outbound WS sends dropped because a client's send buffer was full.",
		}),
		saveLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "beatify",
			Name:      "persistence_save_seconds",
			Help:      "Latency of analytics/stats file saves.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store"}),
		mediaFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "beatify",
			Name:      "media_player_failures_total",
			Help:      "Media player backend call failures by platform.",
		}, []string{"platform"}),
	}
	return m
}

// Registry exposes the underlying registry so internal/httpapi can
// mount promhttp.HandlerFor without this package importing net/http.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) ConnectionOpened() { m.connections.Inc() }
func (m *Metrics) ConnectionClosed() { m.connections.Dec() }

func (m *Metrics) RoundStarted()   { m.roundsStarted.Inc() }
func (m *Metrics) RoundCompleted() { m.roundsCompleted.Inc() }

func (m *Metrics) BroadcastFailed() { m.broadcastFailures.Inc() }

// ObserveSaveLatency records how long one analytics or stats write
// took; store is "analytics" or "stats".
func (m *Metrics) ObserveSaveLatency(store string, seconds float64) {
	m.saveLatency.WithLabelValues(store).Observe(seconds)
}

// MediaPlayerFailed records a backend call failure for platform
// ("music_assistant", "sonos", "alexa_media").
func (m *Metrics) MediaPlayerFailed(platform string) {
	m.mediaFailures.WithLabelValues(platform).Inc()
}
