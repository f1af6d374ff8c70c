// Package metrics defines the Prometheus counters and gauges tgrelay
// exposes at /metrics. It has no HTTP surface of its own — admin.Server
// mounts promhttp.Handler(), which serves Prometheus's default registry,
// the one the daemon creates these against.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters and gauges the dispatcher and session
// packages update as they work.
type Metrics struct {
	sessionsActive   prometheus.Gauge
	sessionsSpawned  prometheus.Counter
	updatesRouted    prometheus.Counter
	updatesRejected  prometheus.Counter
	handlerExits     *prometheus.CounterVec
	downloadFailures prometheus.Counter
}

// New registers the tgrelay metric family against reg and returns a
// handle for recording them. Pass prometheus.DefaultRegisterer unless a
// test needs an isolated registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tgrelay",
			Name:      "sessions_active",
			Help:      "Number of chats with a running child process.",
		}),
		sessionsSpawned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tgrelay",
			Name:      "sessions_spawned_total",
			Help:      "Total number of child processes spawned.",
		}),
		updatesRouted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tgrelay",
			Name:      "updates_routed_total",
			Help:      "Total number of inbound updates routed to a session.",
		}),
		updatesRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tgrelay",
			Name:      "updates_rejected_total",
			Help:      "Total number of updates rejected by the chat allow-list.",
		}),
		handlerExits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgrelay",
			Name:      "handler_exits_total",
			Help:      "Total number of child process exits, by outcome.",
		}, []string{"outcome"}),
		downloadFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tgrelay",
			Name:      "download_failures_total",
			Help:      "Total number of failed Telegram file downloads.",
		}),
	}
}

// SessionSpawned records the creation of a new session.
func (m *Metrics) SessionSpawned() {
	if m == nil {
		return
	}
	m.sessionsSpawned.Inc()
	m.sessionsActive.Inc()
}

// SessionEnded records a session's removal, with the outcome its child
// exited with ("clean", "crash", "killed").
func (m *Metrics) SessionEnded(outcome string) {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
	m.handlerExits.WithLabelValues(outcome).Inc()
}

// UpdateRouted records an update that reached a session.
func (m *Metrics) UpdateRouted() {
	if m == nil {
		return
	}
	m.updatesRouted.Inc()
}

// UpdateRejected records an update dropped by the allow-list.
func (m *Metrics) UpdateRejected() {
	if m == nil {
		return
	}
	m.updatesRejected.Inc()
}

// DownloadFailed records a failed file download.
func (m *Metrics) DownloadFailed() {
	if m == nil {
		return
	}
	m.downloadFailures.Inc()
}
