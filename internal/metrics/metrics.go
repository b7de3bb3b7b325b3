// Package metrics holds the Prometheus collectors of the sync server.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors registered for one server instance.
type Metrics struct {
	fieldWrites       *prometheus.CounterVec
	fieldWriteErrors  *prometheus.CounterVec
	subscriptions     prometheus.Gauge
	avatarUploads     *prometheus.CounterVec
	connectivity      *prometheus.GaugeVec
	cacheFallbackHits prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fieldWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nordictrip",
			Name:      "field_writes_total",
			Help:      "Successful trip field writes by field and write path (update or merge-create).",
		}, []string{"field", "path"}),
		fieldWriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nordictrip",
			Name:      "field_write_errors_total",
			Help:      "Failed trip field writes by field.",
		}, []string{"field"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nordictrip",
			Name:      "field_subscriptions",
			Help:      "Open field subscriptions.",
		}),
		avatarUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nordictrip",
			Name:      "avatar_uploads_total",
			Help:      "Avatar uploads by result.",
		}, []string{"result"}),
		connectivity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nordictrip",
			Name:      "connectivity_status",
			Help:      "1 for the current connectivity status, 0 for the others.",
		}, []string{"status"}),
		cacheFallbackHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nordictrip",
			Name:      "cache_fallback_reads_total",
			Help:      "Field reads served from the local cache because the store was unreachable.",
		}),
	}
	reg.MustRegister(
		m.fieldWrites,
		m.fieldWriteErrors,
		m.subscriptions,
		m.avatarUploads,
		m.connectivity,
		m.cacheFallbackHits,
	)
	return m
}

func (m *Metrics) FieldWritten(field, path string) {
	if m == nil {
		return
	}
	m.fieldWrites.WithLabelValues(field, path).Inc()
}

func (m *Metrics) FieldWriteFailed(field string) {
	if m == nil {
		return
	}
	m.fieldWriteErrors.WithLabelValues(field).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

func (m *Metrics) AvatarUploaded(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.avatarUploads.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheFallback() {
	if m == nil {
		return
	}
	m.cacheFallbackHits.Inc()
}

// SetConnectivity marks current as the active status among all.
func (m *Metrics) SetConnectivity(current string, all ...string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		m.connectivity.WithLabelValues(s).Set(v)
	}
}
