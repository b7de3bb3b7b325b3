package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordsWritesAndConnectivity(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.FieldWritten("members", "update")
	m.FieldWritten("members", "update")
	m.FieldWritten("schedule", "merge-create")
	m.SetConnectivity("syncing", "offline", "syncing", "online")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fieldWrites.WithLabelValues("members", "update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fieldWrites.WithLabelValues("schedule", "merge-create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectivity.WithLabelValues("syncing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connectivity.WithLabelValues("online")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FieldWritten("members", "update")
		m.FieldWriteFailed("members")
		m.SubscriptionOpened()
		m.SubscriptionClosed()
		m.AvatarUploaded(true)
		m.CacheFallback()
		m.SetConnectivity("online", "online")
	})
}
