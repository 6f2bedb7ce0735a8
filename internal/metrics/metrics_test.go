package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics_IsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordFetch("http://x", true, time.Millisecond)
		m.RecordAggregation(time.Millisecond)
		m.RecordDelivery(DeliveryDelivered)
		m.RecordSkippedTick()
		m.SubscriptionOpened()
		m.SubscriptionClosed()
		m.SetEndpointStatus("http://x", "up", []string{"up", "down"})
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RecordFetch("http://a", true, 10*time.Millisecond)
	m.RecordFetch("http://a", false, 10*time.Millisecond)
	m.RecordFetch("http://a", false, 10*time.Millisecond)
	m.RecordDelivery(DeliveryDelivered)
	m.RecordDelivery(DeliveryDiscarded)
	m.RecordSkippedTick()
	m.SubscriptionOpened()
	m.SubscriptionOpened()
	m.SubscriptionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("http://a", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetches.WithLabelValues("http://a", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(DeliveryDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues(DeliveryDiscarded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedTicks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscriptions))
}

func TestMetrics_SetEndpointStatus(t *testing.T) {
	m := New()
	known := []string{"up", "down", "degraded"}

	m.SetEndpointStatus("http://a", "up", known)
	m.SetEndpointStatus("http://a", "down", known)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.endpointStatus.WithLabelValues("http://a", "up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.endpointStatus.WithLabelValues("http://a", "down")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordAggregation(20 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "devops_monitor_aggregator_snapshots_total 1"))
}

func TestNewWithRegistry_SharesCallerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	var m *Metrics
	require.NotPanics(t, func() { m = NewWithRegistry(reg) })
	m.RecordSkippedTick()

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "devops_monitor_scheduler_skipped_ticks_total" {
			found = true
		}
	}
	assert.True(t, found, "monitor collectors should register into the caller's registry")
}
