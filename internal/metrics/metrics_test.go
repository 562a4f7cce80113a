package metrics_test

import (
	"testing"

	"github.com/UnknownOlympus/rdgeo/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	m.TaskProcessed.WithLabelValues("success").Inc()
	m.APIErrors.Inc()
	m.HTTPRequests.WithLabelValues("/healthz", "200").Add(2)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.TaskProcessed.WithLabelValues("success")), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/healthz", "200")), 0)

	count, err := testutil.GatherAndCount(reg, "rdgeo_geocoding_provider_api_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewMetrics(reg)

	assert.Panics(t, func() { metrics.NewMetrics(reg) })
}
