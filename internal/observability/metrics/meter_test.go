package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// TestPurpose: Validates that instruments can be created with metrics disabled.
// Scope: Unit Test
// Expected: Counter and histogram creation succeed against the no-op meter; Shutdown is a no-op.
// Test Case ID: MET-01
func TestMeter_Disabled(t *testing.T) {
	m, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	c, err := m.CreateCounter("authz.checks", "checks")
	require.NoError(t, err)
	c.Add(context.Background(), 1)

	h, err := m.CreateHistogram("authz.check.duration", "latency", "ms")
	require.NoError(t, err)
	h.Record(context.Background(), 1.5)

	assert.NoError(t, m.Shutdown(context.Background()))
}

// TestPurpose: Validates that an enabled meter exports through the SDK provider.
// Scope: Unit Test
// Expected: A manual reader collects the counter and histogram recorded through the meter.
// Test Case ID: MET-02
func TestMeter_EnabledCollects(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()

	m, err := New(ctx, Config{Enabled: true, ServiceName: "storeadmin-test", Reader: reader})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	c, err := m.CreateCounter("authz.checks", "checks")
	require.NoError(t, err)
	c.Add(ctx, 2)

	h, err := m.CreateHistogram("authz.check.duration", "latency", "ms")
	require.NoError(t, err)
	h.Record(ctx, 0.25)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := make(map[string]metricdata.Aggregation)
	for _, md := range rm.ScopeMetrics[0].Metrics {
		names[md.Name] = md.Data
	}
	require.Contains(t, names, "authz.checks")
	require.Contains(t, names, "authz.check.duration")

	sum, ok := names["authz.checks"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}
