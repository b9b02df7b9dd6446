package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates the disabled tracer is usable and shuts down cleanly.
// Scope: Unit Test
// Expected: Spans can be started; Shutdown returns nil without a provider.
// Test Case ID: TRC-01
func TestTracer_Disabled(t *testing.T) {
	tr, err := New(context.Background(), Config{Enabled: false, ServiceName: "storeadmin"})
	require.NoError(t, err)

	ctx, span := tr.Start(context.Background(), "authz.Check")
	assert.NotNil(t, ctx)
	span.End()

	assert.NotNil(t, tr.GetTracer())
	assert.NoError(t, tr.Shutdown(context.Background()))
}
