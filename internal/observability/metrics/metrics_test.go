package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("reason", "invalid_amount"),
		attribute.String("loan_id", "LN-1"),
		attribute.String("discrepancy_type", "OPENING_POS_MISMATCH"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("reason"))
	assert.Contains(t, keys, attribute.Key("discrepancy_type"))
	assert.NotContains(t, keys, attribute.Key("loan_id"))
}

func TestNewWithDisabledProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRowsIngested(ctx, "inserted", 3)
	m.RecordRowRejected(ctx, "missing_loan_id")
	m.RecordDuplicateHealed(ctx, 1)
	m.RecordCalculated(ctx, "calculated")
	m.RecordDiscrepancy(ctx, "NO_BASELINE")
	m.RecordHTTPRequest(ctx, "post", "/api/v1/cycles/:year/:month/lms", 200)
	m.RecordBatchDuration(ctx, "calculate", "complete", 3*time.Second)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRowsIngested(context.Background(), "inserted", 1)
		m.RecordDiscrepancy(context.Background(), "NO_BASELINE")
	})
}
