package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsLoanData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/v1/cycles/:year/:month/lms"),
		attribute.String("loan_id", "LN-1"),
		attribute.String("opening_pos", "50000"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorTruncates(t *testing.T) {
	assert.Nil(t, SafeError(nil))

	err := SafeError(errors.New("first line\nsecond line"))
	assert.EqualError(t, err, "first line")

	long := SafeError(errors.New(strings.Repeat("x", 400)))
	assert.Len(t, long.Error(), 256)
}

func TestNewProviderWithoutExport(t *testing.T) {
	tp, err := NewProvider(nil, Config{ServiceName: "partnerpayout", SamplingRatio: 1}, zap.NewNop())
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}
