package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes payout pipeline instruments.
type Metrics struct {
	rowsIngested      metric.Int64Counter
	rowsRejected      metric.Int64Counter
	duplicatesHealed  metric.Int64Counter
	recordsCalculated metric.Int64Counter
	discrepancies     metric.Int64Counter
	httpRequests      metric.Int64Counter
	batchDuration     metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the payout instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "partnerpayout"
	}
	meter := provider.Meter(name)

	rowsIngested, err := meter.Int64Counter("payout_rows_ingested_total")
	if err != nil {
		return nil, err
	}
	rowsRejected, err := meter.Int64Counter("payout_rows_rejected_total")
	if err != nil {
		return nil, err
	}
	duplicatesHealed, err := meter.Int64Counter("payout_duplicates_healed_total")
	if err != nil {
		return nil, err
	}
	recordsCalculated, err := meter.Int64Counter("payout_records_calculated_total")
	if err != nil {
		return nil, err
	}
	discrepancies, err := meter.Int64Counter("payout_discrepancies_total")
	if err != nil {
		return nil, err
	}
	httpRequests, err := meter.Int64Counter("payout_http_requests_total")
	if err != nil {
		return nil, err
	}
	batchDuration, err := meter.Float64Histogram("payout_batch_duration_seconds",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.25, 1, 5, 15, 60, 300),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		rowsIngested:      rowsIngested,
		rowsRejected:      rowsRejected,
		duplicatesHealed:  duplicatesHealed,
		recordsCalculated: recordsCalculated,
		discrepancies:     discrepancies,
		httpRequests:      httpRequests,
		batchDuration:     batchDuration,
	}, nil
}

// RecordRowsIngested counts rows persisted by an ingest batch.
func (m *Metrics) RecordRowsIngested(ctx context.Context, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.rowsIngested.Add(ctx, int64(n), metric.WithAttributes(attrs...))
}

// RecordRowRejected counts a row rejected during ingest.
func (m *Metrics) RecordRowRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.rowsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDuplicateHealed counts duplicate records removed while upserting.
func (m *Metrics) RecordDuplicateHealed(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicatesHealed.Add(ctx, int64(n))
}

func (m *Metrics) RecordCalculated(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.recordsCalculated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordDiscrepancy(ctx context.Context, discrepancyType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("discrepancy_type", strings.TrimSpace(discrepancyType)))
	m.discrepancies.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBatchDuration observes one ingest or calculate pass. Feeds of a few
// hundred thousand loans take minutes, hence the wide buckets.
func (m *Metrics) RecordBatchDuration(ctx context.Context, stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("stage", strings.TrimSpace(stage)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.batchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// RecordHTTPRequest counts a served request by route and status.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("method", strings.ToUpper(strings.TrimSpace(method))),
		attribute.String("endpoint", strings.TrimSpace(route)),
		attribute.Int("status_code", statusCode),
	)
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Loan, deal and request identifiers must never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":          {},
	"stage":            {},
	"reason":           {},
	"discrepancy_type": {},
	"feed_type":        {},
	"method":           {},
	"endpoint":         {},
	"status_code":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
