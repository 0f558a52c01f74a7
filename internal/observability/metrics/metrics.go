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

// Metrics exposes application-level instruments.
type Metrics struct {
	transitions     metric.Int64Counter
	postingFailures metric.Int64Counter
	ledgerEntries   metric.Int64Counter
	payments        metric.Int64Counter
	accruals        metric.Float64Counter
	jobRuns         metric.Int64Counter
	drifts          metric.Int64Counter
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

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "sitebill"
	}
	meter := provider.Meter(name)

	transitions, err := meter.Int64Counter("sitebill_statement_transitions_total")
	if err != nil {
		return nil, err
	}
	postingFailures, err := meter.Int64Counter("sitebill_posting_failures_total")
	if err != nil {
		return nil, err
	}
	ledgerEntries, err := meter.Int64Counter("sitebill_ledger_entries_total")
	if err != nil {
		return nil, err
	}
	payments, err := meter.Int64Counter("sitebill_payments_total")
	if err != nil {
		return nil, err
	}
	accruals, err := meter.Float64Counter("sitebill_quantity_accruals_total")
	if err != nil {
		return nil, err
	}

	jobRuns, err := meter.Int64Counter("sitebill_scheduler_job_runs_total")
	if err != nil {
		return nil, err
	}
	drifts, err := meter.Int64Counter("sitebill_quantity_drift_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		jobRuns:         jobRuns,
		drifts:          drifts,
		transitions:     transitions,
		postingFailures: postingFailures,
		ledgerEntries:   ledgerEntries,
		payments:        payments,
		accruals:        accruals,
	}, nil
}

// NewNoop returns instruments bound to a noop provider, for tests.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordTransition counts a statement lifecycle transition.
func (m *Metrics) RecordTransition(ctx context.Context, transition, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("transition", strings.TrimSpace(transition)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPostingFailure counts approvals that failed to build or post an entry.
func (m *Metrics) RecordPostingFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.postingFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLedgerEntry increments ledger entry counts.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, sourceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", strings.TrimSpace(sourceType)))
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayment counts posted payments by direction.
func (m *Metrics) RecordPayment(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("direction", strings.TrimSpace(direction)))
	m.payments.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAccrual adds the absolute accrued quantity, split by sign.
func (m *Metrics) RecordAccrual(ctx context.Context, delta float64) {
	if m == nil || delta == 0 {
		return
	}
	sign := "increase"
	if delta < 0 {
		sign = "reversal"
		delta = -delta
	}
	attrs := FilterAttributes(attribute.String("event_type", sign))
	m.accruals.Add(ctx, delta, metric.WithAttributes(attrs...))
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

var allowedLabelKeys = map[attribute.Key]struct{}{
	"transition":  {},
	"status":      {},
	"status_code": {},
	"endpoint":    {},
	"direction":   {},
	"event_type":  {},
	"source_type": {},
	"reason":      {},
	"job":         {},
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

// RecordJobRun counts scheduler job executions by outcome.
func (m *Metrics) RecordJobRun(ctx context.Context, job, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("job", strings.TrimSpace(job)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.jobRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordQuantityDrift counts ledger keys found out of sync with billed lines.
func (m *Metrics) RecordQuantityDrift(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.drifts.Add(ctx, int64(count))
}
