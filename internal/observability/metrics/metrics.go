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
	sessionsCreated        metric.Int64Counter
	sessionsExtended       metric.Int64Counter
	sessionsClosed         metric.Int64Counter
	paymentRejections      metric.Int64Counter
	dependentWriteFailures metric.Int64Counter
	jobRuns                metric.Int64Counter
	jobDuration            metric.Float64Histogram
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
		name = "gglounge"
	}
	meter := provider.Meter(name)

	sessionsCreated, err := meter.Int64Counter("gglounge_sessions_created_total")
	if err != nil {
		return nil, err
	}
	sessionsExtended, err := meter.Int64Counter("gglounge_sessions_extended_total")
	if err != nil {
		return nil, err
	}
	sessionsClosed, err := meter.Int64Counter("gglounge_sessions_closed_total")
	if err != nil {
		return nil, err
	}
	paymentRejections, err := meter.Int64Counter("gglounge_payment_rejections_total")
	if err != nil {
		return nil, err
	}
	dependentWriteFailures, err := meter.Int64Counter("gglounge_dependent_write_failures_total")
	if err != nil {
		return nil, err
	}

	jobRuns, err := meter.Int64Counter("gglounge_scheduler_job_runs_total")
	if err != nil {
		return nil, err
	}
	jobDuration, err := meter.Float64Histogram("gglounge_scheduler_job_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		sessionsCreated:        sessionsCreated,
		sessionsExtended:       sessionsExtended,
		sessionsClosed:         sessionsClosed,
		paymentRejections:      paymentRejections,
		dependentWriteFailures: dependentWriteFailures,
		jobRuns:                jobRuns,
		jobDuration:            jobDuration,
	}, nil
}

// RecordSessionCreated increments session creation counts.
func (m *Metrics) RecordSessionCreated(ctx context.Context, branchID, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("branch_id", strings.TrimSpace(branchID)),
		attribute.String("session_kind", strings.TrimSpace(kind)),
	)
	m.sessionsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSessionExtended increments session extension counts.
func (m *Metrics) RecordSessionExtended(ctx context.Context, branchID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("branch_id", strings.TrimSpace(branchID)))
	m.sessionsExtended.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSessionClosed increments session close counts.
func (m *Metrics) RecordSessionClosed(ctx context.Context, branchID, paymentMode, discountType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("branch_id", strings.TrimSpace(branchID)),
		attribute.String("payment_mode", strings.TrimSpace(paymentMode)),
		attribute.String("discount_type", strings.TrimSpace(discountType)),
	)
	m.sessionsClosed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPaymentRejected increments rejected close attempts.
func (m *Metrics) RecordPaymentRejected(ctx context.Context, paymentMode, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("payment_mode", strings.TrimSpace(paymentMode)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.paymentRejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDependentWriteFailure increments failed secondary bookkeeping steps.
func (m *Metrics) RecordDependentWriteFailure(ctx context.Context, step string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("step", strings.TrimSpace(step)))
	m.dependentWriteFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordJobRun counts one background job run by outcome (ok, error, timeout, skipped).
func (m *Metrics) RecordJobRun(ctx context.Context, job, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("job", strings.TrimSpace(job)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.jobRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.jobDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		FilterAttributes(attribute.String("job", strings.TrimSpace(job)))...,
	))
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
	"branch_id":     {},
	"session_kind":  {},
	"payment_mode":  {},
	"discount_type": {},
	"status_code":   {},
	"step":          {},
	"reason":        {},
	"job":           {},
	"outcome":       {},
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
