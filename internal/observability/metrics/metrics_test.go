package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("branch_id", "123"),
		attribute.String("customer_id", "456"),
		attribute.String("payment_mode", "Cash"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "branch_id" && attrs[1].Key != "branch_id" {
		t.Fatalf("expected branch_id to be retained")
	}
	if attrs[0].Key != "payment_mode" && attrs[1].Key != "payment_mode" {
		t.Fatalf("expected payment_mode to be retained")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordSessionCreated(context.Background(), "1", "standard")
	m.RecordDependentWriteFailure(context.Background(), "game.popularity")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "gglounge"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordSessionClosed(context.Background(), "1", "Cash", "percentage")
	m.RecordPaymentRejected(context.Background(), "Part-paid", "payment_mismatch")
}

func TestRecordJobRunOnNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordJobRun(context.Background(), "saga_sweep", "ok", 0)

	var nilMetrics *Metrics
	nilMetrics.RecordJobRun(context.Background(), "saga_sweep", "skipped", 0)
}
