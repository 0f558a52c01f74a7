package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("transition", "confirm"),
		attribute.String("statement_id", "456"),
		attribute.String("direction", "outbound"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "transition" && attrs[1].Key != "transition" {
		t.Fatalf("expected transition to be retained")
	}
	if attrs[0].Key != "direction" && attrs[1].Key != "direction" {
		t.Fatalf("expected direction to be retained")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordTransition(context.Background(), "approve", "approved")
	m.RecordAccrual(context.Background(), -3)

	noop := NewNoop()
	if noop == nil {
		t.Fatalf("expected noop metrics")
	}
	noop.RecordAccrual(context.Background(), -3)
	noop.RecordPayment(context.Background(), "inbound")
}
