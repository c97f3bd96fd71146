package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (string, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

func TestOutcomeAttributes(t *testing.T) {
	attrs := OutcomeAttributes(OutcomeFailure)
	got, ok := attrValue(attrs, AttrOutcome)
	if !ok || got != "failure" {
		t.Fatalf("expected outcome=failure, got %q (present=%v)", got, ok)
	}
}

func TestPoolAttributes(t *testing.T) {
	attrs := PoolAttributes("prod", "primary")
	if env, _ := attrValue(attrs, AttrEnvironment); env != "prod" {
		t.Fatalf("expected environment=prod, got %q", env)
	}
	if name, _ := attrValue(attrs, AttrPoolName); name != "primary" {
		t.Fatalf("expected pool.name=primary, got %q", name)
	}
}

func TestMigrationAttributes(t *testing.T) {
	attrs := MigrationAttributes("applied", "up")
	if result, _ := attrValue(attrs, AttrResult); result != "applied" {
		t.Fatalf("expected result=applied, got %q", result)
	}
	if direction, _ := attrValue(attrs, AttrDirection); direction != "up" {
		t.Fatalf("expected direction=up, got %q", direction)
	}
}
