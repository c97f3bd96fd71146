// Package telemetry provides semantic conventions for tariff pipeline observability.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic convention attribute keys for pipeline-specific telemetry.
// Following OpenTelemetry naming conventions: namespace.attribute_name

const (
	// AttrEnvironment specifies the deployment environment (dev/staging/prod) for every metric.
	AttrEnvironment = attribute.Key("environment")
	// AttrOutcome records the success/failure classification of an operation.
	AttrOutcome = attribute.Key("outcome")
	// AttrJob labels metrics with the job kind that produced them (fetch, publish).
	AttrJob = attribute.Key("job")
	// AttrSink identifies the spreadsheet destination a publish metric refers to.
	AttrSink = attribute.Key("sink")
	// AttrDirection indicates whether a migration ran up or down.
	AttrDirection = attribute.Key("direction")
	// AttrResult categorizes migration runs (applied, noop, failed).
	AttrResult = attribute.Key("result")
	// AttrPoolName labels connection pool gauges by logical pool.
	AttrPoolName = attribute.Key("pool.name")
)

// Outcome values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// OutcomeAttributes returns the attribute set for a binary-outcome counter.
func OutcomeAttributes(outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{AttrOutcome.String(outcome)}
}

// PoolAttributes returns common attributes for connection pool gauges.
func PoolAttributes(environment, poolName string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(environment),
		AttrPoolName.String(poolName),
	}
}

// MigrationAttributes returns attributes for migration run counters.
func MigrationAttributes(result, direction string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrResult.String(result),
		AttrDirection.String(direction),
	}
}
