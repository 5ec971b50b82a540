// Package telemetry observes the statements a store executes.
package telemetry

import (
	"context"
	"strings"
	"time"
)

// Recorder receives one QueryInfo per executed statement.
type Recorder interface {
	// RecordQuery records a statement execution.
	RecordQuery(ctx context.Context, info QueryInfo)
}

// QueryInfo contains information about one executed statement.
type QueryInfo struct {
	// Operation is the leading SQL keyword (SELECT, INSERT, ...).
	Operation string

	// Statement is the SQL text as handed to the driver.
	Statement string

	// Duration is how long the statement took.
	Duration time.Duration

	// Success indicates if the statement succeeded.
	Success bool

	// Err is the failure, if any.
	Err error
}

// OperationOf returns the upper-cased first word of a statement.
func OperationOf(statement string) string {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

// RecordQuery does nothing.
func (NoopRecorder) RecordQuery(ctx context.Context, info QueryInfo) {}

// Ensure NoopRecorder implements Recorder.
var _ Recorder = NoopRecorder{}
