package observability

import (
	"log/slog"
	"time"
)

// Timer measures one operation and reports it to a logger and a metrics
// sink on Stop. Both are optional.
type Timer struct {
	operation string
	started   time.Time
	logger    *slog.Logger
	metrics   Metrics
	tags      []Tag
}

// StartTimer starts measuring the named operation.
func StartTimer(operation string) *Timer {
	return &Timer{operation: operation, started: time.Now()}
}

// WithLogger makes Stop log the outcome.
func (t *Timer) WithLogger(logger *slog.Logger) *Timer {
	t.logger = logger
	return t
}

// WithMetrics makes Stop record duration and count.
func (t *Timer) WithMetrics(metrics Metrics) *Timer {
	t.metrics = metrics
	return t
}

// WithTags adds metric dimensions.
func (t *Timer) WithTags(tags ...Tag) *Timer {
	t.tags = append(t.tags, tags...)
	return t
}

// Elapsed reports the running time without stopping.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.started)
}

// Stop records a successful operation and returns its duration.
func (t *Timer) Stop() time.Duration {
	return t.StopWithError(nil)
}

// StopWithError records the operation with its outcome and returns the
// duration. A non-nil error logs at error level and bumps the error
// counter.
func (t *Timer) StopWithError(err error) time.Duration {
	duration := time.Since(t.started)

	if t.logger != nil {
		if err != nil {
			t.logger.Error("operation failed",
				"operation", t.operation,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			t.logger.Info("operation completed",
				"operation", t.operation,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	if t.metrics != nil {
		tags := append(t.tags, T("operation", t.operation))
		t.metrics.Timing(MetricOperationDuration, duration, tags...)
		t.metrics.Counter(MetricOperationTotal, 1, tags...)
		if err != nil {
			t.metrics.Counter(MetricOperationErrors, 1, tags...)
		}
	}

	return duration
}
