// Package telemetry records OpenTelemetry metrics for the API.
//
// Instruments are created from whatever meter the caller supplies. The
// server passes the global provider's meter, which is a no-op until an SDK
// provider is installed with otel.SetMeterProvider. Nothing in this module
// installs one, so the counters stay inert until a deployment does.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScopeName is the instrumentation scope used by Default.
const ScopeName = "github.com/sakif/tasklist"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the instruments. A nil *Metrics is valid and records
// nothing, so services can be built without telemetry in tests.
type Metrics struct {
	registrations   metric.Int64Counter
	logins          metric.Int64Counter
	taskOps         metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	registrations, err := meter.Int64Counter("tasklist.auth.registrations",
		metric.WithDescription("Registration attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	logins, err := meter.Int64Counter("tasklist.auth.logins",
		metric.WithDescription("Login attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	taskOps, err := meter.Int64Counter("tasklist.tasks.operations",
		metric.WithDescription("Task operations by kind and outcome"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram("tasklist.http.request.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		registrations:   registrations,
		logins:          logins,
		taskOps:         taskOps,
		requestDuration: requestDuration,
	}, nil
}

// Default builds Metrics on the global meter provider.
func Default() (*Metrics, error) {
	return NewMetrics(otel.GetMeterProvider().Meter(ScopeName))
}

// Registration counts one registration attempt.
func (m *Metrics) Registration(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Login counts one login attempt.
func (m *Metrics) Login(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// TaskOp counts one task operation, e.g. TaskOp(ctx, "add", OutcomeSuccess).
func (m *Metrics) TaskOp(ctx context.Context, op, outcome string) {
	if m == nil {
		return
	}
	m.taskOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// Request records the duration of one HTTP request.
func (m *Metrics) Request(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
