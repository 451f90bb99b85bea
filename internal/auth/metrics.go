package auth

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	authCounter  metric.Int64Counter
	errorCounter metric.Int64Counter
)

// InitMetrics registers the auth OTel instruments. Call once at startup,
// after observability.InitMetrics.
func InitMetrics() error {
	meter := otel.Meter("auth")

	var err error

	authCounter, err = meter.Int64Counter("auth.events.total",
		metric.WithDescription("Registrations, logins and logouts"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return fmt.Errorf("creating auth counter: %w", err)
	}

	errorCounter, err = meter.Int64Counter("auth.errors.total",
		metric.WithDescription("Failed auth requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating auth error counter: %w", err)
	}

	return nil
}
