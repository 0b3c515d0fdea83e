// Package telemetry wires OpenTelemetry metrics to a Prometheus exporter.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Metrics holds the bridge's metric instruments.
type Metrics struct {
	Requests        metric.Int64Counter
	ErrorCount      metric.Int64Counter
	RequestDuration metric.Float64Histogram

	// domain counters
	ReconcilePasses metric.Int64Counter
	ModulesDeployed metric.Int64Counter
	ModulesRemoved  metric.Int64Counter

	registry *prometheus.Registry
}

// InitMetrics sets up the meter provider and instruments. The returned
// shutdown function flushes the provider; call it on exit.
func InitMetrics(version string) (func(context.Context) error, *Metrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "cloud-bridge"),
		attribute.String("service.version", version),
	)
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter("cloud-bridge")

	m := &Metrics{registry: registry}

	m.Requests, err = meter.Int64Counter("cloud_bridge_http_requests",
		metric.WithDescription("Total HTTP requests served"))
	if err != nil {
		return nil, nil, err
	}
	m.ErrorCount, err = meter.Int64Counter("cloud_bridge_http_errors",
		metric.WithDescription("Total HTTP responses with status >= 400"))
	if err != nil {
		return nil, nil, err
	}
	m.RequestDuration, err = meter.Float64Histogram("cloud_bridge_http_request_duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, nil, err
	}
	m.ReconcilePasses, err = meter.Int64Counter("cloud_bridge_reconcile_passes",
		metric.WithDescription("Reconciliation passes run against the platform inventory"))
	if err != nil {
		return nil, nil, err
	}
	m.ModulesDeployed, err = meter.Int64Counter("cloud_bridge_modules_deployed",
		metric.WithDescription("Modules deployed to the platform"))
	if err != nil {
		return nil, nil, err
	}
	m.ModulesRemoved, err = meter.Int64Counter("cloud_bridge_modules_removed",
		metric.WithDescription("Modules removed from the platform"))
	if err != nil {
		return nil, nil, err
	}

	return provider.Shutdown, m, nil
}

// PrometheusHandler serves the metrics in Prometheus exposition format.
func (m *Metrics) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
