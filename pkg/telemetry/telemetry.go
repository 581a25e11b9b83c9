// Package telemetry exports OpenTelemetry metrics and traces of the host.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.minekube.com/intercept/pkg/config"
)

const shutdownTimeout = 5 * time.Second

// Init initializes the configured metrics and tracing providers
// and registers them globally.
//
// Metrics are served in the Prometheus format on the configured bind address.
// The returned cleanup func flushes and stops everything Init started.
func Init(ctx context.Context, cfg *config.Config) (m *Metrics, cleanup func(), err error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	log := logr.FromContextOrDiscard(ctx).WithName("telemetry")

	var cleanups []func(context.Context) error
	cleanup = func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](ctx); err != nil {
				log.Error(err, "error shutting down telemetry")
			}
		}
	}
	defer func() {
		if err != nil {
			cleanup()
		}
	}()

	if cfg.Telemetry.Tracing.Enabled {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		cleanups = append(cleanups, tp.Shutdown)
		log.Info("tracing enabled", "exporter", "stdout")
	}

	if !cfg.Telemetry.Metrics.Enabled {
		return nil, cleanup, nil
	}

	reg := promclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	cleanups = append(cleanups, mp.Shutdown)

	m, err = NewMetrics(mp)
	if err != nil {
		return nil, nil, err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Telemetry.Metrics.Bind)
	if err != nil {
		return nil, nil, fmt.Errorf("error listening for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Telemetry.Metrics.Path, otelhttp.NewHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), "metrics"))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "metrics server stopped")
		}
	}()
	cleanups = append(cleanups, srv.Shutdown)
	log.Info("serving metrics", "addr", ln.Addr().String(), "path", cfg.Telemetry.Metrics.Path)

	return m, cleanup, nil
}
