package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/UnknownOlympus/rdgeo/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires the health, metrics and conversion endpoints.
func NewRouter(
	log *slog.Logger,
	pinger Pinger,
	gatherer prometheus.Gatherer,
	appMetrics *metrics.Metrics,
) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/healthz", healthHandler(log, pinger))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/v1/convert/rd", convertRD(log))
	mux.Handle("/v1/convert/wgs84", convertWGS84(log))

	return loggingMiddleware(log, appMetrics, mux)
}

func healthHandler(log *slog.Logger, pinger Pinger) http.HandlerFunc {
	return func(writer http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		log.DebugContext(ctx, "Performing health checks...")

		status, body := http.StatusOK, "OK"
		if err := pinger.Ping(ctx); err != nil {
			log.WarnContext(ctx, "Health check failed", "error", err)
			status, body = http.StatusServiceUnavailable, "DB ping failed"
		}

		writer.WriteHeader(status)
		if _, err := writer.Write([]byte(body)); err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	}
}
