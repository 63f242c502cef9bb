package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "viewdiff/server"

// httpMetrics holds the Prometheus collectors of the server. A nil
// *httpMetrics records nothing.
type httpMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	streams         prometheus.Gauge
	streamErrors    *prometheus.CounterVec
}

// newHTTPMetrics registers the server metrics with reg:
//   - viewdiff_http_requests_total: requests, by route, method and status
//   - viewdiff_http_request_duration_seconds: request latency, by route and method
//   - viewdiff_stream_connections: open transaction streams
//   - viewdiff_stream_errors_total: streams that ended with an error, by kind
func newHTTPMetrics(reg prometheus.Registerer, namespace string) *httpMetrics {
	if reg == nil {
		return nil
	}
	if namespace == "" {
		namespace = "viewdiff"
	}
	factory := promauto.With(reg)

	return &httpMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		streams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connections",
			Help:      "Number of open transaction streams",
		}),

		streamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "errors_total",
			Help:      "Total number of streams that ended with an error",
		}, []string{"kind"}),
	}
}

func (m *httpMetrics) recordRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *httpMetrics) streamOpened() {
	if m != nil {
		m.streams.Inc()
	}
}

func (m *httpMetrics) streamClosed() {
	if m != nil {
		m.streams.Dec()
	}
}

func (m *httpMetrics) streamError(kind string) {
	if m != nil {
		m.streamErrors.WithLabelValues(kind).Inc()
	}
}

// routePattern returns the chi route pattern that served r, or
// "unmatched". Raw paths would give every surface its own series.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// instrument traces every request and records its metrics and a debug
// log line. The span is named after the route pattern once routing is done.
func (s *Server) instrument(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		ctx, span := tracer.Start(r.Context(), "viewdiff "+r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("viewdiff.request_id", middleware.GetReqID(r.Context())),
			),
		)
		defer span.End()

		r = r.WithContext(ctx)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		elapsed := time.Since(start)

		span.SetName(fmt.Sprintf("viewdiff %s %s", r.Method, route))
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if id := chi.URLParam(r, "id"); id != "" {
			span.SetAttributes(attribute.String("viewdiff.surface", id))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			span.SetStatus(codes.Ok, "")
		}

		s.metrics.recordRequest(route, r.Method, status, elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
