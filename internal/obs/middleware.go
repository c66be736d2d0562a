package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ResponseTap wraps a ResponseWriter to observe the status and payload size.
type ResponseTap struct {
	http.ResponseWriter
	status int
	bytes  int64
}

// NewResponseTap wraps w, assuming 200 until a status is written.
func NewResponseTap(w http.ResponseWriter) *ResponseTap {
	return &ResponseTap{ResponseWriter: w, status: http.StatusOK}
}

func (t *ResponseTap) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *ResponseTap) Write(p []byte) (int, error) {
	n, err := t.ResponseWriter.Write(p)
	t.bytes += int64(n)
	return n, err
}

// Status returns the response status code.
func (t *ResponseTap) Status() int { return t.status }

// BytesWritten returns the payload size sent to the client.
func (t *ResponseTap) BytesWritten() int64 { return t.bytes }

// routeOf resolves the matched chi pattern for a request, so metrics and
// spans aggregate on /api/v1/orders/{orderId} rather than raw paths.
func routeOf(r *http.Request) string {
	if route := RoutePatternFromContext(r.Context()); route != "" {
		return route
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// HTTPObs feeds request outcomes into the HTTP collectors.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

// Middleware counts, times and tracks in-flight requests.
func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tap := NewResponseTap(w)
		o.Metrics.InFlight.Inc()
		start := time.Now()
		next.ServeHTTP(tap, r)
		o.Metrics.InFlight.Dec()

		route := routeOf(r)
		if route == "" {
			route = "unknown"
		}
		o.Metrics.Requests.WithLabelValues(r.Method, route, strconv.Itoa(tap.Status())).Inc()
		o.Metrics.Latency.WithLabelValues(r.Method, route).Observe(DurationMillis(time.Since(start)))
	})
}

// RoutePatternMiddleware stashes the matched route pattern in the context for
// the middlewares that run before chi resolves it.
func RoutePatternMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rc := chi.RouteContext(ctx); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				ctx = WithRoutePattern(ctx, pattern)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TracingMiddleware opens a server span per request and records its outcome.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("http.server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeOf(r)
		if route == "" {
			route = r.URL.Path
		}
		ctx, span := tracer.Start(r.Context(), r.Method+" "+route)
		tap := NewResponseTap(w)
		next.ServeHTTP(tap, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.target", r.URL.Path),
			attribute.Int("http.status_code", tap.Status()),
		)
		if tap.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(tap.Status()))
		}
		span.End()
	})
}
