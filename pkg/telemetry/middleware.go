package telemetry

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the Gin tracer
	TracerName = "ticketing-http"

	// TraceIDHeader echoes the trace ID so support can find a request
	TraceIDHeader = "X-Trace-ID"

	// ContextKeyTraceID is where the trace ID is stored on the gin context
	ContextKeyTraceID = "trace_id"
)

// TracingMiddleware starts a server span per request. Requests to skipPaths
// (probes, metrics scrapes) are not traced.
func TracingMiddleware(serviceName string, skipPaths ...string) gin.HandlerFunc {
	tracer := otel.Tracer(TracerName)
	propagator := otel.GetTextMapPropagator()
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(c.Request.Method),
				semconv.HTTPRoute(route),
				semconv.UserAgentOriginal(c.Request.UserAgent()),
				attribute.String("service.name", serviceName),
				attribute.String("http.client_ip", c.ClientIP()),
			),
		)
		defer span.End()

		// Identity and idempotency headers are set by the gateway in front of us
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			span.SetAttributes(attribute.String("user.id", userID))
		}
		if role := c.GetHeader("X-User-Role"); role != "" {
			span.SetAttributes(attribute.String("user.role", role))
		}
		if key := c.GetHeader("X-Idempotency-Key"); key != "" {
			span.SetAttributes(attribute.String("idempotency.key", key))
		}

		if sc := span.SpanContext(); sc.HasTraceID() {
			traceID := sc.TraceID().String()
			c.Header(TraceIDHeader, traceID)
			c.Set(ContextKeyTraceID, traceID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))

		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
