package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/sitebill/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sitebill/http"

// GinMiddleware opens a server span per request. It expects the request
// logger to run first so the request id and actor are already on the context.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, spanName(c.Request.Method, ""), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		span.SetName(spanName(c.Request.Method, route))
		span.SetAttributes(requestAttributes(c, route)...)

		if c.Writer.Status() < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			if safe := SafeError(last.Err); safe != nil {
				span.RecordError(safe)
			}
		}
		span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
	}
}

func spanName(method, route string) string {
	name := "HTTP " + strings.ToUpper(method)
	if route != "" {
		name += " " + route
	}
	return name
}

func requestAttributes(c *gin.Context, route string) []attribute.KeyValue {
	if route == "" {
		route = "unmatched"
	}
	ctx := c.Request.Context()
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", c.Writer.Status()),
	}
	if id := obscontext.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if actor := obscontext.ActorFromContext(ctx); actor != "" {
		attrs = append(attrs, attribute.String("sitebill.actor", actor))
	}
	// Resource ids ride on the span so a statement's requests can be found later.
	if id := c.Param("id"); id != "" {
		attrs = append(attrs, attribute.String("sitebill.resource_id", id))
	}
	if id := c.Param("lineId"); id != "" {
		attrs = append(attrs, attribute.String("sitebill.line_id", id))
	}
	return SafeAttributes(attrs...)
}
