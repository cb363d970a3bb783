package tracing

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/partnerpayout/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "partnerpayout/http"

// GinMiddleware opens a server span per request. Cycle routes are tagged
// with the period they address so a slow calculate run can be found by month.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx = withRequestBaggage(ctx, obscontext.RequestIDFromContext(ctx))

		ctx, span := tracer.Start(ctx, spanName(c), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(SafeAttributes(routeAttributes(c)...)...)
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.String("error.kind", errorKind(c.Errors.Last())))
		}
		if status >= http.StatusInternalServerError {
			if last := c.Errors.Last(); last != nil {
				span.RecordError(SafeError(last.Err))
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func spanName(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	return c.Request.Method + " " + route
}

// routeAttributes only reads path parameters; bodies carry loan data.
func routeAttributes(c *gin.Context) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", c.FullPath()),
	}
	if year, err := strconv.Atoi(c.Param("year")); err == nil {
		attrs = append(attrs, attribute.Int("cycle.year", year))
	}
	if month, err := strconv.Atoi(c.Param("month")); err == nil {
		attrs = append(attrs, attribute.Int("cycle.month", month))
	}
	if feed := c.Param("feed"); feed != "" {
		attrs = append(attrs, attribute.String("cycle.feed", feed))
	}
	return attrs
}

func withRequestBaggage(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

func errorKind(err *gin.Error) string {
	if err == nil {
		return ""
	}
	if err.IsType(gin.ErrorTypeBind) {
		return "bind"
	}
	if err.IsType(gin.ErrorTypePrivate) {
		return "handler"
	}
	return "other"
}
