package tracing

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Header names honored on inbound requests and echoed on responses.
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// HTTPMiddleware traces each request. Inbound trace headers are
// honored so a host application can line bridge spans up with its own,
// and the assigned IDs are echoed back so callers can quote them when
// reporting a problem.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if v := c.GetHeader(HeaderTraceID); v != "" {
			ctx = context.WithValue(ctx, traceIDKey, TraceID(v))
		}
		if v := c.GetHeader(HeaderSpanID); v != "" {
			ctx = context.WithValue(ctx, spanIDKey, SpanID(v))
		}

		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}
		span, ctx := tracer.StartSpan(ctx, name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)
		if sid := c.Param("id"); sid != "" {
			span.SetTag("session_id", sid)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}
