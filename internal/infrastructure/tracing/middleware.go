package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/coderoom/backend/internal/shared/id"
)

// HTTPMiddleware creates Gin middleware for HTTP tracing.
// Incoming trace headers are only honoured when they are ids this service
// could have issued; anything else starts a fresh trace.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var traceID TraceID
		var parentID SpanID
		if h := c.GetHeader(HeaderTraceID); id.IsValid(id.RequestPrefix, h) {
			traceID = TraceID(h)
			if p := c.GetHeader(HeaderSpanID); id.IsValid(id.SpanPrefix, p) {
				parentID = SpanID(p)
			}
		}

		ctx := WithTrace(c.Request.Context(), traceID, parentID)

		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}

		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.url", c.Request.URL.String())
		span.SetTag("http.host", c.Request.Host)

		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))

		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}

		span.Finish()
		tracer.Submit(span)
	}
}
