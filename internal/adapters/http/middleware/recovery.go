package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/contextify/internal/adapters/http/dto"
	"github.com/jsamuelsen/contextify/internal/platform/logging"
)

// PanicReporter receives recovered panic values. *app.Reporter implements it.
type PanicReporter interface {
	Recovered(ctx context.Context, v any)
}

// Recovery returns middleware that recovers from panics.
// On panic, it:
//   - Logs the error with full stack trace at ERROR level
//   - Hands the value to reporter, which may send an exception notification
//   - Returns a 500 Internal Server Error with standard error envelope
//
// This middleware should be applied first in the chain to catch panics
// from all subsequent handlers and middleware. reporter may be nil.
func Recovery(reporter PanicReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := c.Request.Context()
			stack := debug.Stack()

			var traceID string
			if span := trace.SpanFromContext(ctx); span.SpanContext().HasTraceID() {
				traceID = span.SpanContext().TraceID().String()
			}

			logging.FromContext(ctx).Error("panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(stack)),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("otel_trace_id", traceID),
			)

			if reporter != nil {
				reporter.Recovered(ctx, r)
			}

			errResp := dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred")
			if traceID != "" {
				errResp.TraceID = traceID
			}

			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
			} else {
				c.Abort()
			}
		}()

		c.Next()
	}
}
