package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrTimeout is attached to the request when its deadline passes before
// a response was written.
var ErrTimeout = errors.New("request timeout exceeded")

// Timeout sets a deadline on the request context. Handlers and the
// notification channels they call observe it through ctx.Done(); the
// deadline is not enforced on handlers that ignore it.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			_ = c.Error(fmt.Errorf("%w after %s", ErrTimeout, timeout))
		}
	}
}
