package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jsamuelsen/contextify/internal/app/logctx"
	"github.com/jsamuelsen/contextify/internal/domain"
	"github.com/jsamuelsen/contextify/internal/ports"
)

// ServerEnvFunc returns the environment attached to exception notifications.
type ServerEnvFunc func() (map[string]string, error)

// ReporterOption customizes a Reporter.
type ReporterOption func(*Reporter)

// WithServerEnvironment attaches the result of fn to every exception notification.
func WithServerEnvironment(fn ServerEnvFunc) ReporterOption {
	return func(r *Reporter) { r.serverEnv = fn }
}

// WithReporterClock replaces time.Now.
func WithReporterClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) { r.now = now }
}

// Reporter sends errors and recovered panics as exception notifications.
type Reporter struct {
	ctxify    *Contextify
	notifier  ports.Notifier
	serverEnv ServerEnvFunc
	now       func() time.Time
}

// NewReporter creates a reporter delivering through notifier. Delivery
// problems are logged through c.
func NewReporter(c *Contextify, notifier ports.Notifier, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		ctxify:   c,
		notifier: notifier,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Report notifies about err. Errors that are themselves notification
// failures are ignored so a broken channel cannot cause a report loop.
func (r *Reporter) Report(ctx context.Context, err error) {
	r.report(ctx, err, "")
}

// Recovered reports a value obtained from recover() together with the
// current stack.
func (r *Reporter) Recovered(ctx context.Context, v any) {
	if v == nil {
		return
	}

	var err error
	switch val := v.(type) {
	case error:
		err = fmt.Errorf("panic: %w", val)
	default:
		err = fmt.Errorf("panic: %v", val)
	}

	r.report(ctx, err, string(debug.Stack()))
}

// NotificationFailed logs a delivery failure. It suits the dispatcher's
// failure callback.
func (r *Reporter) NotificationFailed(ctx context.Context, err error) {
	r.ctxify.Error(ctx, "notification delivery failed", "error", err.Error())
}

func (r *Reporter) report(ctx context.Context, err error, stack string) {
	if err == nil || errors.Is(err, domain.ErrNotificationFailed) {
		return
	}

	if !r.ctxify.IsNotificationsEnabled() || r.notifier == nil {
		return
	}

	if refreshErr := r.ctxify.Manager().UpdateDynamicContext(); refreshErr != nil {
		r.ctxify.Warning(ctx, "refreshing dynamic context failed", "error", refreshErr.Error())
	}

	n := domain.ExceptionNotification{
		Err:   err,
		Stack: stack,
		Extra: r.ctxify.Context(logctx.GroupNotification),
		At:    r.now(),
	}

	if r.serverEnv != nil {
		env, envErr := r.serverEnv()
		if envErr != nil {
			r.ctxify.Warning(ctx, "reading server environment failed", "error", envErr.Error())
		}
		n.Server = env
	}

	if sendErr := r.notifier.Notify(ctx, n, nil, nil); sendErr != nil {
		r.NotificationFailed(ctx, sendErr)
	}
}
