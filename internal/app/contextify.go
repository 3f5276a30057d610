package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jsamuelsen/contextify/internal/app/logctx"
	"github.com/jsamuelsen/contextify/internal/domain"
	"github.com/jsamuelsen/contextify/internal/platform/logging"
	"github.com/jsamuelsen/contextify/internal/ports"
)

// Event is the last message logged through Contextify.
type Event struct {
	Level   slog.Level
	Message string
	Args    []any

	// Context holds Args as key/value pairs.
	Context map[string]any

	// Log and Notification are the group contexts at the time of the event.
	Log          logctx.Map
	Notification logctx.Map

	At time.Time
}

// Options configures Contextify.
type Options struct {
	// Enabled switches context collection on. When false every logging
	// method only forwards to slog.
	Enabled bool

	// NotificationsEnabled allows Notify to deliver.
	NotificationsEnabled bool

	Manager  *logctx.Manager
	Notifier ports.Notifier

	// Logger overrides the logger carried by each call's context.
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Contextify is the logging facade. It is safe for concurrent use; the last
// event is shared by all goroutines.
type Contextify struct {
	manager              *logctx.Manager
	notifier             ports.Notifier
	logger               *slog.Logger
	enabled              bool
	notificationsEnabled bool
	now                  func() time.Time

	mu   sync.Mutex
	last *Event
}

// New creates a facade. A nil Manager is replaced by an empty one.
func New(opts Options) *Contextify {
	manager := opts.Manager
	if manager == nil {
		manager = logctx.NewManager(nil, nil)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Contextify{
		manager:              manager,
		notifier:             opts.Notifier,
		logger:               opts.Logger,
		enabled:              opts.Enabled,
		notificationsEnabled: opts.Enabled && opts.NotificationsEnabled && opts.Notifier != nil,
		now:                  now,
	}
}

// IsEnabled reports whether context collection is on.
func (c *Contextify) IsEnabled() bool { return c.enabled }

// IsNotificationsEnabled reports whether Notify and exception reports deliver.
func (c *Contextify) IsNotificationsEnabled() bool { return c.notificationsEnabled }

// Manager returns the context manager.
func (c *Contextify) Manager() *logctx.Manager { return c.manager }

// Context returns the current context of group, empty when disabled.
func (c *Contextify) Context(group string) logctx.Map {
	if !c.enabled {
		return logctx.Map{}
	}

	return c.manager.GetContext(group)
}

// Debug logs msg at debug level and records it as the last event.
func (c *Contextify) Debug(ctx context.Context, msg string, args ...any) *Contextify {
	return c.log(ctx, slog.LevelDebug, msg, args)
}

// Info logs msg at info level and records it as the last event.
func (c *Contextify) Info(ctx context.Context, msg string, args ...any) *Contextify {
	return c.log(ctx, slog.LevelInfo, msg, args)
}

// Notice logs msg at notice level and records it as the last event.
func (c *Contextify) Notice(ctx context.Context, msg string, args ...any) *Contextify {
	return c.log(ctx, logging.LevelNotice, msg, args)
}

// Warning logs msg at warning level and records it as the last event.
func (c *Contextify) Warning(ctx context.Context, msg string, args ...any) *Contextify {
	return c.log(ctx, slog.LevelWarn, msg, args)
}

// Error logs msg at error level and records it as the last event.
func (c *Contextify) Error(ctx context.Context, msg string, args ...any) *Contextify {
	return c.log(ctx, slog.LevelError, msg, args)
}

// Critical logs msg at critical level and records it as the last event.
func (c *Contextify) Critical(ctx context.Context, msg string, args ...any) *Contextify {
	return c.log(ctx, logging.LevelCritical, msg, args)
}

// Alert logs msg at alert level and records it as the last event.
func (c *Contextify) Alert(ctx context.Context, msg string, args ...any) *Contextify {
	return c.log(ctx, logging.LevelAlert, msg, args)
}

// Emergency logs msg at emergency level and records it as the last event.
func (c *Contextify) Emergency(ctx context.Context, msg string, args ...any) *Contextify {
	return c.log(ctx, logging.LevelEmergency, msg, args)
}

// Log logs at an arbitrary level.
func (c *Contextify) Log(ctx context.Context, level slog.Level, msg string, args ...any) *Contextify {
	return c.log(ctx, level, msg, args)
}

// LastEvent returns a copy of the last logged event.
func (c *Contextify) LastEvent() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil {
		return Event{}, false
	}

	return *c.last, true
}

// Notify sends the last event as a log notification. A non-empty only limits
// the channels; except removes channels. It does nothing when disabled, when
// notifications are off, or before anything was logged.
func (c *Contextify) Notify(ctx context.Context, only, except []string) error {
	if !c.notificationsEnabled {
		return nil
	}

	ev, ok := c.LastEvent()
	if !ok {
		return nil
	}

	n := domain.LogNotification{
		Level:   strings.ToLower(logging.LevelName(ev.Level)),
		Message: ev.Message,
		Context: ev.Context,
		Extra:   ev.Notification,
		At:      ev.At,
	}

	return c.notifier.Notify(ctx, n, only, except)
}

// Touch recomputes one static provider. It reports false for dynamic or
// unknown ids and when disabled.
func (c *Contextify) Touch(id string) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	return c.manager.UpdateStaticProvider(id)
}

// TouchAll recomputes every static provider.
func (c *Contextify) TouchAll() error {
	if !c.enabled {
		return nil
	}

	return c.manager.UpdateStaticContext()
}

func (c *Contextify) log(ctx context.Context, level slog.Level, msg string, args []any) *Contextify {
	logger := c.loggerFor(ctx)

	if !c.enabled {
		logger.Log(ctx, level, msg, args...)
		return c
	}

	if err := c.manager.UpdateDynamicContext(); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "refreshing dynamic context failed", slog.Any("error", err))
	}

	ev := &Event{
		Level:   level,
		Message: msg,
		Args:    args,
		Context: argsToMap(args),
		Log:     c.manager.GetContext(logctx.GroupLog),
		At:      c.now(),
	}

	if c.notificationsEnabled {
		ev.Notification = c.manager.GetContext(logctx.GroupNotification)
	}

	c.mu.Lock()
	c.last = ev
	c.mu.Unlock()

	logger.Log(ctx, level, msg, args...)

	return c
}

func (c *Contextify) loggerFor(ctx context.Context) *slog.Logger {
	if c.logger != nil {
		return c.logger
	}

	return logging.FromContext(ctx)
}

// argsToMap resolves slog-style arguments into a map, the way a handler
// would see them.
func argsToMap(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}

	var r slog.Record
	r.Add(args...)

	out := make(map[string]any, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = attrValue(a.Value)
		return true
	})

	return out
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() != slog.KindGroup {
		return v.Any()
	}

	group := make(map[string]any, len(v.Group()))
	for _, a := range v.Group() {
		group[a.Key] = attrValue(a.Value)
	}

	return group
}
