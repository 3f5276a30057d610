package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/contextify/internal/domain"
	"github.com/jsamuelsen/contextify/internal/platform/logging"
	"github.com/jsamuelsen/contextify/internal/ports"
)

const (
	instrumentationName = "github.com/jsamuelsen/contextify/internal/adapters/notify"

	// DefaultQueueSize is the buffer of each named queue.
	DefaultQueueSize = 64
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Routes maps a notification kind to channel names, each with a queue
	// name. An empty queue name delivers inline.
	Routes map[string]map[string]string

	// QueueSize is the buffer of each named queue. Defaults to DefaultQueueSize.
	QueueSize int

	// OnFailure receives failures of queued deliveries, which cannot be
	// returned to the caller. Each error matches domain.ErrNotificationFailed.
	OnFailure func(ctx context.Context, err error)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type route struct {
	channel ports.Channel
	queue   string
}

type job struct {
	ctx     context.Context
	n       ports.Notification
	channel ports.Channel
}

// Dispatcher implements ports.Notifier.
type Dispatcher struct {
	routes    map[string][]route
	queues    map[string]chan job
	onFailure func(ctx context.Context, err error)
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	sent   metric.Int64Counter
	failed metric.Int64Counter
}

var _ ports.Notifier = (*Dispatcher)(nil)

// NewDispatcher builds a dispatcher over channels and starts one worker per
// named queue. Every routed channel must be among channels.
func NewDispatcher(cfg DispatcherConfig, channels ...ports.Channel) (*Dispatcher, error) {
	byName := make(map[string]ports.Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}

	d := &Dispatcher{
		routes:    make(map[string][]route, len(cfg.Routes)),
		queues:    make(map[string]chan job),
		onFailure: cfg.OnFailure,
		logger:    logger.With(slog.String("component", "notify.Dispatcher")),
	}

	for _, kind := range slices.Sorted(maps.Keys(cfg.Routes)) {
		targets := cfg.Routes[kind]
		for _, name := range slices.Sorted(maps.Keys(targets)) {
			ch, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q routed for %s", ErrUnknownChannel, name, kind)
			}

			queue := targets[name]
			if queue != "" {
				if _, ok := d.queues[queue]; !ok {
					d.queues[queue] = make(chan job, size)
				}
			}

			d.routes[kind] = append(d.routes[kind], route{channel: ch, queue: queue})
		}
	}

	meter := otel.Meter(instrumentationName)

	var err error

	d.sent, err = meter.Int64Counter(
		"contextify.notifications.sent",
		metric.WithDescription("Notifications delivered per kind and channel"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sent counter: %w", err)
	}

	d.failed, err = meter.Int64Counter(
		"contextify.notifications.failed",
		metric.WithDescription("Notifications that failed per kind and channel"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	for name, q := range d.queues {
		d.wg.Go(func() { d.work(name, q) })
	}

	return d, nil
}

// Channels returns the channel names routed for kind, sorted.
func (d *Dispatcher) Channels(kind string) []string {
	names := make([]string, 0, len(d.routes[kind]))
	for _, r := range d.routes[kind] {
		names = append(names, r.channel.Name())
	}

	return names
}

// Notify delivers n to the channels routed for its kind, restricted to only
// (when non-empty) and without except. Inline channels are sent concurrently
// and their failures joined; queued channels report through OnFailure.
func (d *Dispatcher) Notify(ctx context.Context, n ports.Notification, only, except []string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	targets := d.targets(n.Kind(), only, except)
	if len(targets) == 0 {
		logging.FromContext(ctx).Debug("no channel routed for notification", slog.String("kind", n.Kind()))
		return nil
	}

	var (
		g    errgroup.Group
		errs = make([]error, len(targets))
	)

	for i, r := range targets {
		if r.queue != "" {
			d.enqueue(ctx, r, n)
			continue
		}

		g.Go(func() error {
			errs[i] = d.send(ctx, r.channel, n)
			return nil
		})
	}

	_ = g.Wait()

	return errors.Join(errs...)
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}

	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining notification queues: %w", ctx.Err())
	}
}

func (d *Dispatcher) targets(kind string, only, except []string) []route {
	var out []route

	for _, r := range d.routes[kind] {
		name := r.channel.Name()
		if len(only) > 0 && !slices.Contains(only, name) {
			continue
		}
		if slices.Contains(except, name) {
			continue
		}

		out = append(out, r)
	}

	return out
}

// enqueue must be called with d.mu held.
func (d *Dispatcher) enqueue(ctx context.Context, r route, n ports.Notification) {
	j := job{ctx: context.WithoutCancel(ctx), n: n, channel: r.channel}

	select {
	case d.queues[r.queue] <- j:
	default:
		d.record(ctx, d.failed, n.Kind(), r.channel.Name())
		d.fail(ctx, domain.NewNotificationFailedError(n.Kind(), r.channel.Name(), ErrQueueFull))
	}
}

func (d *Dispatcher) work(queue string, q <-chan job) {
	for j := range q {
		if err := d.send(j.ctx, j.channel, j.n); err != nil {
			d.logger.Debug("queued notification failed", slog.String("queue", queue), slog.Any("error", err))
			d.fail(j.ctx, err)
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, ch ports.Channel, n ports.Notification) error {
	if err := ch.Send(ctx, n); err != nil {
		d.record(ctx, d.failed, n.Kind(), ch.Name())
		return domain.NewNotificationFailedError(n.Kind(), ch.Name(), err)
	}

	d.record(ctx, d.sent, n.Kind(), ch.Name())

	return nil
}

func (d *Dispatcher) fail(ctx context.Context, err error) {
	if d.onFailure == nil {
		d.logger.Warn("notification failed", slog.Any("error", err))
		return
	}

	d.onFailure(ctx, err)
}

func (d *Dispatcher) record(ctx context.Context, counter metric.Int64Counter, kind, channel string) {
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("channel", channel),
	))
}
