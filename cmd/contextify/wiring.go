package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/contextify/internal/adapters/notify"
	"github.com/jsamuelsen/contextify/internal/app"
	"github.com/jsamuelsen/contextify/internal/app/logctx"
	"github.com/jsamuelsen/contextify/internal/app/logctx/providers"
	"github.com/jsamuelsen/contextify/internal/platform/config"
	"github.com/jsamuelsen/contextify/internal/platform/logging"
	"github.com/jsamuelsen/contextify/internal/ports"
)

// components is everything the subcommands share: the enriched logger, the
// context manager, the facade and, when notifications are enabled, the
// dispatcher with its channels registered as health checks.
type components struct {
	cfg        *config.Config
	logger     *slog.Logger
	manager    *logctx.Manager
	contextify *app.Contextify
	reporter   *app.Reporter
	dispatcher *notify.Dispatcher
	health     *ports.DefaultHealthRegistry
}

// loadConfig loads and validates the configuration for profile.
func loadConfig(profile string) (*config.Config, error) {
	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// wire builds the components for cfg. Logs are written to out.
func wire(ctx context.Context, cfg *config.Config, out io.Writer) (*components, error) {
	base := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, out)

	catalog := logctx.NewCatalog()

	err := providers.RegisterDefaults(catalog, providers.Options{
		Environment:  cfg.App.Environment,
		BasePath:     cfg.Contextify.BasePath,
		SkipPrefixes: cfg.Contextify.Call.SkipPrefixes,
	})
	if err != nil {
		return nil, err
	}

	manager, err := app.Bootstrap(logging.WithContext(ctx, base), cfg.Contextify, catalog)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping contextify: %w", err)
	}

	logger := slog.New(logctx.NewHandler(base.Handler(), manager, logctx.WithRefresh()))
	logging.SetDefault(logger)

	c := &components{
		cfg:     cfg,
		logger:  logger,
		manager: manager,
		health:  ports.NewHealthRegistry(),
	}

	var notifier ports.Notifier

	if cfg.Contextify.Enabled && cfg.Contextify.Notifications.Enabled {
		c.dispatcher, err = c.newDispatcher()
		if err != nil {
			return nil, err
		}

		notifier = c.dispatcher
	}

	c.contextify = app.New(app.Options{
		Enabled:              cfg.Contextify.Enabled,
		NotificationsEnabled: cfg.Contextify.Notifications.Enabled,
		Manager:              manager,
		Notifier:             notifier,
	})

	notifications := cfg.Contextify.Notifications
	c.reporter = app.NewReporter(c.contextify, notifier,
		app.WithServerEnvironment(func() (map[string]string, error) {
			return notify.ServerEnvironment(notifications.EnvFile, notifications.ServerExclude)
		}),
	)

	return c, nil
}

// newDispatcher creates the routed channels and the dispatcher over them.
// Queued delivery failures are logged through the reporter once it exists.
func (c *components) newDispatcher() (*notify.Dispatcher, error) {
	n := c.cfg.Contextify.Notifications

	var channels []ports.Channel

	if n.Routes(notify.ChannelMail) {
		mail, err := notify.NewMailChannel(n.Mail, n.MailAddresses, c.cfg.Client.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("creating mail channel: %w", err)
		}

		if err := c.health.Register(mail.HealthCheck()); err != nil {
			return nil, err
		}

		channels = append(channels, mail)
	}

	if n.Routes(notify.ChannelTelegram) {
		client, err := notify.NewTelegramClient(n.Telegram, c.cfg.Client, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating telegram client: %w", err)
		}

		telegram, err := notify.NewTelegramChannel(client, n.TelegramChatID)
		if err != nil {
			return nil, fmt.Errorf("creating telegram channel: %w", err)
		}

		if err := c.health.Register(telegram.HealthCheck()); err != nil {
			return nil, err
		}

		channels = append(channels, telegram)
	}

	dispatcher, err := notify.NewDispatcher(notify.DispatcherConfig{
		Routes: n.List,
		OnFailure: func(ctx context.Context, err error) {
			if c.reporter != nil {
				c.reporter.NotificationFailed(ctx, err)
			}
		},
		Logger: c.logger,
	}, channels...)
	if err != nil {
		return nil, fmt.Errorf("creating notification dispatcher: %w", err)
	}

	return dispatcher, nil
}

// close drains queued notifications. It is safe to call more than once.
func (c *components) close(ctx context.Context) error {
	if c.dispatcher == nil {
		return nil
	}

	if err := c.dispatcher.Close(ctx); err != nil {
		return fmt.Errorf("closing notification dispatcher: %w", err)
	}

	return nil
}
