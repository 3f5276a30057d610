package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/contextify/internal/app/logctx"
	"github.com/jsamuelsen/contextify/internal/domain"
	"github.com/jsamuelsen/contextify/internal/platform/config"
	"github.com/jsamuelsen/contextify/internal/platform/logging"
)

// Bootstrap creates a manager holding the configured "log" and
// "notification" providers, boots it and computes static context once.
// When contextify is disabled the manager is returned empty and unbooted.
//
// Provider ids the catalog does not know are logged and skipped. A failing
// static provider is returned as an error.
func Bootstrap(ctx context.Context, cfg config.ContextifyConfig, catalog logctx.Resolver) (*logctx.Manager, error) {
	manager := logctx.NewManager(logctx.NewRepository(), catalog)
	if !cfg.Enabled {
		return manager, nil
	}

	logger := logging.FromContext(ctx)

	for _, id := range cfg.Logs.Providers {
		manager.AddProvider(id, logctx.GroupLog)
	}

	if cfg.Notifications.Enabled {
		for _, id := range cfg.Notifications.Providers {
			manager.AddProvider(id, logctx.GroupNotification)
		}
	}

	if err := manager.BootProviders(); err != nil {
		if !domain.IsUnknownProvider(err) {
			return nil, fmt.Errorf("booting context providers: %w", err)
		}

		logger.WarnContext(ctx, "skipping unknown context providers", slog.Any("error", err))
	}

	if err := manager.UpdateStaticContext(); err != nil {
		return nil, fmt.Errorf("computing static context: %w", err)
	}

	logger.DebugContext(ctx, "context providers booted",
		slog.Any("log", manager.Members(logctx.GroupLog)),
		slog.Any("notification", manager.Members(logctx.GroupNotification)),
	)

	return manager, nil
}
