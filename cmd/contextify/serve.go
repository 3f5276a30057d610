package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	httpadapter "github.com/jsamuelsen/contextify/internal/adapters/http"
	"github.com/jsamuelsen/contextify/internal/adapters/http/handlers"
	"github.com/jsamuelsen/contextify/internal/app/logctx"
	"github.com/jsamuelsen/contextify/internal/platform/telemetry"
	"github.com/jsamuelsen/contextify/internal/ports"
)

const (
	serveCmdShort = "run the HTTP service"
	serveCmdLong  = `Run the HTTP service.

	The service exposes health, build information and metrics under /-/,
	the collected context under /-/context/ and accepts events to log and
	forward under /api/v1/events. Panics in request handlers are reported
	as exception notifications when notifications are enabled.`

	serveCmdExample = `# Serve with the dev profile
	contextify serve --profile dev

	# Log one event with its context and mail it
	curl -X POST localhost:8080/api/v1/events \
	  -d '{"level":"error","message":"payment failed","notify":true,"only":["mail"]}'`
)

// serveCmd returns the Cobra command that runs the HTTP service.
func serveCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   heredoc.Doc(serveCmdShort),
		Long:    heredoc.Doc(serveCmdLong),
		Example: heredoc.Doc(serveCmdExample),

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), root.profile)
		},
	}
}

func serve(ctx context.Context, profile string) error {
	cfg, err := loadConfig(profile)
	if err != nil {
		return err
	}

	c, err := wire(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}

	logger := c.logger

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.Bool("contextify", c.contextify.IsEnabled()),
		slog.Bool("notifications", c.contextify.IsNotificationsEnabled()),
	)

	telProvider, err := telemetry.New(ctx, telemetry.ConfigFrom(cfg.App, cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime).WithFeatures(features(c))

	server := httpadapter.New(&cfg.Server, logger)
	httpadapter.SetupRouter(server.Engine(), httpadapter.RouterConfig{
		AppConfig:      &cfg.App,
		Reporter:       c.reporter,
		HealthHandler:  handlers.NewHealthHandler(c.health, buildInfo),
		ContextHandler: handlers.NewContextHandler(c.contextify),
		EventHandler:   handlers.NewEventHandler(c.contextify),
		Timeout:        httpadapter.DefaultRequestTimeout,
	})

	serverErr, err := server.Start()
	if err != nil {
		c.reporter.Report(ctx, err)
		_ = c.close(ctx)

		return err
	}

	return waitForShutdown(ctx, logger, server, serverErr, c)
}

// features summarizes the wiring for /-/build.
func features(c *components) handlers.FeatureInfo {
	info := handlers.FeatureInfo{
		Enabled:       c.contextify.IsEnabled(),
		Notifications: c.contextify.IsNotificationsEnabled(),
		Providers: map[string][]string{
			logctx.GroupLog:          c.manager.Members(logctx.GroupLog),
			logctx.GroupNotification: c.manager.Members(logctx.GroupNotification),
		},
	}

	if c.dispatcher != nil {
		info.Channels = map[string][]string{
			ports.KindLog:       c.dispatcher.Channels(ports.KindLog),
			ports.KindException: c.dispatcher.Channels(ports.KindException),
		}
	}

	return info
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then stops the HTTP server and drains queued notifications.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *httpadapter.Server,
	serverErr <-chan error,
	c *components,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		if err != nil {
			c.reporter.Report(ctx, err)
			_ = c.close(ctx)

			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))

	case <-ctx.Done():
	}

	shutdownTimeout := c.cfg.Server.ShutdownTimeout

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := c.close(shutdownCtx); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}
