package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"trending-watch/internal/config"
	"trending-watch/internal/infra/feed"
	"trending-watch/internal/infra/oauth"
	workerPkg "trending-watch/internal/infra/worker"
	"trending-watch/internal/observability/logging"
	"trending-watch/internal/usecase/notify"
	"trending-watch/internal/usecase/watch"
)

func main() {
	logger := logging.NewFromEnv()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("worker exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

// run wires the watcher and blocks until ctx is cancelled or a server fails.
func run(ctx context.Context, logger *slog.Logger) error {
	creds, err := config.LoadCredentialsConfig()
	if err != nil {
		return err
	}
	logger.Info("credentials loaded", slog.Any("credentials", creds))

	feedConfig, err := config.LoadFeedConfig()
	if err != nil {
		return err
	}

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.Duration("reconnect_delay", workerConfig.ReconnectDelay),
		slog.Duration("reconnect_max_delay", workerConfig.ReconnectMaxDelay),
		slog.Float64("reconnect_multiplier", workerConfig.ReconnectMultiplier),
		slog.Duration("renewal_margin", workerConfig.RenewalMargin),
		slog.String("status_schedule", workerConfig.StatusSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("notify_max_concurrent", workerConfig.NotifyMaxConcurrent),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	source, err := oauth.NewRefreshTokenSource(oauth.Config{
		TokenURL:     feedConfig.TokenURL,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RefreshToken: creds.RefreshToken,
		UserAgent:    creds.UserAgent,
		Timeout:      feedConfig.TokenTimeout,
	})
	if err != nil {
		return fmt.Errorf("token source: %w", err)
	}

	dialer := feed.NewDialer(feed.DialConfig{
		URL:              feedConfig.URL,
		Origin:           feedConfig.Origin,
		UserAgent:        creds.UserAgent,
		Cookie:           feed.SessionCookie(creds.RedditSession, creds.LOID),
		HandshakeTimeout: feedConfig.HandshakeTimeout,
		WriteTimeout:     feedConfig.WriteTimeout,
	})
	dial := func(ctx context.Context) (watch.Transport, error) {
		conn, err := dialer.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	notifyService := setupNotifyService(logger, workerConfig)

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)
	healthServer.OnReadyChange(workerMetrics.SetReady)

	seen := watch.NewSeenSet()
	supervisor := watch.NewSupervisor(source, dial, seen, notifyService,
		watch.SupervisorConfig{
			Channel:       feedConfig.Channel,
			RenewalMargin: workerConfig.RenewalMargin,
			Backoff:       workerConfig.Backoff(),
		},
		watch.WithLogger(logger),
		watch.WithReadinessHook(healthServer.SetReady),
	)

	reporter, err := startStatusReporter(logger, workerConfig, seen, supervisor, workerMetrics)
	if err != nil {
		return err
	}
	defer reporter.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := supervisor.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := healthServer.Start(gctx); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", workerConfig.MetricsPort)
		if err := serveMetrics(gctx, logger, addr, newMetricsHandler(notifyService)); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), workerConfig.ShutdownTimeout)
	defer cancel()
	if err := notifyService.Shutdown(shutdownCtx); err != nil {
		logger.Warn("notification shutdown incomplete", slog.Any("error", err))
	}

	return runErr
}

// setupNotifyService builds every channel; disabled ones stay registered so
// that /health/channels lists them.
func setupNotifyService(logger *slog.Logger, workerConfig *workerPkg.WorkerConfig) notify.Service {
	notificationConfig := config.LoadNotificationConfig(logger)

	channels := []notify.Channel{
		notify.NewDiscordChannel(notificationConfig.Discord),
		notify.NewSlackChannel(notificationConfig.Slack),
		notify.NewEmailChannel(notificationConfig.Email),
	}
	for _, ch := range channels {
		logger.Info("notification channel configured",
			slog.String("channel", ch.Name()),
			slog.Bool("enabled", ch.IsEnabled()))
	}

	notifyService := notify.NewService(channels, workerConfig.NotifyMaxConcurrent)
	logger.Info("notification service initialized",
		slog.Int("channels", len(channels)),
		slog.Int("max_concurrent", workerConfig.NotifyMaxConcurrent))
	return notifyService
}
