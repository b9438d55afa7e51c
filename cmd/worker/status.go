package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"trending-watch/internal/domain/entity"
	workerPkg "trending-watch/internal/infra/worker"
	"trending-watch/internal/usecase/watch"
)

// tickerSet is the read side of the seen set.
type tickerSet interface {
	Len() int
	Snapshot() []entity.Ticker
}

// sessionCounter reports how many sessions the supervisor has started.
type sessionCounter interface {
	Sessions() int64
}

var (
	_ tickerSet      = (*watch.SeenSet)(nil)
	_ sessionCounter = (*watch.Supervisor)(nil)
)

// startStatusReporter schedules the periodic status log line on the
// configured cron schedule and timezone. Stop the returned cron to end it.
func startStatusReporter(logger *slog.Logger, cfg *workerPkg.WorkerConfig, seen tickerSet, sessions sessionCounter, metrics *workerPkg.WorkerMetrics) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("status report timezone: %w", err)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.StatusSchedule, func() {
		reportStatus(logger, seen, sessions, metrics)
	}); err != nil {
		return nil, fmt.Errorf("status report schedule: %w", err)
	}

	c.Start()
	logger.Info("status reporter started",
		slog.String("schedule", cfg.StatusSchedule),
		slog.String("timezone", cfg.Timezone))
	return c, nil
}

func reportStatus(logger *slog.Logger, seen tickerSet, sessions sessionCounter, metrics *workerPkg.WorkerMetrics) {
	known := seen.Len()
	metrics.RecordStatusReport(known)

	tickers := make([]string, 0, known)
	for _, t := range seen.Snapshot() {
		tickers = append(tickers, string(t))
	}
	logger.Info("status report",
		slog.Int64("sessions", sessions.Sessions()),
		slog.Int("known_tickers", known),
		slog.Any("tickers", tickers))
}
