package worker

import (
	"fmt"
	"log/slog"
	"time"

	"trending-watch/internal/pkg/config"
	"trending-watch/internal/resilience/retry"
)

// WorkerConfig holds the operational settings of the watcher process.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Every field has a default and a validation rule, so the watcher can always
// start even with invalid or missing values.
type WorkerConfig struct {
	// ReconnectDelay is the pause between two feed sessions.
	// Range: 1s-10m. Default: 5s
	ReconnectDelay time.Duration

	// ReconnectMaxDelay caps exponential growth of the pause while sessions
	// keep failing before they subscribe. Equal to ReconnectDelay means a fixed
	// delay. Range: ReconnectDelay-1h. Default: 5s
	ReconnectMaxDelay time.Duration

	// ReconnectMultiplier is the growth factor of the pause when
	// ReconnectMaxDelay exceeds ReconnectDelay. Range: 1-10. Default: 2
	ReconnectMultiplier float64

	// RenewalMargin is how long before credential expiry a session closes
	// itself. Range: 1s-30m. Default: 60s
	RenewalMargin time.Duration

	// StatusSchedule is the cron expression of the periodic status report.
	// Format: "minute hour day month weekday". Default: "0 * * * *" (hourly)
	StatusSchedule string

	// Timezone is the IANA timezone for StatusSchedule. Default: "UTC"
	Timezone string

	// NotifyMaxConcurrent bounds in-flight channel sends. Range: 1-50. Default: 10
	NotifyMaxConcurrent int

	// HealthPort serves /health and /health/ready. Range: 1024-65535. Default: 9091
	HealthPort int

	// MetricsPort serves /metrics and /health/channels. Range: 1024-65535. Default: 9090
	MetricsPort int

	// ShutdownTimeout bounds the drain of in-flight notifications. Default: 30s
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a WorkerConfig with production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		ReconnectDelay:      5 * time.Second,
		ReconnectMaxDelay:   5 * time.Second,
		ReconnectMultiplier: 2,
		RenewalMargin:       60 * time.Second,
		StatusSchedule:      "0 * * * *",
		Timezone:            "UTC",
		NotifyMaxConcurrent: 10,
		HealthPort:          9091,
		MetricsPort:         9090,
		ShutdownTimeout:     30 * time.Second,
	}
}

// Backoff returns the reconnect delay policy: fixed when ReconnectMaxDelay
// equals ReconnectDelay, growing by ReconnectMultiplier up to ReconnectMaxDelay
// otherwise.
func (c *WorkerConfig) Backoff() retry.BackoffConfig {
	if c.ReconnectMaxDelay <= c.ReconnectDelay {
		return retry.FixedBackoff(c.ReconnectDelay)
	}
	return retry.BackoffConfig{
		Initial:        c.ReconnectDelay,
		Max:            c.ReconnectMaxDelay,
		Multiplier:     c.ReconnectMultiplier,
		JitterFraction: 0.1,
	}
}

// Validate checks every field and returns all failures together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateDuration(c.ReconnectDelay, time.Second, 10*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("reconnect delay: %w", err))
	}
	if err := config.ValidateDuration(c.ReconnectMaxDelay, c.ReconnectDelay, time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("reconnect max delay: %w", err))
	}
	if err := config.ValidateFloatRange(c.ReconnectMultiplier, 1, 10); err != nil {
		errs = append(errs, fmt.Errorf("reconnect multiplier: %w", err))
	}
	if err := config.ValidateDuration(c.RenewalMargin, time.Second, 30*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("renewal margin: %w", err))
	}
	if err := config.ValidateCronSchedule(c.StatusSchedule); err != nil {
		errs = append(errs, fmt.Errorf("status schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.NotifyMaxConcurrent, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("notify max concurrent: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health port and metrics port must differ"))
	}
	if err := config.ValidatePositiveDuration(c.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("shutdown timeout: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// loader applies one fail-open result: it logs the warnings and updates the
// config metrics.
type loader struct {
	logger          *slog.Logger
	metrics         *WorkerMetrics
	fallbackApplied bool
}

func applyResult[T any](l *loader, field, label string, result config.LoadResult[T]) T {
	if result.FallbackApplied {
		l.fallbackApplied = true
		l.metrics.RecordValidationError(label)
		l.metrics.RecordFallback(label)
		for _, warning := range result.Warnings {
			l.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	return result.Value
}

// LoadConfigFromEnv loads the worker configuration with the fail-open strategy:
// an invalid value is logged, counted, and replaced by its default. It never
// returns an error.
//
// Environment variables:
//   - RECONNECT_DELAY: duration 1s-10m (default: 5s)
//   - RECONNECT_MAX_DELAY: duration, >= RECONNECT_DELAY, <= 1h (default: RECONNECT_DELAY)
//   - RECONNECT_MULTIPLIER: float 1-10 (default: 2)
//   - RENEWAL_MARGIN: duration 1s-30m (default: 60s)
//   - STATUS_SCHEDULE: cron expression (default: "0 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - NOTIFY_MAX_CONCURRENT: integer 1-50 (default: 10)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
//   - METRICS_PORT: integer 1024-65535 (default: 9090)
//   - SHUTDOWN_TIMEOUT: duration 1s-5m (default: 30s)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	l := &loader{logger: logger, metrics: metrics}

	cfg.ReconnectDelay = applyResult(l, "ReconnectDelay", "reconnect_delay",
		config.LoadEnvDuration("RECONNECT_DELAY", cfg.ReconnectDelay, func(d time.Duration) error {
			return config.ValidateDuration(d, time.Second, 10*time.Minute)
		}))

	// The cap defaults to the (possibly overridden) delay so that setting only
	// RECONNECT_DELAY keeps the policy fixed.
	cfg.ReconnectMaxDelay = applyResult(l, "ReconnectMaxDelay", "reconnect_max_delay",
		config.LoadEnvDuration("RECONNECT_MAX_DELAY", cfg.ReconnectDelay, func(d time.Duration) error {
			return config.ValidateDuration(d, cfg.ReconnectDelay, time.Hour)
		}))

	cfg.ReconnectMultiplier = applyResult(l, "ReconnectMultiplier", "reconnect_multiplier",
		config.LoadEnvFloat("RECONNECT_MULTIPLIER", cfg.ReconnectMultiplier, func(v float64) error {
			return config.ValidateFloatRange(v, 1, 10)
		}))

	cfg.RenewalMargin = applyResult(l, "RenewalMargin", "renewal_margin",
		config.LoadEnvDuration("RENEWAL_MARGIN", cfg.RenewalMargin, func(d time.Duration) error {
			return config.ValidateDuration(d, time.Second, 30*time.Minute)
		}))

	cfg.StatusSchedule = applyResult(l, "StatusSchedule", "status_schedule",
		config.LoadEnvWithFallback("STATUS_SCHEDULE", cfg.StatusSchedule, config.ValidateCronSchedule))

	cfg.Timezone = applyResult(l, "Timezone", "timezone",
		config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone))

	cfg.NotifyMaxConcurrent = applyResult(l, "NotifyMaxConcurrent", "notify_max_concurrent",
		config.LoadEnvInt("NOTIFY_MAX_CONCURRENT", cfg.NotifyMaxConcurrent, func(v int) error {
			return config.ValidateIntRange(v, 1, 50)
		}))

	cfg.HealthPort = applyResult(l, "HealthPort", "health_port",
		config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		}))

	cfg.MetricsPort = applyResult(l, "MetricsPort", "metrics_port",
		config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, func(v int) error {
			if v == cfg.HealthPort {
				return fmt.Errorf("must differ from health port %d", cfg.HealthPort)
			}
			return config.ValidateIntRange(v, 1024, 65535)
		}))

	cfg.ShutdownTimeout = applyResult(l, "ShutdownTimeout", "shutdown_timeout",
		config.LoadEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, func(d time.Duration) error {
			return config.ValidateDuration(d, time.Second, 5*time.Minute)
		}))

	metrics.SetFallbackActive(l.fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg
}
