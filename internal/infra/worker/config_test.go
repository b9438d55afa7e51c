package worker

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"trending-watch/internal/resilience/retry"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var workerEnvKeys = []string{
	"RECONNECT_DELAY",
	"RECONNECT_MAX_DELAY",
	"RECONNECT_MULTIPLIER",
	"RENEWAL_MARGIN",
	"STATUS_SCHEDULE",
	"WORKER_TIMEZONE",
	"NOTIFY_MAX_CONCURRENT",
	"WORKER_HEALTH_PORT",
	"METRICS_PORT",
	"SHUTDOWN_TIMEOUT",
}

// clearWorkerEnv blanks every variable the loader reads; an empty value is
// treated as unset.
func clearWorkerEnv(t *testing.T) {
	t.Helper()
	for _, key := range workerEnvKeys {
		t.Setenv(key, "")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 5*time.Second, cfg.ReconnectMaxDelay)
	assert.Equal(t, 2.0, cfg.ReconnectMultiplier)
	assert.Equal(t, 60*time.Second, cfg.RenewalMargin)
	assert.Equal(t, "0 * * * *", cfg.StatusSchedule)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 10, cfg.NotifyMaxConcurrent)
	assert.Equal(t, 9091, cfg.HealthPort)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig_Immutability(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg2 := DefaultConfig()

	cfg1.StatusSchedule = "*/5 * * * *"
	cfg1.NotifyMaxConcurrent = 20

	assert.Equal(t, "0 * * * *", cfg2.StatusSchedule)
	assert.Equal(t, 10, cfg2.NotifyMaxConcurrent)
}

func TestWorkerConfig_Backoff(t *testing.T) {
	t.Run("fixed when cap equals delay", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, retry.FixedBackoff(5*time.Second), cfg.Backoff())
	})

	t.Run("exponential when cap is larger", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ReconnectMaxDelay = time.Minute

		got := cfg.Backoff()
		assert.Equal(t, 5*time.Second, got.Initial)
		assert.Equal(t, time.Minute, got.Max)
		assert.Equal(t, 2.0, got.Multiplier)
		assert.InDelta(t, 0.1, got.JitterFraction, 1e-9)
	})
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*WorkerConfig) {},
		},
		{
			name:    "reconnect delay too short",
			mutate:  func(c *WorkerConfig) { c.ReconnectDelay = 100 * time.Millisecond; c.ReconnectMaxDelay = time.Second },
			wantErr: "reconnect delay",
		},
		{
			name:    "max delay below delay",
			mutate:  func(c *WorkerConfig) { c.ReconnectMaxDelay = time.Second },
			wantErr: "reconnect max delay",
		},
		{
			name:    "multiplier below one",
			mutate:  func(c *WorkerConfig) { c.ReconnectMultiplier = 0.5 },
			wantErr: "reconnect multiplier",
		},
		{
			name:    "renewal margin too long",
			mutate:  func(c *WorkerConfig) { c.RenewalMargin = time.Hour },
			wantErr: "renewal margin",
		},
		{
			name:    "invalid cron",
			mutate:  func(c *WorkerConfig) { c.StatusSchedule = "every hour" },
			wantErr: "status schedule",
		},
		{
			name:    "empty timezone",
			mutate:  func(c *WorkerConfig) { c.Timezone = "" },
			wantErr: "timezone",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *WorkerConfig) { c.Timezone = "Mars/Olympus" },
			wantErr: "timezone",
		},
		{
			name:    "concurrency too high",
			mutate:  func(c *WorkerConfig) { c.NotifyMaxConcurrent = 51 },
			wantErr: "notify max concurrent",
		},
		{
			name:    "privileged health port",
			mutate:  func(c *WorkerConfig) { c.HealthPort = 80 },
			wantErr: "health port",
		},
		{
			name:    "same ports",
			mutate:  func(c *WorkerConfig) { c.MetricsPort = c.HealthPort },
			wantErr: "must differ",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *WorkerConfig) { c.ShutdownTimeout = 0 },
			wantErr: "shutdown timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWorkerConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusSchedule = "bad"
	cfg.NotifyMaxConcurrent = 0
	cfg.HealthPort = 70000

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"status schedule", "notify max concurrent", "health port"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	clearWorkerEnv(t)

	cfg := LoadConfigFromEnv(discardLogger(), testMetrics)

	assert.Equal(t, DefaultConfig(), *cfg)
	assert.Equal(t, 0.0, testutil.ToFloat64(testMetrics.FallbackActive))
}

func TestLoadConfigFromEnv_AllValid(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("RECONNECT_DELAY", "2s")
	t.Setenv("RECONNECT_MAX_DELAY", "1m")
	t.Setenv("RECONNECT_MULTIPLIER", "1.5")
	t.Setenv("RENEWAL_MARGIN", "2m")
	t.Setenv("STATUS_SCHEDULE", "*/15 * * * *")
	t.Setenv("WORKER_TIMEZONE", "America/New_York")
	t.Setenv("NOTIFY_MAX_CONCURRENT", "4")
	t.Setenv("WORKER_HEALTH_PORT", "8081")
	t.Setenv("METRICS_PORT", "8082")
	t.Setenv("SHUTDOWN_TIMEOUT", "45s")

	cfg := LoadConfigFromEnv(discardLogger(), testMetrics)

	assert.Equal(t, WorkerConfig{
		ReconnectDelay:      2 * time.Second,
		ReconnectMaxDelay:   time.Minute,
		ReconnectMultiplier: 1.5,
		RenewalMargin:       2 * time.Minute,
		StatusSchedule:      "*/15 * * * *",
		Timezone:            "America/New_York",
		NotifyMaxConcurrent: 4,
		HealthPort:          8081,
		MetricsPort:         8082,
		ShutdownTimeout:     45 * time.Second,
	}, *cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1.5, cfg.Backoff().Multiplier)
}

func TestLoadConfigFromEnv_MaxDelayFollowsDelay(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("RECONNECT_DELAY", "10s")

	cfg := LoadConfigFromEnv(discardLogger(), testMetrics)

	assert.Equal(t, 10*time.Second, cfg.ReconnectMaxDelay)
	assert.Equal(t, retry.FixedBackoff(10*time.Second), cfg.Backoff())
}

func TestLoadConfigFromEnv_FallbackOnInvalid(t *testing.T) {
	tests := []struct {
		key    string
		value  string
		label  string
		verify func(t *testing.T, cfg *WorkerConfig)
	}{
		{
			key: "RECONNECT_DELAY", value: "soon", label: "reconnect_delay",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 5*time.Second, cfg.ReconnectDelay) },
		},
		{
			key: "RECONNECT_MAX_DELAY", value: "1s", label: "reconnect_max_delay",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 5*time.Second, cfg.ReconnectMaxDelay) },
		},
		{
			key: "RECONNECT_MULTIPLIER", value: "20", label: "reconnect_multiplier",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 2.0, cfg.ReconnectMultiplier) },
		},
		{
			key: "RENEWAL_MARGIN", value: "2h", label: "renewal_margin",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 60*time.Second, cfg.RenewalMargin) },
		},
		{
			key: "STATUS_SCHEDULE", value: "hourly", label: "status_schedule",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, "0 * * * *", cfg.StatusSchedule) },
		},
		{
			key: "WORKER_TIMEZONE", value: "Nowhere/City", label: "timezone",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, "UTC", cfg.Timezone) },
		},
		{
			key: "NOTIFY_MAX_CONCURRENT", value: "100", label: "notify_max_concurrent",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 10, cfg.NotifyMaxConcurrent) },
		},
		{
			key: "WORKER_HEALTH_PORT", value: "abc", label: "health_port",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 9091, cfg.HealthPort) },
		},
		{
			key: "METRICS_PORT", value: "9091", label: "metrics_port",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 9090, cfg.MetricsPort) },
		},
		{
			key: "SHUTDOWN_TIMEOUT", value: "-5s", label: "shutdown_timeout",
			verify: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearWorkerEnv(t)
			t.Setenv(tt.key, tt.value)

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			before := testutil.ToFloat64(testMetrics.FallbacksTotal.WithLabelValues(tt.label))

			cfg := LoadConfigFromEnv(logger, testMetrics)

			tt.verify(t, cfg)
			assert.NoError(t, cfg.Validate())
			assert.Equal(t, before+1, testutil.ToFloat64(testMetrics.FallbacksTotal.WithLabelValues(tt.label)))
			assert.Equal(t, 1.0, testutil.ToFloat64(testMetrics.FallbackActive))
			assert.Contains(t, buf.String(), "Configuration fallback applied")
			assert.Contains(t, buf.String(), tt.key)
		})
	}
}

func TestLoadConfigFromEnv_PartiallyValid(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("STATUS_SCHEDULE", "30 6 * * *")
	t.Setenv("NOTIFY_MAX_CONCURRENT", "zero")

	var buf bytes.Buffer
	cfg := LoadConfigFromEnv(slog.New(slog.NewTextHandler(&buf, nil)), testMetrics)

	assert.Equal(t, "30 6 * * *", cfg.StatusSchedule)
	assert.Equal(t, 10, cfg.NotifyMaxConcurrent)
	assert.Equal(t, 1, strings.Count(buf.String(), "Configuration fallback applied"))
}
