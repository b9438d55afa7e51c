package config

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"trending-watch/internal/infra/notifier"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func clearNotificationEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCORD_ENABLED", "DISCORD_WEBHOOK_URL", "SLACK_ENABLED", "SLACK_WEBHOOK_URL",
		"EMAIL_ENABLED", "SENDER_EMAIL", "EMAIL_APP_PASSWORD", "RECEIVER_EMAIL", "SMTP_HOST", "SMTP_PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadNotificationConfig_AllDisabledByDefault(t *testing.T) {
	clearNotificationEnv(t)

	cfg := LoadNotificationConfig(discardLogger)

	assert.False(t, cfg.Discord.Enabled)
	assert.False(t, cfg.Slack.Enabled)
	assert.False(t, cfg.Email.Enabled)
}

func TestLoadDiscordConfig(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantEnabled bool
	}{
		{name: "valid", url: "https://discord.com/api/webhooks/123/abc", wantEnabled: true},
		{name: "empty", url: ""},
		{name: "http", url: "http://discord.com/api/webhooks/123/abc"},
		{name: "wrong host", url: "https://evil.example.com/api/webhooks/123/abc"},
		{name: "wrong path", url: "https://discord.com/other/123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearNotificationEnv(t)
			t.Setenv("DISCORD_ENABLED", "true")
			t.Setenv("DISCORD_WEBHOOK_URL", tt.url)

			cfg := loadDiscordConfig(discardLogger)

			assert.Equal(t, tt.wantEnabled, cfg.Enabled)
			if tt.wantEnabled {
				assert.Equal(t, tt.url, cfg.WebhookURL)
				assert.Equal(t, defaultNotifyTimeout, cfg.Timeout)
			}
		})
	}
}

func TestLoadSlackConfig(t *testing.T) {
	clearNotificationEnv(t)
	t.Setenv("SLACK_ENABLED", "true")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T0/B0/xyz")

	cfg := loadSlackConfig(discardLogger)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "https://hooks.slack.com/services/T0/B0/xyz", cfg.WebhookURL)

	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/other")
	assert.False(t, loadSlackConfig(discardLogger).Enabled)
}

func TestLoadEmailConfig(t *testing.T) {
	t.Run("enabled implicitly by sender and recipients", func(t *testing.T) {
		clearNotificationEnv(t)
		t.Setenv("SENDER_EMAIL", "watcher@gmail.com")
		t.Setenv("EMAIL_APP_PASSWORD", "app-pass")
		t.Setenv("RECEIVER_EMAIL", "a@example.com, not-an-address ,b@example.com")

		cfg := loadEmailConfig(discardLogger)

		assert.Equal(t, notifier.EmailConfig{
			Enabled:  true,
			Host:     notifier.DefaultSMTPHost,
			Port:     notifier.DefaultSMTPPort,
			Username: "watcher@gmail.com",
			Password: "app-pass",
			From:     "watcher@gmail.com",
			To:       []string{"a@example.com", "b@example.com"},
			Timeout:  defaultNotifyTimeout,
		}, cfg)
	})

	t.Run("explicitly disabled", func(t *testing.T) {
		clearNotificationEnv(t)
		t.Setenv("EMAIL_ENABLED", "false")
		t.Setenv("SENDER_EMAIL", "watcher@gmail.com")
		t.Setenv("RECEIVER_EMAIL", "a@example.com")

		assert.False(t, loadEmailConfig(discardLogger).Enabled)
	})

	t.Run("enabled without recipients is disabled", func(t *testing.T) {
		clearNotificationEnv(t)
		t.Setenv("EMAIL_ENABLED", "true")
		t.Setenv("SENDER_EMAIL", "watcher@gmail.com")

		assert.False(t, loadEmailConfig(discardLogger).Enabled)
	})

	t.Run("custom smtp server and invalid port falls back", func(t *testing.T) {
		clearNotificationEnv(t)
		t.Setenv("SENDER_EMAIL", "watcher@example.com")
		t.Setenv("RECEIVER_EMAIL", "a@example.com")
		t.Setenv("SMTP_HOST", "mail.example.com")
		t.Setenv("SMTP_PORT", "99999")

		cfg := loadEmailConfig(discardLogger)

		assert.Equal(t, "mail.example.com", cfg.Host)
		assert.Equal(t, notifier.DefaultSMTPPort, cfg.Port)
	})
}
