package config

import (
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"trending-watch/internal/infra/notifier"
	pkgconfig "trending-watch/internal/pkg/config"
)

const defaultNotifyTimeout = 30 * time.Second

// NotificationConfig holds the settings of every delivery channel.
type NotificationConfig struct {
	Discord notifier.DiscordConfig
	Slack   notifier.SlackConfig
	Email   notifier.EmailConfig
}

// LoadNotificationConfig loads all channels. A channel that is enabled but
// misconfigured is logged and disabled instead of failing startup.
func LoadNotificationConfig(logger *slog.Logger) NotificationConfig {
	return NotificationConfig{
		Discord: loadDiscordConfig(logger),
		Slack:   loadSlackConfig(logger),
		Email:   loadEmailConfig(logger),
	}
}

// loadDiscordConfig reads DISCORD_ENABLED and DISCORD_WEBHOOK_URL.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	if !pkgconfig.LoadEnvBool("DISCORD_ENABLED", false).Value {
		return notifier.DiscordConfig{}
	}

	webhookURL := pkgconfig.LoadEnvString("DISCORD_WEBHOOK_URL", "")
	if reason := checkWebhookURL(webhookURL, "discord.com", "/api/webhooks/"); reason != "" {
		logger.Warn("Invalid Discord webhook URL, disabling notifications", slog.String("reason", reason))
		return notifier.DiscordConfig{}
	}

	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    defaultNotifyTimeout,
	}
}

// loadSlackConfig reads SLACK_ENABLED and SLACK_WEBHOOK_URL.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	if !pkgconfig.LoadEnvBool("SLACK_ENABLED", false).Value {
		return notifier.SlackConfig{}
	}

	webhookURL := pkgconfig.LoadEnvString("SLACK_WEBHOOK_URL", "")
	if reason := checkWebhookURL(webhookURL, "hooks.slack.com", "/services/"); reason != "" {
		logger.Warn("Invalid Slack webhook URL, disabling notifications", slog.String("reason", reason))
		return notifier.SlackConfig{}
	}

	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    defaultNotifyTimeout,
	}
}

// checkWebhookURL returns why rawURL is not an https webhook on host under
// pathPrefix, or "" when it is.
func checkWebhookURL(rawURL, host, pathPrefix string) string {
	if rawURL == "" {
		return "webhook URL is empty"
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "malformed URL"
	}
	switch {
	case u.Scheme != "https":
		return "webhook URL must use HTTPS"
	case u.Host != host:
		return "unexpected host " + u.Host
	case !strings.HasPrefix(u.Path, pathPrefix):
		return "unexpected path"
	}
	return ""
}

// loadEmailConfig reads the SMTP settings.
//
// Environment variables:
//   - EMAIL_ENABLED: default true when SENDER_EMAIL and RECEIVER_EMAIL are both set
//   - SENDER_EMAIL: account and From address
//   - EMAIL_APP_PASSWORD: SMTP password (app password for Gmail)
//   - RECEIVER_EMAIL: comma-separated recipients
//   - SMTP_HOST / SMTP_PORT: default smtp.gmail.com:587
func loadEmailConfig(logger *slog.Logger) notifier.EmailConfig {
	sender := strings.TrimSpace(pkgconfig.LoadEnvString("SENDER_EMAIL", ""))
	recipients := pkgconfig.LoadEnvList("RECEIVER_EMAIL", nil)

	enabled := pkgconfig.LoadEnvBool("EMAIL_ENABLED", sender != "" && len(recipients) > 0).Value
	if !enabled {
		return notifier.EmailConfig{}
	}

	if _, err := mail.ParseAddress(sender); err != nil {
		logger.Warn("Invalid SENDER_EMAIL, disabling email notifications", slog.Any("error", err))
		return notifier.EmailConfig{}
	}

	valid := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			logger.Warn("Skipping invalid recipient address", slog.String("recipient", r))
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		logger.Warn("No valid RECEIVER_EMAIL addresses, disabling email notifications")
		return notifier.EmailConfig{}
	}

	port := pkgconfig.LoadEnvInt("SMTP_PORT", notifier.DefaultSMTPPort, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 65535)
	})
	for _, warning := range port.Warnings {
		logger.Warn("Configuration fallback applied", slog.String("field", "SMTPPort"), slog.String("warning", warning))
	}

	return notifier.EmailConfig{
		Enabled:  true,
		Host:     pkgconfig.LoadEnvString("SMTP_HOST", notifier.DefaultSMTPHost),
		Port:     port.Value,
		Username: sender,
		Password: pkgconfig.LoadEnvString("EMAIL_APP_PASSWORD", ""),
		From:     sender,
		To:       valid,
		Timeout:  defaultNotifyTimeout,
	}
}
